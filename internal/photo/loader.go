package photo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"golang.org/x/text/unicode/norm"
)

const exifTimeLayout = "2006:01:02 15:04:05"

// ExtractError reports a failure to read an image file.
type ExtractError struct {
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// ListImages returns the image files directly inside dir, in directory-listing order.
// Sub-directories are not visited.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsImageFile(entry.Name()) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// IsImageFile checks for the supported image file extensions.
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// Extract reads the EXIF block of one image and builds its Record.
// Only I/O failures are returned as errors; missing or unreadable EXIF data
// produces a record holding just the file name.
func Extract(path string) (Record, error) {
	rec := Record{FileName: norm.NFC.String(filepath.Base(path))}

	f, err := os.Open(path)
	if err != nil {
		return Record{}, &ExtractError{Path: path, Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Record{}, &ExtractError{Path: path, Err: err}
	}

	payload, ok := exifPayload(data)
	if !ok {
		log.Debug().Str("file", path).Msg("No EXIF data")
		return rec, nil
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		log.Warn().Err(err).Str("file", path).Msg("Could not decode EXIF, keeping file name only")
		return rec, nil
	}

	rec.CapturedAt = readTimestamp(x, path)

	lat, lon, err := readCoordinates(x)
	switch {
	case err == nil:
		rec.Latitude = &lat
		rec.Longitude = &lon
	case exif.IsTagNotPresentError(err):
		// no GPS block
	default:
		log.Warn().Err(err).Str("file", path).Msg("Ignoring GPS coordinates")
	}

	return rec, nil
}

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	jpegExifID   = []byte("Exif\x00\x00")
)

// exifPayload returns the bytes goexif should decode, or false when the file
// carries no EXIF block at all. PNG files keep EXIF as a bare TIFF stream in
// their eXIf chunk; JPEG files are handed over whole so goexif can locate APP1.
func exifPayload(data []byte) ([]byte, bool) {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return pngChunk(data[len(pngSignature):], "eXIf")
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return data, true
	case bytes.Contains(data, jpegExifID):
		return data, true
	}
	return nil, false
}

// pngChunk walks PNG chunks (length, type, data, CRC) until IEND.
func pngChunk(data []byte, want string) ([]byte, bool) {
	for len(data) >= 12 {
		n := binary.BigEndian.Uint32(data[:4])
		typ := string(data[4:8])
		if uint64(n)+12 > uint64(len(data)) {
			return nil, false
		}
		if typ == want {
			return data[8 : 8+n], true
		}
		if typ == "IEND" {
			break
		}
		data = data[12+n:]
	}
	return nil, false
}

// readTimestamp looks for DateTimeOriginal; nil if absent or unparsable.
func readTimestamp(x *exif.Exif, path string) *Timestamp {
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return nil
	}
	raw, err := tag.StringVal()
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("DateTimeOriginal is not a string")
		return nil
	}
	t, err := time.Parse(exifTimeLayout, strings.TrimSpace(raw))
	if err != nil {
		log.Warn().Err(err).Str("file", path).Str("value", raw).Msg("Unparsable DateTimeOriginal")
		return nil
	}
	return NewTimestamp(t)
}

// readCoordinates converts the four GPS tags into signed decimal degrees.
// Both coordinates are returned together or not at all.
func readCoordinates(x *exif.Exif) (float64, float64, error) {
	lat, err := readAxis(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	if err != nil {
		return 0, 0, err
	}
	lon, err := readAxis(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func readAxis(x *exif.Exif, valueField, refField exif.FieldName) (float64, error) {
	valueTag, err := x.Get(valueField)
	if err != nil {
		return 0, err
	}
	refTag, err := x.Get(refField)
	if err != nil {
		return 0, err
	}
	ref, err := refTag.StringVal()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedCoordinate, refField, err)
	}

	dms, err := readDMS(valueTag)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", valueField, err)
	}
	return DMSToDecimal(dms, ref)
}

func readDMS(tag *tiff.Tag) ([3]Rational, error) {
	var dms [3]Rational
	if tag.Count < 3 {
		return dms, fmt.Errorf("%w: expected 3 rationals, got %d", ErrMalformedCoordinate, tag.Count)
	}
	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil {
			return dms, fmt.Errorf("%w: %v", ErrMalformedCoordinate, err)
		}
		dms[i] = Rational{Num: num, Den: den}
	}
	return dms, nil
}
