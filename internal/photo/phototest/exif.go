// Package phototest builds small JPEG files carrying synthetic EXIF blocks.
package phototest

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
)

// DMS is a degrees/minutes/seconds triple given as numerator/denominator pairs.
type DMS [3][2]uint32

// Deg builds a DMS from whole degrees, minutes and seconds.
func Deg(d, m, s uint32) DMS {
	return DMS{{d, 1}, {m, 1}, {s, 1}}
}

// GPS describes the four GPS tags written into the GPS IFD.
type GPS struct {
	Lat    DMS
	LatRef string
	Lon    DMS
	LonRef string
}

// Options selects which tags the EXIF block carries.
type Options struct {
	// DateTimeOriginal in EXIF layout, e.g. "2023:05:14 09:30:00". Empty omits the tag.
	DateTimeOriginal string
	GPS              *GPS
}

const (
	typeASCII    = 2
	typeLong     = 4
	typeRational = 5

	tagExifIFD          = 0x8769
	tagGPSIFD           = 0x8825
	tagDateTimeOriginal = 0x9003
	tagGPSLatitudeRef   = 0x0001
	tagGPSLatitude      = 0x0002
	tagGPSLongitudeRef  = 0x0003
	tagGPSLongitude     = 0x0004
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

var order = binary.LittleEndian

// JPEG returns the bytes of a minimal JPEG stream whose APP1 segment holds
// the requested EXIF tags. The stream carries no image data.
func JPEG(opts Options) []byte {
	return JPEGWithPayload(buildTIFF(opts))
}

// JPEGWithPayload wraps an arbitrary TIFF payload in an Exif APP1 segment.
func JPEGWithPayload(tiffData []byte) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	buf.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(2+6+len(tiffData)))
	buf.WriteString("Exif\x00\x00")
	buf.Write(tiffData)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// PNG returns a 1x1 PNG header whose eXIf chunk holds the requested tags.
// The stream carries no IDAT data.
func PNG(opts Options) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], 1)
	binary.BigEndian.PutUint32(ihdr[4:], 1)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var buf bytes.Buffer
	buf.Write(PNGWithoutExif)
	writeChunk(&buf, "IHDR", ihdr)
	writeChunk(&buf, "eXIf", buildTIFF(opts))
	writeChunk(&buf, "IEND", nil)
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(data)))
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	buf.WriteString(typ)
	buf.Write(data)
	_ = binary.Write(buf, binary.BigEndian, crc.Sum32())
}

// WriteJPEG writes JPEG(opts) to dir/name and returns the full path.
func WriteJPEG(t testing.TB, dir, name string, opts Options) string {
	t.Helper()
	return WriteFile(t, dir, name, JPEG(opts))
}

// WriteFile writes data to dir/name and returns the full path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// PNGWithoutExif is a PNG signature with no further chunks, enough to pass
// the extension filter without offering any EXIF.
var PNGWithoutExif = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}

func buildTIFF(opts Options) []byte {
	var exifEntries, gpsEntries []entry
	if opts.DateTimeOriginal != "" {
		exifEntries = append(exifEntries, ascii(tagDateTimeOriginal, opts.DateTimeOriginal))
	}
	if g := opts.GPS; g != nil {
		gpsEntries = append(gpsEntries,
			ascii(tagGPSLatitudeRef, g.LatRef),
			rationals(tagGPSLatitude, g.Lat),
			ascii(tagGPSLongitudeRef, g.LonRef),
			rationals(tagGPSLongitude, g.Lon),
		)
	}

	// IFD0 holds only the sub-IFD pointers; their offsets depend on sizes.
	var ifd0 []entry
	if len(exifEntries) > 0 {
		ifd0 = append(ifd0, long(tagExifIFD, 0))
	}
	if len(gpsEntries) > 0 {
		ifd0 = append(ifd0, long(tagGPSIFD, 0))
	}

	const headerLen = 8
	ifd0Offset := uint32(headerLen)
	exifOffset := ifd0Offset + ifdLen(ifd0)
	gpsOffset := exifOffset
	if len(exifEntries) > 0 {
		gpsOffset += ifdLen(exifEntries)
	}

	for i := range ifd0 {
		switch ifd0[i].tag {
		case tagExifIFD:
			ifd0[i] = long(tagExifIFD, exifOffset)
		case tagGPSIFD:
			ifd0[i] = long(tagGPSIFD, gpsOffset)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, order, uint16(42))
	_ = binary.Write(&buf, order, ifd0Offset)
	buf.Write(encodeIFD(ifd0Offset, ifd0))
	if len(exifEntries) > 0 {
		buf.Write(encodeIFD(exifOffset, exifEntries))
	}
	if len(gpsEntries) > 0 {
		buf.Write(encodeIFD(gpsOffset, gpsEntries))
	}
	return buf.Bytes()
}

func ascii(tag uint16, s string) entry {
	data := append([]byte(s), 0)
	return entry{tag: tag, typ: typeASCII, count: uint32(len(data)), data: data}
}

func long(tag uint16, v uint32) entry {
	data := make([]byte, 4)
	order.PutUint32(data, v)
	return entry{tag: tag, typ: typeLong, count: 1, data: data}
}

func rationals(tag uint16, dms DMS) entry {
	data := make([]byte, 0, 24)
	for _, r := range dms {
		data = order.AppendUint32(data, r[0])
		data = order.AppendUint32(data, r[1])
	}
	return entry{tag: tag, typ: typeRational, count: 3, data: data}
}

// ifdLen is the encoded size of an IFD including its out-of-line values.
func ifdLen(entries []entry) uint32 {
	n := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.data) > 4 {
			n += padded(len(e.data))
		}
	}
	return n
}

func padded(n int) uint32 {
	return uint32(n + n%2)
}

func encodeIFD(offset uint32, entries []entry) []byte {
	var dir, values bytes.Buffer
	valuesOffset := offset + uint32(2+12*len(entries)+4)

	_ = binary.Write(&dir, order, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(&dir, order, e.tag)
		_ = binary.Write(&dir, order, e.typ)
		_ = binary.Write(&dir, order, e.count)
		if len(e.data) <= 4 {
			inline := make([]byte, 4)
			copy(inline, e.data)
			dir.Write(inline)
			continue
		}
		_ = binary.Write(&dir, order, valuesOffset+uint32(values.Len()))
		values.Write(e.data)
		if len(e.data)%2 == 1 {
			values.WriteByte(0)
		}
	}
	_ = binary.Write(&dir, order, uint32(0))

	dir.Write(values.Bytes())
	return dir.Bytes()
}
