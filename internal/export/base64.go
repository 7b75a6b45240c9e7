package export

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/electronjoe/photocoords/internal/photo"
)

// ErrSourceNotFound is returned when the base64 source directory does not exist.
var ErrSourceNotFound = errors.New("source path does not exist")

// EncodeImages writes one <stem>.txt file per image into dstDir, holding the
// standard base64 encoding of the image bytes. It returns the written paths.
func EncodeImages(paths []string, dstDir string) ([]string, error) {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base64 directory: %w", err)
	}

	written := make([]string, 0, len(paths))
	for _, path := range paths {
		out, err := encodeImage(path, dstDir)
		if err != nil {
			return written, err
		}
		log.Info().
			Str("file", filepath.Base(path)).
			Str("output", filepath.Base(out)).
			Msg("Converted to base64")
		written = append(written, out)
	}
	return written, nil
}

// EncodeDir converts every image in srcDir, as the standalone conversion mode.
func EncodeDir(srcDir, dstDir string) ([]string, error) {
	info, err := os.Stat(srcDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, srcDir)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", srcDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", srcDir)
	}

	paths, err := photo.ListImages(srcDir)
	if err != nil {
		return nil, err
	}
	return EncodeImages(paths, dstDir)
}

func encodeImage(path, dstDir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	out := filepath.Join(dstDir, stem+".txt")

	encoded := base64.StdEncoding.EncodeToString(data)
	if err := writeFileAtomic(out, []byte(encoded)); err != nil {
		return "", err
	}
	return out, nil
}
