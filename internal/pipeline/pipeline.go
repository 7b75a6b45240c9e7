// Package pipeline runs one extraction pass over an image directory: collect
// metadata, resolve addresses, write outputs and optionally publish them.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/electronjoe/photocoords/internal/export"
	"github.com/electronjoe/photocoords/internal/geocode"
	"github.com/electronjoe/photocoords/internal/photo"
)

// Publisher uploads finished artifacts. storage.S3Publisher implements it.
type Publisher interface {
	Publish(ctx context.Context, bucket, prefix string, files []string) ([]string, error)
}

// Options configures a Run.
type Options struct {
	SourceDir string
	JSONPath  string
	XLSXPath  string
	// Base64Dir enables the base64 step when set.
	Base64Dir string

	// Geocoder is nil when reverse geocoding is disabled.
	Geocoder geocode.Reverser

	Publisher Publisher
	Bucket    string
}

// Summary describes a finished run.
type Summary struct {
	RunID           string
	Images          int
	WithTimestamp   int
	WithCoordinates int
	Geocoded        int
	Outputs         []string
	Published       []string
}

// Run processes every image in opts.SourceDir. Outputs are only written once
// all files were collected, so a cancelled run leaves nothing behind.
func Run(ctx context.Context, opts Options) (Summary, error) {
	summary := Summary{RunID: uuid.NewString()}

	paths, err := photo.ListImages(opts.SourceDir)
	if err != nil {
		return summary, err
	}
	log.Info().Str("source", opts.SourceDir).Int("images", len(paths)).Msg("Scanning images")

	records, err := Collect(ctx, paths, opts.Geocoder)
	if err != nil {
		return summary, err
	}
	summary.Images = len(records)
	for _, rec := range records {
		if rec.CapturedAt != nil {
			summary.WithTimestamp++
		}
		if rec.HasCoordinates() {
			summary.WithCoordinates++
		}
		if rec.Address != nil && *rec.Address != geocode.Placeholder {
			summary.Geocoded++
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	if err := export.WriteJSON(opts.JSONPath, records); err != nil {
		return summary, fmt.Errorf("write JSON output: %w", err)
	}
	log.Info().Str("path", opts.JSONPath).Msg("Wrote JSON")
	summary.Outputs = append(summary.Outputs, opts.JSONPath)

	if err := export.WriteSpreadsheet(opts.XLSXPath, records); err != nil {
		return summary, fmt.Errorf("write spreadsheet output: %w", err)
	}
	log.Info().Str("path", opts.XLSXPath).Msg("Wrote spreadsheet")
	summary.Outputs = append(summary.Outputs, opts.XLSXPath)

	if opts.Base64Dir != "" {
		written, err := export.EncodeImages(paths, opts.Base64Dir)
		if err != nil {
			return summary, fmt.Errorf("base64 conversion: %w", err)
		}
		summary.Outputs = append(summary.Outputs, written...)
	}

	if opts.Publisher != nil && opts.Bucket != "" {
		keys, err := opts.Publisher.Publish(ctx, opts.Bucket, summary.RunID, summary.Outputs)
		summary.Published = keys
		if err != nil {
			return summary, fmt.Errorf("publish outputs: %w", err)
		}
	}

	log.Info().
		Str("run_id", summary.RunID).
		Int("images", summary.Images).
		Int("with_timestamp", summary.WithTimestamp).
		Int("with_coordinates", summary.WithCoordinates).
		Int("geocoded", summary.Geocoded).
		Int("published", len(summary.Published)).
		Msg("Run complete")
	return summary, nil
}

// Collect extracts a record per path, in order, and resolves an address for
// every record that has coordinates. A nil geocoder leaves addresses absent.
func Collect(ctx context.Context, paths []string, geocoder geocode.Reverser) ([]photo.Record, error) {
	bar := newProgress(len(paths))

	records := make([]photo.Record, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := photo.Extract(path)
		if err != nil {
			return nil, err
		}

		if geocoder != nil && rec.HasCoordinates() {
			address, err := geocoder.Reverse(ctx, *rec.Latitude, *rec.Longitude)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.Warn().Err(err).Str("file", rec.FileName).Msg("Reverse geocoding failed")
				address = geocode.Placeholder
			}
			rec = rec.WithAddress(address)
		}
		records = append(records, rec)

		if bar == nil {
			logRecord(rec)
		} else if err := bar.Add(1); err != nil {
			log.Debug().Err(err).Msg("Updating progress bar")
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return records, nil
}

func newProgress(n int) *progressbar.ProgressBar {
	if n == 0 || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription("Reading photos"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func logRecord(rec photo.Record) {
	ev := log.Info().Str("file", filepath.Base(rec.FileName))
	if rec.CapturedAt != nil {
		ev = ev.Stringer("captured_at", rec.CapturedAt)
	}
	if rec.HasCoordinates() {
		ev = ev.Float64("lat", *rec.Latitude).Float64("lon", *rec.Longitude)
	}
	if rec.Address != nil {
		ev = ev.Str("address", *rec.Address)
	}
	ev.Msg("Processed")
}
