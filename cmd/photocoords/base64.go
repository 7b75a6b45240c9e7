package main

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/electronjoe/photocoords/internal/export"
)

func newBase64Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "base64 SRC DST",
		Short: "Write every image in SRC as a base64 text file into DST",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := export.EncodeDir(args[0], args[1])
			if errors.Is(err, export.ErrSourceNotFound) {
				log.Error().Str("source", args[0]).Msg("Source path does not exist, skipping base64 conversion")
				return nil
			}
			if err != nil {
				return err
			}
			log.Info().Int("files", len(written)).Str("destination", args[1]).Msg("Base64 conversion complete")
			return nil
		},
	}
}
