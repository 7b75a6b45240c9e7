package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/electronjoe/photocoords/internal/config"
	"github.com/electronjoe/photocoords/internal/export"
)

func newRenderCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "render INPUT.json",
		Short: "Rebuild the spreadsheet from a previously written JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := export.ReadJSON(args[0])
			if err != nil {
				return err
			}
			if err := export.WriteSpreadsheet(output, records); err != nil {
				return err
			}
			log.Info().Int("records", len(records)).Str("path", output).Msg("Wrote spreadsheet")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultXLSXOutput, "spreadsheet output file")
	return cmd
}
