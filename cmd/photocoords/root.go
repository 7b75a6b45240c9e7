package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/electronjoe/photocoords/internal/config"
	"github.com/electronjoe/photocoords/internal/geocode"
	"github.com/electronjoe/photocoords/internal/pipeline"
	"github.com/electronjoe/photocoords/internal/storage"
)

type rootFlags struct {
	configPath string
	verbose    bool

	source    string
	jsonPath  string
	xlsxPath  string
	base64Dir string
	noGeocode bool
	endpoint  string
	userAgent string
	timeout   time.Duration
	httpTrace bool
	s3Bucket  string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "photocoords",
		Short: "Extract photo capture time and location into JSON and a spreadsheet",
		Long: `
photocoords reads the EXIF block of every .jpg, .jpeg and .png file in a
directory, converts the GPS position to decimal degrees, looks up an address
for it and writes one record per photo to a JSON file and an xlsx workbook.
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return run(cmd, cfg)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "JSON config file (default ~/"+config.DefaultConfigPath+")")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	f := cmd.Flags()
	f.StringVarP(&flags.source, "source", "s", "", "image directory")
	f.StringVar(&flags.jsonPath, "json", config.DefaultJSONOutput, "JSON output file")
	f.StringVar(&flags.xlsxPath, "xlsx", config.DefaultXLSXOutput, "spreadsheet output file")
	f.StringVar(&flags.base64Dir, "base64-dir", "", "also write base64 text files into this directory")
	f.BoolVar(&flags.noGeocode, "no-geocode", false, "skip reverse geocoding")
	f.StringVar(&flags.endpoint, "endpoint", geocode.DefaultEndpoint, "reverse-geocoding endpoint")
	f.StringVar(&flags.userAgent, "user-agent", geocode.DefaultUserAgent, "User-Agent header sent to the geocoding service")
	f.DurationVar(&flags.timeout, "timeout", geocode.DefaultTimeout, "HTTP client timeout")
	f.BoolVar(&flags.httpTrace, "http-trace", false, "log every geocoding request")
	f.StringVar(&flags.s3Bucket, "s3-bucket", "", "publish outputs to this bucket (MINIO_* environment)")

	cmd.AddCommand(newBase64Cmd(), newRenderCmd())
	return cmd
}

// loadConfig layers explicitly set flags over the loaded configuration.
func loadConfig(cmd *cobra.Command, flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.SourceDir = flags.source
	}
	if changed("json") {
		cfg.OutputJSON = flags.jsonPath
	}
	if changed("xlsx") {
		cfg.OutputXLSX = flags.xlsxPath
	}
	if changed("base64-dir") {
		cfg.Base64Dir = flags.base64Dir
	}
	if changed("no-geocode") {
		cfg.Geocode.Disabled = flags.noGeocode
	}
	if changed("endpoint") {
		cfg.Geocode.Endpoint = flags.endpoint
	}
	if changed("user-agent") {
		cfg.Geocode.UserAgent = flags.userAgent
	}
	if changed("timeout") {
		cfg.Geocode.Timeout = config.Duration(flags.timeout)
	}
	if changed("http-trace") {
		cfg.Geocode.Trace = flags.httpTrace
	}
	if changed("s3-bucket") {
		cfg.S3Bucket = flags.s3Bucket
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%w: use --source, PHOTOCOORDS_SOURCE or sourceDir in the config file", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg config.Config) error {
	opts := pipeline.Options{
		SourceDir: cfg.SourceDir,
		JSONPath:  cfg.OutputJSON,
		XLSXPath:  cfg.OutputXLSX,
		Base64Dir: cfg.Base64Dir,
		Bucket:    cfg.S3Bucket,
	}

	if !cfg.Geocode.Disabled {
		client, err := geocode.NewNominatimClient(cfg.GeocodeOptions())
		if err != nil {
			return err
		}
		opts.Geocoder = client
	}

	if cfg.S3Bucket != "" {
		s3cfg, err := storage.S3ConfigFromEnv()
		if err != nil {
			return err
		}
		publisher, err := storage.NewS3Publisher(s3cfg)
		if err != nil {
			return err
		}
		opts.Publisher = publisher
	}

	_, err := pipeline.Run(cmd.Context(), opts)
	return err
}
