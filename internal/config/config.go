package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/electronjoe/photocoords/internal/geocode"
)

const (
	DefaultConfigPath = ".photocoords/config.json"
	DefaultJSONOutput = "metadados_fotos.json"
	DefaultXLSXOutput = "metadados_fotos.xlsx"

	envPrefix = "PHOTOCOORDS_"
)

// ErrNoSource is returned by Validate when no image directory was configured.
var ErrNoSource = errors.New("no source directory configured")

// Config represents the JSON config structure.
type Config struct {
	SourceDir  string  `json:"sourceDir"`
	OutputJSON string  `json:"outputJson"`
	OutputXLSX string  `json:"outputXlsx"`
	Base64Dir  string  `json:"base64Dir"`
	Geocode    Geocode `json:"geocode"`
	S3Bucket   string  `json:"s3Bucket"`
}

// Geocode holds the reverse-geocoding settings.
type Geocode struct {
	Disabled  bool     `json:"disabled"`
	Endpoint  string   `json:"endpoint"`
	UserAgent string   `json:"userAgent"`
	Timeout   Duration `json:"timeout"`
	Trace     bool     `json:"trace"`
}

// Duration accepts either a Go duration string ("15s") or a number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %s", b)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Load builds the effective configuration: defaults, then the JSON config
// file, then environment variables (a .env file in the working directory is
// loaded first when present). An empty path selects ~/.photocoords/config.json
// and tolerates its absence.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Read retrieves and parses the JSON config at path.
func Read(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(homeDir, DefaultConfigPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("failed to read config file at %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SOURCE":     &c.SourceDir,
		"JSON":       &c.OutputJSON,
		"XLSX":       &c.OutputXLSX,
		"BASE64_DIR": &c.Base64Dir,
		"ENDPOINT":   &c.Geocode.Endpoint,
		"USER_AGENT": &c.Geocode.UserAgent,
		"S3_BUCKET":  &c.S3Bucket,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(envPrefix + "TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", envPrefix, err)
		}
		c.Geocode.Timeout = Duration(d)
	}
	if v := os.Getenv(envPrefix + "NO_GEOCODE"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sNO_GEOCODE: %w", envPrefix, err)
		}
		c.Geocode.Disabled = disabled
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.OutputJSON == "" {
		c.OutputJSON = DefaultJSONOutput
	}
	if c.OutputXLSX == "" {
		c.OutputXLSX = DefaultXLSXOutput
	}
	if c.Geocode.Endpoint == "" {
		c.Geocode.Endpoint = geocode.DefaultEndpoint
	}
	if c.Geocode.UserAgent == "" {
		c.Geocode.UserAgent = geocode.DefaultUserAgent
	}
	if c.Geocode.Timeout <= 0 {
		c.Geocode.Timeout = Duration(geocode.DefaultTimeout)
	}
}

// Validate checks that a run can start.
func (c Config) Validate() error {
	if c.SourceDir == "" {
		return ErrNoSource
	}
	return nil
}

// GeocodeOptions converts the settings for geocode.NewNominatimClient.
func (c Config) GeocodeOptions() geocode.Options {
	return geocode.Options{
		Endpoint:  c.Geocode.Endpoint,
		UserAgent: c.Geocode.UserAgent,
		Timeout:   time.Duration(c.Geocode.Timeout),
		Trace:     c.Geocode.Trace,
	}
}
