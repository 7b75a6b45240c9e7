// Package geocode resolves coordinates to a human-readable address.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultEndpoint is the public Nominatim reverse-geocoding API.
	DefaultEndpoint = "https://nominatim.openstreetmap.org/reverse"
	// DefaultUserAgent identifies this tool to the geocoding service.
	DefaultUserAgent = "MeuBotDeGeocodificacao/1.0"
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second

	// Placeholder is stored when no address could be obtained.
	Placeholder = "Endereço não encontrado"
)

// Reverser turns a coordinate pair into a display address.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Options configures a NominatimClient. Zero values select the defaults.
type Options struct {
	Endpoint  string
	UserAgent string
	Timeout   time.Duration
	// Trace logs every request and response at debug level.
	Trace bool
	// Transport overrides the base transport, mostly for tests.
	Transport http.RoundTripper
}

// NominatimClient queries a Nominatim-compatible reverse endpoint.
type NominatimClient struct {
	endpoint   string
	httpClient *http.Client
}

type nominatimResponse struct {
	DisplayName *string `json:"display_name"`
}

// NewNominatimClient creates a client for the configured endpoint.
func NewNominatimClient(opts Options) (*NominatimClient, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid geocoding endpoint %q: %w", endpoint, err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if opts.Trace {
		transport = &tracingTransport{Transport: transport}
	}
	transport = &headerTransport{
		Transport: transport,
		Headers:   map[string]string{"User-Agent": userAgent},
	}

	return &NominatimClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

// Reverse looks up the display name for lat/lon.
// A non-200 answer or a response without display_name yields Placeholder and
// no error; transport and decoding failures are returned.
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("lat", formatCoordinate(lat))
	params.Set("lon", formatCoordinate(lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Placeholder, nil
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding geocoding response: %w", err)
	}
	if body.DisplayName == nil {
		return Placeholder, nil
	}
	return *body.DisplayName, nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
