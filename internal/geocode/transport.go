package geocode

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// headerTransport sets fixed headers on every outgoing request.
type headerTransport struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request.
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}
	return t.Transport.RoundTrip(req)
}

// tracingTransport logs one line per request with its outcome and latency.
type tracingTransport struct {
	Transport http.RoundTripper
}

// RoundTrip implements the http.RoundTripper interface.
func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.Transport.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Debug().Err(err).
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Dur("elapsed", elapsed).
			Msg("HTTP request failed")
		return nil, err
	}

	log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("user_agent", req.Header.Get("User-Agent")).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("HTTP request")
	return resp, nil
}
