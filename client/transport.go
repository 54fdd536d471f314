package client

import (
	"crypto/tls"
	"net/http"

	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/rs/zerolog/log"
)

// NewHTTPClient builds the HTTP client used for the OAuth exchange and the
// analytics API. TLS verification is only relaxed on this client, never process wide.
func NewHTTPClient(cfg config.TransportConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.InsecureSkipVerify {
		log.Warn().Msg("TLS certificate verification is disabled for the analytics client. Do not use this in production")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for local debugging
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
