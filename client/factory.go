package client

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/researchaccelerator-hub/yt-analytics-report/config"
	"github.com/researchaccelerator-hub/yt-analytics-report/model/youtube"
)

// ClientFactory creates the authenticator and analytics client for a run
type ClientFactory interface {
	// CreateAuthenticator creates the authenticator described by cfg
	CreateAuthenticator(cfg *config.ReportConfig) (Authenticator, error)

	// CreateClient creates an analytics client for the specified platform
	CreateClient(platform common.PlatformType, cfg *config.ReportConfig) (youtube.AnalyticsClient, error)
}

// DefaultClientFactory implements ClientFactory. In and Out are used by the
// consent flow; nil means the process stdin/stdout.
type DefaultClientFactory struct {
	In  io.Reader
	Out io.Writer

	httpClient *http.Client
}

// NewDefaultClientFactory creates a new DefaultClientFactory sharing one HTTP
// client, built from the transport options, between OAuth and the analytics API.
func NewDefaultClientFactory(transport config.TransportConfig) *DefaultClientFactory {
	return &DefaultClientFactory{
		In:         os.Stdin,
		Out:        os.Stdout,
		httpClient: NewHTTPClient(transport),
	}
}

// CreateAuthenticator implements ClientFactory
func (f *DefaultClientFactory) CreateAuthenticator(cfg *config.ReportConfig) (Authenticator, error) {
	oauthCfg, err := LoadClientSecrets(cfg.Auth.ClientSecretsFile, youtube.ReadonlyScope)
	if err != nil {
		return nil, err
	}

	var consent ConsentFlow
	if cfg.Auth.NoLocalWebserver {
		consent = &ConsoleFlow{In: f.In, Out: f.Out}
	} else {
		consent = &LocalServerFlow{HostName: cfg.Auth.HostName, Ports: cfg.Auth.HostPorts, Out: f.Out}
	}

	return NewOAuthAuthenticator(oauthCfg, NewFileTokenStore(cfg.Auth.TokenFile), consent, f.httpClient), nil
}

// CreateClient implements ClientFactory
func (f *DefaultClientFactory) CreateClient(platform common.PlatformType, cfg *config.ReportConfig) (youtube.AnalyticsClient, error) {
	switch platform {
	case common.PlatformYouTube:
		return NewYouTubeAnalyticsClient(f.httpClient, ""), nil
	default:
		return nil, fmt.Errorf("unsupported platform type: %s", platform)
	}
}
