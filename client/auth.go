package client

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadClientSecrets reads the application credentials downloaded from the Google
// console and returns an OAuth config for the requested scopes.
func LoadClientSecrets(path string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read client secrets %s: %v", common.ErrAuthentication, path, err)
	}

	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client secrets %s: %v", common.ErrAuthentication, path, err)
	}
	return cfg, nil
}

// OAuthAuthenticator reuses stored credentials when they are still usable and
// falls back to the consent flow otherwise.
type OAuthAuthenticator struct {
	config     *oauth2.Config
	store      TokenStore
	consent    ConsentFlow
	httpClient *http.Client
}

// NewOAuthAuthenticator creates an authenticator. httpClient is used for token
// exchange and refresh; nil means http.DefaultClient.
func NewOAuthAuthenticator(cfg *oauth2.Config, store TokenStore, consent ConsentFlow, httpClient *http.Client) *OAuthAuthenticator {
	return &OAuthAuthenticator{
		config:     cfg,
		store:      store,
		consent:    consent,
		httpClient: httpClient,
	}
}

// Authenticate implements Authenticator. Tokens obtained or refreshed here are
// written back to the store.
func (a *OAuthAuthenticator) Authenticate(ctx context.Context) (oauth2.TokenSource, error) {
	log.Info().Msg("Start authentication process")

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	stored, err := a.store.Load()
	if err != nil {
		return nil, err
	}

	if usable(stored) {
		source := a.config.TokenSource(ctx, stored)
		token, err := source.Token()
		if err == nil {
			persisting := newPersistingTokenSource(source, a.store, stored)
			if token.AccessToken != stored.AccessToken {
				if err := a.store.Save(token); err != nil {
					return nil, err
				}
				persisting.last = token.AccessToken
			}
			log.Info().Time("expiry", token.Expiry).Msg("End authentication process")
			return persisting, nil
		}
		log.Warn().Err(err).Msg("Stored credentials were rejected, running consent flow")
	}

	if a.consent == nil {
		return nil, fmt.Errorf("%w: no valid stored credentials and no consent flow configured", common.ErrAuthentication)
	}

	token, err := a.consent.Run(ctx, a.config)
	if err != nil {
		return nil, err
	}
	if err := a.store.Save(token); err != nil {
		return nil, err
	}

	log.Info().Time("expiry", token.Expiry).Msg("End authentication process")
	return newPersistingTokenSource(a.config.TokenSource(ctx, token), a.store, token), nil
}

// usable reports whether a stored token can be used without asking the user again.
func usable(token *oauth2.Token) bool {
	if token == nil {
		return false
	}
	return token.Valid() || token.RefreshToken != ""
}
