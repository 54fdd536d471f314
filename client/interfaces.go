package client

import (
	"context"

	"golang.org/x/oauth2"
)

// Authenticator produces credentials for the analytics API
type Authenticator interface {
	// Authenticate returns a token source holding valid credentials
	Authenticate(ctx context.Context) (oauth2.TokenSource, error)
}

// TokenStore persists OAuth tokens between invocations
type TokenStore interface {
	// Load returns the stored token, or nil when none has been stored yet
	Load() (*oauth2.Token, error)

	// Save replaces the stored token
	Save(token *oauth2.Token) error
}

// ConsentFlow runs the interactive authorization exchange
type ConsentFlow interface {
	// Run blocks until the user has granted access and returns the exchanged token
	Run(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error)
}
