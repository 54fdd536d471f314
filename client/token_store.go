package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// FileTokenStore keeps the OAuth token as JSON in a local file
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a token store backed by path
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// Load implements TokenStore. A missing file is not an error.
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("token_file", s.Path).Msg("No stored credentials found")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read token file %s: %v", common.ErrAuthentication, s.Path, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		// a corrupt store is treated like an invalid credential
		log.Warn().Err(err).Str("token_file", s.Path).Msg("Stored credentials are unreadable")
		return nil, nil
	}
	return &token, nil
}

// Save implements TokenStore
func (s *FileTokenStore) Save(token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: refusing to store an empty token", common.ErrAuthentication)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to encode token: %v", common.ErrAuthentication, err)
	}

	if dir := filepath.Dir(s.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("%w: failed to create token directory %s: %v", common.ErrAuthentication, dir, err)
		}
	}

	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("%w: failed to write token file %s: %v", common.ErrAuthentication, s.Path, err)
	}

	log.Debug().Str("token_file", s.Path).Msg("Stored credentials")
	return nil
}

// persistingTokenSource writes every new token handed out by base back to the store
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func newPersistingTokenSource(base oauth2.TokenSource, store TokenStore, current *oauth2.Token) *persistingTokenSource {
	p := &persistingTokenSource{base: base, store: store}
	if current != nil {
		p.last = current.AccessToken
	}
	return p
}

// Token implements oauth2.TokenSource
func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if token.AccessToken != p.last {
		if err := p.store.Save(token); err != nil {
			return nil, err
		}
		p.last = token.AccessToken
		log.Info().Time("expiry", token.Expiry).Msg("Refreshed credentials stored")
	}
	return token, nil
}
