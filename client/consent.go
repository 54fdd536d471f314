package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/researchaccelerator-hub/yt-analytics-report/common"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// LocalServerFlow runs the consent flow with a redirect to a temporary listener
// on the local machine. The first port in Ports that can be bound is used.
type LocalServerFlow struct {
	HostName string
	Ports    []int
	Out      io.Writer
}

type callbackResult struct {
	code string
	err  error
}

// Run implements ConsentFlow
func (f *LocalServerFlow) Run(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	listener, err := f.listen()
	if err != nil {
		return nil, err
	}

	port := listener.Addr().(*net.TCPAddr).Port
	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://%s:%d/", f.HostName, port)

	state := uuid.NewString()
	authURL := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Fprintf(outputOrStdout(f.Out), "\nYour browser has to be used to authorize this job. Go to the following link:\n\n    %s\n\n", authURL)
	log.Info().Str("redirect_url", flowCfg.RedirectURL).Msg("Waiting for the authorization redirect")

	results := make(chan callbackResult, 1)
	server := &http.Server{Handler: callbackHandler(state, results)}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Authorization callback server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var result callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: consent flow aborted: %v", common.ErrAuthentication, ctx.Err())
	case result = <-results:
	}

	if result.err != nil {
		return nil, result.err
	}

	token, err := flowCfg.Exchange(ctx, result.code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange authorization code: %v", common.ErrAuthentication, err)
	}
	log.Info().Msg("Authentication successful")
	return token, nil
}

func (f *LocalServerFlow) listen() (net.Listener, error) {
	var lastErr error
	for _, port := range f.Ports {
		listener, err := net.Listen("tcp", net.JoinHostPort(f.HostName, strconv.Itoa(port)))
		if err == nil {
			return listener, nil
		}
		lastErr = err
		log.Debug().Err(err).Int("port", port).Msg("Authorization port unavailable")
	}
	return nil, fmt.Errorf("%w: failed to start a local webserver on %s ports %v: %v (try --noauth_local_webserver)",
		common.ErrAuthentication, f.HostName, f.Ports, lastErr)
}

// callbackHandler accepts the first redirect carrying the expected state.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		query := r.URL.Query()
		var result callbackResult
		switch {
		case query.Get("error") != "":
			result.err = fmt.Errorf("%w: consent was rejected: %s", common.ErrAuthentication, query.Get("error"))
		case query.Get("state") != state:
			result.err = fmt.Errorf("%w: authorization state mismatch", common.ErrAuthentication)
		case query.Get("code") == "":
			result.err = fmt.Errorf("%w: authorization redirect has no code", common.ErrAuthentication)
		default:
			result.code = query.Get("code")
		}

		if result.err != nil {
			http.Error(w, "Authentication failed. You may close this window.", http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "The authentication flow has completed. You may close this window.")
		}

		select {
		case results <- result:
		default:
		}
	})
}

// ConsoleFlow prints the consent URL and reads the verification code from In.
// The redirect URL of the client secrets is used as is.
type ConsoleFlow struct {
	In  io.Reader
	Out io.Writer
}

// Run implements ConsentFlow
func (f *ConsoleFlow) Run(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL(uuid.NewString(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(outputOrStdout(f.Out), "\nGo to the following link in your browser:\n\n    %s\n\nEnter verification code: ", authURL)

	line, err := bufio.NewReader(f.In).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, fmt.Errorf("%w: failed to read verification code: %v", common.ErrAuthentication, err)
	}

	code := strings.TrimSpace(line)
	if code == "" {
		return nil, fmt.Errorf("%w: empty verification code", common.ErrAuthentication)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange verification code: %v", common.ErrAuthentication, err)
	}
	log.Info().Msg("Authentication successful")
	return token, nil
}

func outputOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
