// Package oauth runs the Google authorization-code flow for a terminal
// client. The consent URL redirects to a short-lived loopback listener which
// hands the code back to the caller; the backend exchanges it for tokens.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	GoogleAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"
	callbackPath  = "/callback"
)

var defaultScopes = []string{"openid", "email", "profile"}

// ErrDenied is returned when the provider redirects back with an error.
var ErrDenied = errors.New("oauth: authorization denied")

// Flow obtains one authorization code per AuthCode call.
type Flow struct {
	clientID string
	addr     string
	authURL  string
	scopes   []string
	open     func(ctx context.Context, consentURL string) error
	newState func() string
	logger   *slog.Logger
}

type Option func(*Flow)

// WithOpener sets how the consent URL is presented (printed, browser...).
func WithOpener(open func(ctx context.Context, consentURL string) error) Option {
	return func(f *Flow) { f.open = open }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// NewFlow listens on addr (host:port, port 0 picks one) for the redirect.
func NewFlow(clientID, addr string, opts ...Option) (*Flow, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("oauth: client id is required")
	}
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("oauth: listen address is required")
	}
	f := &Flow{
		clientID: clientID,
		addr:     addr,
		authURL:  GoogleAuthURL,
		scopes:   defaultScopes,
		newState: uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.open == nil {
		f.open = func(_ context.Context, consentURL string) error {
			f.logger.Info("open this URL to sign in with Google", "url", consentURL)
			return nil
		}
	}
	return f, nil
}

type result struct {
	code string
	err  error
}

// AuthCode presents the consent URL and blocks until the redirect arrives or
// ctx ends.
func (f *Flow) AuthCode(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", f.addr)
	if err != nil {
		return "", fmt.Errorf("oauth: listen on %s: %w", f.addr, err)
	}
	redirectURI := "http://" + ln.Addr().String() + callbackPath
	state := f.newState()

	results := make(chan result, 1)
	srv := &http.Server{
		Handler:           f.router(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Warn("oauth callback server stopped", "err", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := f.open(ctx, f.consentURL(redirectURI, state)); err != nil {
		return "", fmt.Errorf("oauth: present consent url: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-results:
		return r.code, r.err
	}
}

func (f *Flow) consentURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", f.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(f.scopes, " "))
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("prompt", "select_account")
	return f.authURL + "?" + q.Encode()
}

func (f *Flow) router(state string, results chan<- result) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(callbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "Sign-in request did not match. Please start again.", http.StatusBadRequest)
			return
		}

		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrDenied, q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("oauth: redirect carried no code")
		default:
			res.code = q.Get("code")
		}

		select {
		case results <- res:
		default:
			// a result was already delivered
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Sign-in was not completed. You can close this window."))
			return
		}
		_, _ = w.Write([]byte("Signed in. You can close this window and return to the terminal."))
	})
	return r
}
