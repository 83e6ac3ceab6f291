package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"meingenie/internal/domain"
)

const (
	defaultRegisterTimeout = 15 * time.Second
	minPasswordLength      = 8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthAPI is the backend contract for sign-in and registration.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (domain.TokenPair, error)
	ExchangeGoogleCode(ctx context.Context, code string) (domain.TokenPair, error)
	Register(ctx context.Context, in domain.Registration) (domain.TokenPair, error)
	RequestPasswordReset(ctx context.Context, email string) error
}

// CredentialWriter persists the token pair after sign-in.
type CredentialWriter interface {
	Set(ctx context.Context, pair domain.TokenPair) error
	Clear(ctx context.Context) error
}

// RegisterInput is what the registration form collects.
type RegisterInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Authenticator validates credentials locally, calls the backend once per
// submission and stores the resulting tokens.
type Authenticator struct {
	api             AuthAPI
	creds           CredentialWriter
	onSuccess       func(domain.TokenPair)
	notifier        Notifier
	logger          *slog.Logger
	registerTimeout time.Duration

	busy atomic.Bool
}

type AuthOption func(*Authenticator)

// WithOnAuthenticated registers the callback run once per successful sign-in.
func WithOnAuthenticated(fn func(domain.TokenPair)) AuthOption {
	return func(a *Authenticator) { a.onSuccess = fn }
}

func WithAuthNotifier(n Notifier) AuthOption {
	return func(a *Authenticator) { a.notifier = n }
}

func WithAuthLogger(l *slog.Logger) AuthOption {
	return func(a *Authenticator) { a.logger = l }
}

func WithRegisterTimeout(d time.Duration) AuthOption {
	return func(a *Authenticator) {
		if d > 0 {
			a.registerTimeout = d
		}
	}
}

func NewAuthenticator(api AuthAPI, creds CredentialWriter, opts ...AuthOption) (*Authenticator, error) {
	if api == nil {
		return nil, errors.New("usecase: auth api must not be nil")
	}
	if creds == nil {
		return nil, errors.New("usecase: credential writer must not be nil")
	}
	a := &Authenticator{
		api:             api,
		creds:           creds,
		logger:          slog.Default(),
		registerTimeout: defaultRegisterTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.notifier = notifierOrNop(a.notifier)
	return a, nil
}

// ValidateLogin returns per-field messages for a login form, or nil.
func ValidateLogin(email, password string) map[string]string {
	fields := map[string]string{}
	validateEmail(fields, email)
	if password == "" {
		fields["password"] = "Please enter your password."
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ValidateRegister returns per-field messages for a registration form, or nil.
func ValidateRegister(in RegisterInput) map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(in.FullName) == "" {
		fields["fullName"] = "Please enter your full name."
	}
	validateEmail(fields, in.Email)
	switch {
	case in.Password == "":
		fields["password"] = "Please enter a password."
	case len([]rune(in.Password)) < minPasswordLength:
		fields["password"] = "The password must be at least 8 characters long."
	}
	if in.ConfirmPassword != in.Password {
		fields["confirmPassword"] = "The passwords do not match."
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func validateEmail(fields map[string]string, email string) {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		fields["email"] = "Please enter your email address."
	case !emailPattern.MatchString(email):
		fields["email"] = "Please enter a valid email address."
	}
}

// Login signs in with email and password.
func (a *Authenticator) Login(ctx context.Context, email, password string) error {
	if fields := ValidateLogin(email, password); fields != nil {
		return validationError(fields)
	}
	return a.submit(ctx, "login", func(ctx context.Context) (domain.TokenPair, error) {
		return a.api.Login(ctx, strings.TrimSpace(email), password)
	})
}

// LoginWithGoogle completes the federated flow with an authorization code.
func (a *Authenticator) LoginWithGoogle(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return validationError(map[string]string{"code": "Google sign-in did not return a code."})
	}
	return a.submit(ctx, "google", func(ctx context.Context) (domain.TokenPair, error) {
		return a.api.ExchangeGoogleCode(ctx, code)
	})
}

// Register creates an account. The request is abandoned after the register
// timeout and reported as ErrorTimeout.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) error {
	if fields := ValidateRegister(in); fields != nil {
		return validationError(fields)
	}
	return a.submit(ctx, "register", func(ctx context.Context) (domain.TokenPair, error) {
		ctx, cancel := context.WithTimeout(ctx, a.registerTimeout)
		defer cancel()
		return a.api.Register(ctx, domain.Registration{
			FullName:        strings.TrimSpace(in.FullName),
			Email:           strings.TrimSpace(in.Email),
			Password:        in.Password,
			ConfirmPassword: in.ConfirmPassword,
		})
	})
}

// RequestPasswordReset asks the backend to email a reset link.
func (a *Authenticator) RequestPasswordReset(ctx context.Context, email string) error {
	fields := map[string]string{}
	validateEmail(fields, email)
	if len(fields) > 0 {
		return validationError(fields)
	}
	if !a.busy.CompareAndSwap(false, true) {
		return newError(ErrorBusy, "submission_in_flight", nil)
	}
	defer a.busy.Store(false)

	if err := a.api.RequestPasswordReset(ctx, strings.TrimSpace(email)); err != nil {
		ue := a.authFailure("password_reset", err)
		notifyError(a.notifier, ue, messageFor(ue))
		return ue
	}
	a.notifier.Notify(Notice{Level: NoticeSuccess, Text: "If the address is registered, a reset link is on its way."})
	return nil
}

// Logout forgets the stored tokens.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.creds.Clear(ctx); err != nil {
		return newError(ErrorAuth, "logout", err)
	}
	return nil
}

func (a *Authenticator) submit(ctx context.Context, flow string, call func(context.Context) (domain.TokenPair, error)) error {
	if !a.busy.CompareAndSwap(false, true) {
		return newError(ErrorBusy, "submission_in_flight", nil)
	}
	defer a.busy.Store(false)

	pair, err := call(ctx)
	if err != nil {
		ue := a.authFailure(flow, err)
		a.logger.Info("authentication failed", "flow", flow, "code", ue.Code)
		notifyError(a.notifier, ue, messageFor(ue))
		return ue
	}
	if err := a.creds.Set(ctx, pair); err != nil {
		a.logger.Error("storing credentials failed", "flow", flow, "err", err)
		return newError(ErrorAuth, flow+"_store_tokens", err)
	}
	if a.onSuccess != nil {
		a.onSuccess(pair)
	}
	return nil
}

// authFailure maps a backend failure to AUTH_ERROR (server answered),
// TIMEOUT or NETWORK_ERROR, carrying server field errors along.
func (a *Authenticator) authFailure(flow string, err error) *Error {
	ue := classify(ErrorAuth, flow, err)
	if ue.Code == ErrorAuth {
		_, fields := serverDetails(err)
		if len(fields) > 0 {
			ue.Fields = fields
		}
	}
	return ue
}

// messageFor is the form-level text shown for an auth failure.
func messageFor(ue *Error) string {
	switch ue.Code {
	case ErrorTimeout:
		return "The server took too long to respond. Please try again later."
	case ErrorNetwork:
		return "The server could not be reached. Check your connection."
	}
	if detail, _ := serverDetails(ue.Err); detail != "" {
		return detail
	}
	if status, ok := upstreamStatusCode(ue.Err); ok && (status == http.StatusUnauthorized || status == http.StatusBadRequest) {
		return "Email or password is incorrect."
	}
	return "Sign-in failed. Please try again."
}
