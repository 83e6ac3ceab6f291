package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meingenie/internal/domain"
	"meingenie/internal/integrations/genie"
)

type mockAuthAPI struct {
	loginCalls    int
	googleCalls   int
	registerCalls int
	resetCalls    int

	pair     domain.TokenPair
	err      error
	register domain.Registration
	email    string
	// blockRegister waits for ctx to end, like a backend that never answers.
	blockRegister bool
}

func (m *mockAuthAPI) Login(_ context.Context, email, _ string) (domain.TokenPair, error) {
	m.loginCalls++
	m.email = email
	return m.pair, m.err
}

func (m *mockAuthAPI) ExchangeGoogleCode(context.Context, string) (domain.TokenPair, error) {
	m.googleCalls++
	return m.pair, m.err
}

func (m *mockAuthAPI) Register(ctx context.Context, in domain.Registration) (domain.TokenPair, error) {
	m.registerCalls++
	m.register = in
	if m.blockRegister {
		<-ctx.Done()
		return domain.TokenPair{}, ctx.Err()
	}
	return m.pair, m.err
}

func (m *mockAuthAPI) RequestPasswordReset(_ context.Context, email string) error {
	m.resetCalls++
	m.email = email
	return m.err
}

type memCredentials struct {
	pair     domain.TokenPair
	sets     int
	clears   int
	setErr   error
	clearErr error
}

func (m *memCredentials) Set(_ context.Context, pair domain.TokenPair) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.pair = pair
	return nil
}

func (m *memCredentials) Clear(context.Context) error {
	if m.clearErr != nil {
		return m.clearErr
	}
	m.clears++
	m.pair = domain.TokenPair{}
	return nil
}

var testPair = domain.TokenPair{AccessToken: "acc-1", RefreshToken: "ref-1"}

func newTestAuth(t *testing.T, api AuthAPI, creds CredentialWriter, opts ...AuthOption) (*Authenticator, *int, *recordingNotifier) {
	t.Helper()
	successes := 0
	notes := &recordingNotifier{}
	opts = append([]AuthOption{
		WithAuthNotifier(notes),
		WithOnAuthenticated(func(domain.TokenPair) { successes++ }),
	}, opts...)
	a, err := NewAuthenticator(api, creds, opts...)
	require.NoError(t, err)
	return a, &successes, notes
}

// ----------------------------------------------------------------------------
// Login
// ----------------------------------------------------------------------------

func TestLogin_StoresTokensAndCallsBackOnce(t *testing.T) {
	api := &mockAuthAPI{pair: testPair}
	creds := &memCredentials{}
	a, successes, _ := newTestAuth(t, api, creds)

	require.NoError(t, a.Login(context.Background(), "  anna@example.de ", "geheim123"))
	require.Equal(t, 1, api.loginCalls)
	require.Equal(t, "anna@example.de", api.email)
	require.Equal(t, testPair, creds.pair)
	require.Equal(t, 1, creds.sets)
	require.Equal(t, 1, *successes)
}

func TestLogin_ValidationFailsWithoutNetwork(t *testing.T) {
	api := &mockAuthAPI{pair: testPair}
	creds := &memCredentials{}
	a, successes, _ := newTestAuth(t, api, creds)

	err := a.Login(context.Background(), "anna@example.de", "")
	ue := expectUsecaseError(t, err, ErrorValidation, "invalid_input")
	require.Contains(t, ue.Fields, "password")
	require.NotContains(t, ue.Fields, "email")

	err = a.Login(context.Background(), "not-an-email", "x")
	ue = expectUsecaseError(t, err, ErrorValidation, "")
	require.Contains(t, ue.Fields, "email")

	require.Zero(t, api.loginCalls)
	require.Zero(t, creds.sets)
	require.Zero(t, *successes)
}

func TestLogin_ServerRejectionKeepsSignedOut(t *testing.T) {
	api := &mockAuthAPI{err: &genie.HTTPStatusError{
		StatusCode: http.StatusUnauthorized,
		Detail:     "No active account found with the given credentials",
	}}
	creds := &memCredentials{}
	a, successes, notes := newTestAuth(t, api, creds)

	err := a.Login(context.Background(), "anna@example.de", "falsch")
	expectUsecaseError(t, err, ErrorAuth, "login")
	require.Zero(t, creds.sets)
	require.Zero(t, *successes)
	require.Len(t, notes.notices, 1)
	require.Equal(t, "No active account found with the given credentials", notes.notices[0].Text)
}

func TestLogin_NetworkFailure(t *testing.T) {
	api := &mockAuthAPI{err: errors.New("dial tcp: connection refused")}
	a, _, notes := newTestAuth(t, api, &memCredentials{})

	err := a.Login(context.Background(), "anna@example.de", "geheim123")
	ue := expectUsecaseError(t, err, ErrorNetwork, "login")
	require.Equal(t, KindNetwork, ue.Kind())
	require.Equal(t, []ErrorCode{ErrorNetwork}, notes.codes())
}

func TestLogin_StoreFailureSkipsCallback(t *testing.T) {
	api := &mockAuthAPI{pair: testPair}
	a, successes, _ := newTestAuth(t, api, &memCredentials{setErr: errors.New("disk full")})

	err := a.Login(context.Background(), "anna@example.de", "geheim123")
	expectUsecaseError(t, err, ErrorAuth, "login_store_tokens")
	require.Zero(t, *successes)
}

func TestLogin_BusyWhileSubmitting(t *testing.T) {
	a, _, _ := newTestAuth(t, &mockAuthAPI{pair: testPair}, &memCredentials{})
	a.busy.Store(true)
	expectUsecaseError(t, a.Login(context.Background(), "anna@example.de", "x"), ErrorBusy, "submission_in_flight")
}

func TestLoginWithGoogle(t *testing.T) {
	api := &mockAuthAPI{pair: testPair}
	creds := &memCredentials{}
	a, successes, _ := newTestAuth(t, api, creds)

	expectUsecaseError(t, a.LoginWithGoogle(context.Background(), " "), ErrorValidation, "")
	require.Zero(t, api.googleCalls)

	require.NoError(t, a.LoginWithGoogle(context.Background(), "4/0Ab-code"))
	require.Equal(t, 1, api.googleCalls)
	require.Equal(t, testPair, creds.pair)
	require.Equal(t, 1, *successes)
}

// ----------------------------------------------------------------------------
// Register
// ----------------------------------------------------------------------------

func TestValidateRegister(t *testing.T) {
	fields := ValidateRegister(RegisterInput{
		FullName:        " ",
		Email:           "anna@",
		Password:        "short",
		ConfirmPassword: "other",
	})
	require.Equal(t, []string{"confirmPassword", "email", "fullName", "password"}, sortedKeys(fields))

	require.Nil(t, ValidateRegister(RegisterInput{
		FullName:        "Anna Schmidt",
		Email:           "anna@example.de",
		Password:        "langesPasswort",
		ConfirmPassword: "langesPasswort",
	}))
}

func TestRegister_Success(t *testing.T) {
	api := &mockAuthAPI{pair: testPair}
	creds := &memCredentials{}
	a, successes, _ := newTestAuth(t, api, creds)

	err := a.Register(context.Background(), RegisterInput{
		FullName:        " Anna Schmidt ",
		Email:           "anna@example.de",
		Password:        "langesPasswort",
		ConfirmPassword: "langesPasswort",
	})
	require.NoError(t, err)
	require.Equal(t, "Anna Schmidt", api.register.FullName)
	require.Equal(t, "langesPasswort", api.register.ConfirmPassword)
	require.Equal(t, 1, *successes)
	require.Equal(t, testPair, creds.pair)
}

func TestRegister_ServerFieldErrors(t *testing.T) {
	api := &mockAuthAPI{err: &genie.HTTPStatusError{
		StatusCode: http.StatusBadRequest,
		Fields:     map[string]string{"email": "user with this email already exists."},
	}}
	a, successes, _ := newTestAuth(t, api, &memCredentials{})

	err := a.Register(context.Background(), RegisterInput{
		FullName:        "Anna",
		Email:           "anna@example.de",
		Password:        "langesPasswort",
		ConfirmPassword: "langesPasswort",
	})
	ue := expectUsecaseError(t, err, ErrorAuth, "register")
	require.Equal(t, "user with this email already exists.", ue.Fields["email"])
	require.Zero(t, *successes)
}

func TestRegister_Timeout(t *testing.T) {
	api := &mockAuthAPI{blockRegister: true}
	a, successes, notes := newTestAuth(t, api, &memCredentials{}, WithRegisterTimeout(20*time.Millisecond))

	err := a.Register(context.Background(), RegisterInput{
		FullName:        "Anna",
		Email:           "anna@example.de",
		Password:        "langesPasswort",
		ConfirmPassword: "langesPasswort",
	})
	expectUsecaseError(t, err, ErrorTimeout, "register")
	require.Zero(t, *successes)
	require.Len(t, notes.notices, 1)
	require.Contains(t, notes.notices[0].Text, "too long")
}

// ----------------------------------------------------------------------------
// Password reset and logout
// ----------------------------------------------------------------------------

func TestRequestPasswordReset(t *testing.T) {
	api := &mockAuthAPI{}
	a, successes, notes := newTestAuth(t, api, &memCredentials{})

	expectUsecaseError(t, a.RequestPasswordReset(context.Background(), ""), ErrorValidation, "")
	require.Zero(t, api.resetCalls)

	require.NoError(t, a.RequestPasswordReset(context.Background(), "anna@example.de"))
	require.Equal(t, 1, api.resetCalls)
	require.Equal(t, "anna@example.de", api.email)
	require.Equal(t, []NoticeLevel{NoticeSuccess}, notes.levels())
	require.Zero(t, *successes)
}

func TestLogout(t *testing.T) {
	creds := &memCredentials{pair: testPair}
	a, _, _ := newTestAuth(t, &mockAuthAPI{}, creds)
	require.NoError(t, a.Logout(context.Background()))
	require.True(t, creds.pair.Empty())
	require.Equal(t, 1, creds.clears)

	creds.clearErr = errors.New("boom")
	expectUsecaseError(t, a.Logout(context.Background()), ErrorAuth, "logout")
}

func TestNewAuthenticator_Validates(t *testing.T) {
	_, err := NewAuthenticator(nil, &memCredentials{})
	require.Error(t, err)
	_, err = NewAuthenticator(&mockAuthAPI{}, nil)
	require.Error(t, err)
}
