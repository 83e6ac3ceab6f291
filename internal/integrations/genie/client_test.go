package genie

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meingenie/internal/domain"
)

type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
	return m
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient("not a url")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid base URL")
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c, err := NewClient("https://api.example.com/")
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com/login/", c.endpoint("/login/"))
}

// ---------------------------------------------------------------------------
// Authorization header
// ---------------------------------------------------------------------------

func TestClient_AttachesBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTokenSource(staticTokens("tok-1")))
	_, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
}

func TestClient_MissingTokenSendsNoHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTokenSource(staticTokens("")))
	_, err := c.GetProfile(context.Background())
	require.Error(t, err)

	var statusErr *HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 401, statusErr.HTTPStatusCode())
	require.Equal(t, "Authentication credentials were not provided.", statusErr.Detail)
}

func TestClient_LoginIsUnauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"access":"a","refresh":"r"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTokenSource(staticTokens("stale")))
	_, err := c.Login(context.Background(), "a@b.de", "secret123")
	require.NoError(t, err)
}

// ---------------------------------------------------------------------------
// Error bodies
// ---------------------------------------------------------------------------

func TestNewHTTPStatusError_FieldErrors(t *testing.T) {
	e := newHTTPStatusError(400, "u", []byte(`{"email":["user with this email already exists."],"password":"too short","non_field_errors":["nope"]}`))
	require.Equal(t, "nope", e.Detail)
	require.Equal(t, "user with this email already exists.", e.Fields["email"])
	require.Equal(t, "too short", e.Fields["password"])
	require.NotContains(t, e.Fields, "non_field_errors")
}

func TestNewHTTPStatusError_NonJSONBody(t *testing.T) {
	e := newHTTPStatusError(502, "u", []byte(`<html>bad gateway</html>`))
	require.Empty(t, e.Detail)
	require.Nil(t, e.Fields)
	require.Contains(t, e.Error(), "502")
}

func TestClient_NetworkError(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1", WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "a@b.de", "pw")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}

// ---------------------------------------------------------------------------
// Auth endpoints
// ---------------------------------------------------------------------------

func TestClient_Login_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/login/", r.URL.Path)
		body := decodeBody(t, r)
		require.Equal(t, "anna@example.de", body["email"])
		require.Equal(t, "pw12345678", body["password"])
		_, _ = w.Write([]byte(`{"access":"acc","refresh":"ref"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	pair, err := c.Login(context.Background(), "anna@example.de", "pw12345678")
	require.NoError(t, err)
	require.Equal(t, domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, pair)
}

func TestClient_Login_NoAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Login(context.Background(), "a@b.de", "pw")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no access token")
}

func TestClient_ExchangeGoogleCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/google-auth-code/", r.URL.Path)
		require.Equal(t, "code-xyz", decodeBody(t, r)["code"])
		_, _ = w.Write([]byte(`{"access":"g-acc","refresh":"g-ref"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	pair, err := c.ExchangeGoogleCode(context.Background(), "code-xyz")
	require.NoError(t, err)
	require.Equal(t, "g-acc", pair.AccessToken)
}

func TestClient_Register(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/register/", r.URL.Path)
		body := decodeBody(t, r)
		require.Equal(t, "Anna Schmidt", body["fullName"])
		require.Equal(t, "pw12345678", body["confirmPassword"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"access":"acc","refresh":"ref"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	pair, err := c.Register(context.Background(), domain.Registration{
		FullName: "Anna Schmidt", Email: "anna@example.de", Password: "pw12345678", ConfirmPassword: "pw12345678",
	})
	require.NoError(t, err)
	require.Equal(t, "ref", pair.RefreshToken)
}

func TestClient_RequestPasswordReset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/users/password-reset/", r.URL.Path)
		require.Equal(t, "anna@example.de", decodeBody(t, r)["email"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.RequestPasswordReset(context.Background(), "anna@example.de"))
}

// ---------------------------------------------------------------------------
// Form-chat endpoints
// ---------------------------------------------------------------------------

func TestClient_StartSession_Question(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form-chat/sessions", r.URL.Path)
		body := decodeBody(t, r)
		require.Equal(t, "Visa Application Form", body["description"])
		require.Equal(t, "doc-123", body["documentId"])
		_, _ = w.Write([]byte(`{"sessionId":"s1","message":"What is your full name?","done":false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	start, err := c.StartSession(context.Background(), "Visa Application Form", "doc-123")
	require.NoError(t, err)
	require.Equal(t, "s1", start.SessionID)
	require.Equal(t, domain.Question{Text: "What is your full name?"}, start.Update)
}

func TestClient_StartSession_MissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"hi","done":false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.StartSession(context.Background(), "x", "d")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no sessionId")
}

func TestClient_SendMessage_Completed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form-chat/sessions/s1/message", r.URL.Path)
		require.Equal(t, "John Smith", decodeBody(t, r)["text"])
		_, _ = w.Write([]byte(`{"message":"All set!","done":true,"schema":{"name":"John Smith"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	upd, err := c.SendMessage(context.Background(), "s1", "John Smith")
	require.NoError(t, err)
	require.Equal(t, domain.Completed{Text: "All set!", Schema: domain.FormSchema{"name": "John Smith"}}, upd)
}

func TestClient_SendMessage_DoneWithoutSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Done","done":true}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	upd, err := c.SendMessage(context.Background(), "s1", "x")
	require.NoError(t, err)
	completed, ok := upd.(domain.Completed)
	require.True(t, ok)
	require.NotNil(t, completed.Schema)
	require.Empty(t, completed.Schema)
}

func TestClient_SendMessage_EscapesSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form-chat/sessions/a%2Fb/message", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"message":"ok","done":false}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.SendMessage(context.Background(), "a/b", "x")
	require.NoError(t, err)
}

func TestClient_SendMessage_500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.SendMessage(context.Background(), "s1", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestClient_ConfirmSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/form-chat/sessions/s1/confirm", r.URL.Path)
		body := decodeBody(t, r)
		require.Equal(t, "doc-123", body["documentId"])
		require.Equal(t, map[string]any{"name": "John Smith"}, body["schema"])
		_, _ = w.Write([]byte(`{"pdfUrl":"https://files.example/f.pdf","name":"visa.pdf"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	form, err := c.ConfirmSchema(context.Background(), "s1", domain.FormSchema{"name": "John Smith"}, "doc-123")
	require.NoError(t, err)
	require.Equal(t, domain.FilledForm{PDFURL: "https://files.example/f.pdf", Name: "visa.pdf"}, form)
}

func TestClient_ConfirmSchema_MissingPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"visa.pdf"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.ConfirmSchema(context.Background(), "s1", nil, "doc-123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no pdfUrl")
}

// ---------------------------------------------------------------------------
// Voice transcription
// ---------------------------------------------------------------------------

func TestClient_Transcribe_Multipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/voice/", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "de", r.FormValue("language"))
		f, hdr, err := r.FormFile("audio")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "recording.wav", hdr.Filename)
		require.Equal(t, "audio/wav", hdr.Header.Get("Content-Type"))
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, []byte("RIFFdata"), data)
		_, _ = w.Write([]byte(`{"text":"Hallo Welt"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithTokenSource(staticTokens("tok")))
	text, err := c.Transcribe(context.Background(), domain.AudioClip{Data: []byte("RIFFdata"), MIMEType: "audio/wav"}, "de")
	require.NoError(t, err)
	require.Equal(t, "Hallo Welt", text)
}

func TestClient_Transcribe_EmptyClip(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = c.Transcribe(context.Background(), domain.AudioClip{}, "de")
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty")
}

func TestClient_Transcribe_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Transcribe(context.Background(), domain.AudioClip{Data: []byte{1}}, "en")
	require.Error(t, err)
	require.Contains(t, err.Error(), "422")
}

// ---------------------------------------------------------------------------
// Profile and documents
// ---------------------------------------------------------------------------

func TestClient_GetProfile_Nests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/api/users/profile/", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u1","first_name":"Anna","last_name":"Schmidt","email":"anna@example.de","city":"Berlin","emergency_contact_name":"Max","language":"de","notifications_enabled":true,"profile_image":"https://img/x.png"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	p, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Anna", p.Personal.FirstName)
	require.Equal(t, "Berlin", p.Address.City)
	require.Equal(t, "Max", p.EmergencyContact.Name)
	require.True(t, p.Preferences.NotificationsEnabled)
	require.Equal(t, "https://img/x.png", p.ProfileImage)
}

func TestClient_UpdateProfile_Patch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		body := decodeBody(t, r)
		require.Equal(t, "Hamburg", body["city"])
		require.NotContains(t, body, "profile_image")
		_, _ = w.Write([]byte(`{"id":"u1","city":"Hamburg"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	p, err := c.UpdateProfile(context.Background(), domain.FlatProfile{City: "Hamburg"})
	require.NoError(t, err)
	require.Equal(t, "Hamburg", p.Address.City)
}

func TestClient_ListDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"d1","name":"Pass.pdf","file_url":"https://f/1","uploaded_at":"2026-01-02T03:04:05Z"}]`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	docs, err := c.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, "Pass.pdf", docs[0].Name)
	require.Equal(t, 2026, docs[0].UploadedAt.Year())
}

func TestClient_RenameAndDeleteDocument(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPatch {
			require.Equal(t, "Neu.pdf", decodeBody(t, r)["name"])
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	require.NoError(t, c.RenameDocument(context.Background(), "d1", "Neu.pdf"))
	require.NoError(t, c.DeleteDocument(context.Background(), "d1"))
	require.Equal(t, []string{"PATCH /api/users/documents/d1/", "DELETE /api/users/documents/d1/"}, calls)
}

func TestClient_DeleteDocument_EmptyID(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	require.NoError(t, err)
	require.Error(t, c.DeleteDocument(context.Background(), ""))
}
