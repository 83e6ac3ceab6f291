package genie

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"meingenie/internal/domain"
)

type startSessionRequest struct {
	Description string `json:"description"`
	DocumentID  string `json:"documentId"`
}

type sessionMessageRequest struct {
	Text string `json:"text"`
}

type confirmRequest struct {
	Schema     domain.FormSchema `json:"schema"`
	DocumentID string            `json:"documentId"`
}

// sessionResponse is the loosely-typed payload shared by start and message.
type sessionResponse struct {
	SessionID string            `json:"sessionId"`
	Message   string            `json:"message"`
	Done      bool              `json:"done"`
	Schema    domain.FormSchema `json:"schema"`
}

func (r sessionResponse) update() domain.SessionUpdate {
	if !r.Done {
		return domain.Question{Text: r.Message}
	}
	schema := r.Schema
	if schema == nil {
		schema = domain.FormSchema{}
	}
	return domain.Completed{Text: r.Message, Schema: schema}
}

func sessionPath(sessionID, action string) string {
	return "/form-chat/sessions/" + url.PathEscape(sessionID) + "/" + action
}

// StartSession opens a form-filling session for the given description.
func (c *Client) StartSession(ctx context.Context, description, documentID string) (domain.SessionStart, error) {
	var out sessionResponse
	in := startSessionRequest{Description: description, DocumentID: documentID}
	if err := c.doJSON(ctx, http.MethodPost, "/form-chat/sessions", true, in, &out); err != nil {
		return domain.SessionStart{}, err
	}
	if strings.TrimSpace(out.SessionID) == "" {
		return domain.SessionStart{}, errors.New("genie: session response carries no sessionId")
	}
	return domain.SessionStart{SessionID: out.SessionID, Update: out.update()}, nil
}

// SendMessage posts one user answer to an open session.
func (c *Client) SendMessage(ctx context.Context, sessionID, text string) (domain.SessionUpdate, error) {
	if sessionID == "" {
		return nil, errors.New("genie: session id must not be empty")
	}
	var out sessionResponse
	if err := c.doJSON(ctx, http.MethodPost, sessionPath(sessionID, "message"), true, sessionMessageRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return out.update(), nil
}

// ConfirmSchema submits the extracted schema and returns the generated PDF.
func (c *Client) ConfirmSchema(ctx context.Context, sessionID string, schema domain.FormSchema, documentID string) (domain.FilledForm, error) {
	if sessionID == "" {
		return domain.FilledForm{}, errors.New("genie: session id must not be empty")
	}
	var out domain.FilledForm
	in := confirmRequest{Schema: schema, DocumentID: documentID}
	if err := c.doJSON(ctx, http.MethodPost, sessionPath(sessionID, "confirm"), true, in, &out); err != nil {
		return domain.FilledForm{}, err
	}
	if out.PDFURL == "" {
		return domain.FilledForm{}, fmt.Errorf("genie: confirm response for session %q carries no pdfUrl", sessionID)
	}
	return out, nil
}
