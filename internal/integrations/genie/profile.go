package genie

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"meingenie/internal/domain"
)

type renameRequest struct {
	Name string `json:"name"`
}

func documentPath(id string) string {
	return "/api/users/documents/" + url.PathEscape(id) + "/"
}

// GetProfile fetches the signed-in user's profile.
func (c *Client) GetProfile(ctx context.Context) (domain.UserProfile, error) {
	var out domain.FlatProfile
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/profile/", true, nil, &out); err != nil {
		return domain.UserProfile{}, err
	}
	return out.Nest(), nil
}

// UpdateProfile sends a partial update and returns the stored profile.
func (c *Client) UpdateProfile(ctx context.Context, patch domain.FlatProfile) (domain.UserProfile, error) {
	var out domain.FlatProfile
	if err := c.doJSON(ctx, http.MethodPatch, "/api/users/profile/", true, patch, &out); err != nil {
		return domain.UserProfile{}, err
	}
	return out.Nest(), nil
}

// ListDocuments returns the user's stored documents.
func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var out []domain.Document
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/documents/", true, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Document{}
	}
	return out, nil
}

// RenameDocument changes a document's display name.
func (c *Client) RenameDocument(ctx context.Context, id, name string) error {
	if id == "" {
		return errors.New("genie: document id must not be empty")
	}
	return c.doJSON(ctx, http.MethodPatch, documentPath(id), true, renameRequest{Name: name}, nil)
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("genie: document id must not be empty")
	}
	return c.doJSON(ctx, http.MethodDelete, documentPath(id), true, nil, nil)
}
