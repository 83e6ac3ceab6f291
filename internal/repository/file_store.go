package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"meingenie/internal/domain"
)

// DefaultProfile is the credential profile used when none is configured.
const DefaultProfile = "default"

// ErrNotFound is returned by Load when no credentials are stored.
var ErrNotFound = errors.New("repository: credentials not found")

// FileStore keeps the token pair in a JSON file readable only by the owner.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository: credentials path must not be empty")
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath is $XDG_CONFIG_HOME/meingenie/credentials.json (or the
// platform equivalent).
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("repository: resolve config dir: %w", err)
	}
	return filepath.Join(dir, "meingenie", "credentials.json"), nil
}

func (s *FileStore) Load(_ context.Context) (domain.TokenPair, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.TokenPair{}, ErrNotFound
	}
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("repository: read credentials: %w", err)
	}
	var pair domain.TokenPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return domain.TokenPair{}, fmt.Errorf("repository: decode credentials: %w", err)
	}
	if pair.Empty() {
		return domain.TokenPair{}, ErrNotFound
	}
	return pair, nil
}

// Save writes the pair atomically via a temp file in the same directory.
func (s *FileStore) Save(_ context.Context, pair domain.TokenPair) error {
	if pair.Empty() {
		return errors.New("repository: Save: access token is required")
	}
	raw, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("repository: encode credentials: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("repository: create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("repository: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("repository: chmod credentials: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("repository: write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("repository: close credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("repository: replace credentials: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("repository: remove credentials: %w", err)
	}
	return nil
}
