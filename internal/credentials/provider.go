// Package credentials owns the signed-in user's token pair. A Provider is
// created once, loaded at start, written on login and cleared on logout; every
// authenticated request reads the access token from it.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"meingenie/internal/domain"
	"meingenie/internal/repository"
)

// Store persists a token pair. Load returns repository.ErrNotFound when
// nothing is stored.
type Store interface {
	Load(ctx context.Context) (domain.TokenPair, error)
	Save(ctx context.Context, pair domain.TokenPair) error
	Clear(ctx context.Context) error
}

// Provider caches the stored pair in memory.
type Provider struct {
	store Store

	mu   sync.RWMutex
	pair domain.TokenPair
}

func NewProvider(store Store) (*Provider, error) {
	if store == nil {
		return nil, errors.New("credentials: store must not be nil")
	}
	return &Provider{store: store}, nil
}

// Load reads the stored pair. A missing pair leaves the provider signed out.
func (p *Provider) Load(ctx context.Context) error {
	pair, err := p.store.Load(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		pair = domain.TokenPair{}
	} else if err != nil {
		return fmt.Errorf("credentials: load: %w", err)
	}
	p.mu.Lock()
	p.pair = pair
	p.mu.Unlock()
	return nil
}

// Set persists pair and makes it current.
func (p *Provider) Set(ctx context.Context, pair domain.TokenPair) error {
	if pair.Empty() {
		return errors.New("credentials: access token must not be empty")
	}
	if err := p.store.Save(ctx, pair); err != nil {
		return fmt.Errorf("credentials: save: %w", err)
	}
	p.mu.Lock()
	p.pair = pair
	p.mu.Unlock()
	return nil
}

// Clear forgets the pair in memory and in the store.
func (p *Provider) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.pair = domain.TokenPair{}
	p.mu.Unlock()
	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("credentials: clear: %w", err)
	}
	return nil
}

// AccessToken returns the current access token, or "" when signed out.
func (p *Provider) AccessToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pair.AccessToken
}

func (p *Provider) Pair() domain.TokenPair {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pair
}

func (p *Provider) SignedIn() bool {
	return p.AccessToken() != ""
}
