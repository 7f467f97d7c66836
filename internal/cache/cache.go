package cache

import (
	"context"
	"sync"
	"time"

	"salonpos/backend/internal/domain"
)

// CatalogCache holds the categories and services snapshot read by every sale
// screen. Admin writes call Invalidate.
type CatalogCache interface {
	Get(ctx context.Context) (*domain.Catalog, bool, error)
	Set(ctx context.Context, value *domain.Catalog, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Revocations remembers access token ids that were logged out before they
// expired.
type Revocations interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context) (*domain.Catalog, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ *domain.Catalog, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context) error {
	return nil
}

type MemoryRevocations struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRevocations) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, expiry := range r.entries {
		if !expiry.After(now) {
			delete(r.entries, id)
		}
	}
	if until.After(now) {
		r.entries[tokenID] = until
	}
	return nil
}

func (r *MemoryRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, ok := r.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !expiry.After(r.now()) {
		delete(r.entries, tokenID)
		return false, nil
	}
	return true, nil
}
