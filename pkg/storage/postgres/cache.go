package postgres

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/keygate/keygate/pkg/users"
)

// CacheStats receives cache hit/miss notifications.
type CacheStats interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// CachedUserStore wraps a users.Store with an in-process LRU cache keyed by
// user id. Writes and deletes evict; list queries always hit the backing
// store. Email lookups populate the by-id cache on the way out.
type CachedUserStore struct {
	users.Store
	byID  *lru.Cache[int64, *users.User]
	stats CacheStats
}

// NewCachedUserStore wraps store with an LRU of the given size.
func NewCachedUserStore(store users.Store, size int) (*CachedUserStore, error) {
	cache, err := lru.New[int64, *users.User](size)
	if err != nil {
		return nil, err
	}
	return &CachedUserStore{Store: store, byID: cache}, nil
}

// WithStats attaches a hit/miss recorder and returns the store for chaining.
func (s *CachedUserStore) WithStats(stats CacheStats) *CachedUserStore {
	s.stats = stats
	return s
}

func cachedCopy(u *users.User) *users.User {
	cp := *u
	if u.EmailCodeExpiresAt != nil {
		t := *u.EmailCodeExpiresAt
		cp.EmailCodeExpiresAt = &t
	}
	return &cp
}

// Save writes through and evicts the cached entry.
func (s *CachedUserStore) Save(ctx context.Context, user *users.User) (*users.User, error) {
	saved, err := s.Store.Save(ctx, user)
	if err != nil {
		return nil, err
	}
	s.byID.Remove(saved.ID)
	return saved, nil
}

// GetByID serves from cache when possible.
func (s *CachedUserStore) GetByID(ctx context.Context, id int64) (*users.User, error) {
	if cached, ok := s.byID.Get(id); ok {
		s.recordHit()
		return cachedCopy(cached), nil
	}
	s.recordMiss()

	user, err := s.Store.GetByID(ctx, id)
	if err != nil || user == nil {
		return user, err
	}

	s.byID.Add(id, cachedCopy(user))
	return user, nil
}

// GetByEmail always hits the backing store but refreshes the by-id entry.
func (s *CachedUserStore) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	user, err := s.Store.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return user, err
	}

	s.byID.Add(user.ID, cachedCopy(user))
	return user, nil
}

// Delete removes the row and evicts the cached entry.
func (s *CachedUserStore) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.Store.Delete(ctx, id)
	s.byID.Remove(id)
	return deleted, err
}

func (s *CachedUserStore) recordHit() {
	if s.stats != nil {
		s.stats.RecordCacheHit()
	}
}

func (s *CachedUserStore) recordMiss() {
	if s.stats != nil {
		s.stats.RecordCacheMiss()
	}
}

// ClearExpiredCodes purges the whole cache; the sweep may touch any row.
func (s *CachedUserStore) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.Store.ClearExpiredCodes(ctx, now)
	if n > 0 {
		s.byID.Purge()
	}
	return n, err
}
