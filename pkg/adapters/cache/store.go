// Package cache provides a single-process StateStore whose sessions expire.
package cache

import (
	"context"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	gocache "github.com/patrickmn/go-cache"
)

// Store implements ports.StateStore on top of go-cache.
// Abandoned conversations disappear after the TTL.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates a store whose sessions expire after ttl and are purged every cleanup.
func NewStore(ttl, cleanup time.Duration) *Store {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	return &Store{cache: gocache.New(ttl, cleanup)}
}

func (s *Store) Save(ctx context.Context, chatID string, state *domain.State) error {
	s.cache.Set(chatID, state.Clone(), gocache.DefaultExpiration)
	return nil
}

func (s *Store) Load(ctx context.Context, chatID string) (*domain.State, error) {
	x, found := s.cache.Get(chatID)
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	return x.(*domain.State).Clone(), nil
}

func (s *Store) Delete(ctx context.Context, chatID string) error {
	s.cache.Delete(chatID)
	return nil
}

// List returns the chats whose session has not expired.
func (s *Store) List(ctx context.Context) ([]string, error) {
	items := s.cache.Items()
	chats := make([]string, 0, len(items))
	for id := range items {
		chats = append(chats, id)
	}
	return chats, nil
}
