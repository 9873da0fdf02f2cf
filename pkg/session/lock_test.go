package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/libris/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, chatID string, state *domain.State) error { return nil }
func (nopStore) Load(ctx context.Context, chatID string) (*domain.State, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Delete(ctx context.Context, chatID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)      { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		chat := fmt.Sprintf("chat-%d", i)
		_ = mgr.Transact(ctx, chat, func(ctx context.Context, s *domain.State) error {
			s.Begin(domain.WorkflowLocation, "add_city")
			return nil
		})
		_ = mgr.Delete(ctx, chat)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", n)
	}
}
