package gormstore

import (
	"context"
	"fmt"

	"github.com/aretw0/libris/pkg/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore implements ports.StateStore in the sessions table.
// It lets several ingress replicas share conversations without redis.
type SessionStore struct {
	db *gorm.DB
}

// NewSessionStore wraps an open, migrated database.
func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Save(ctx context.Context, chatID string, state *domain.State) error {
	m := stateToModel(chatID, state)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "chat_id"}}, UpdateAll: true}).
		Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, chatID string) (*domain.State, error) {
	var m sessionModel
	if err := first(ctx, s.db, &m, Filter("chat_id", chatID)); err != nil {
		if isNotFound(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return stateToEntity(&m), nil
}

func (s *SessionStore) Delete(ctx context.Context, chatID string) error {
	if err := s.db.WithContext(ctx).Delete(&sessionModel{}, "chat_id = ?", chatID).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&sessionModel{}).Order("updated_at DESC").Pluck("chat_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}
