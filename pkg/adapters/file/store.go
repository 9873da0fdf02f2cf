// Package file keeps sessions as JSON documents in a local directory.
// It suits the console runner, where sessions should survive restarts
// without a database.
package file

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/libris/pkg/domain"
)

const ext = ".json"

// DefaultDir is used when New is given an empty path.
var DefaultDir = filepath.Join(".libris", "sessions")

// Store implements ports.StateStore on the filesystem.
type Store struct {
	dir string
}

// New returns a store rooted at dir. The directory is created on first Save.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Dir reports where sessions are kept.
func (s *Store) Dir() string { return s.dir }

// path maps a chat ID to a file name. Chat IDs are transport supplied,
// so they are encoded rather than joined as-is.
func (s *Store) path(chatID string) (string, error) {
	if chatID == "" {
		return "", errors.New("file store: empty chat id")
	}
	return filepath.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(chatID))+ext), nil
}

// Save writes the state to a temporary file, syncs it and renames it over
// the previous version.
func (s *Store) Save(ctx context.Context, chatID string, state *domain.State) error {
	dest, err := s.path(chatID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", chatID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "tmp-*"+ext)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write session %s: %w", chatID, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync session %s: %w", chatID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session %s: %w", chatID, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("replace session %s: %w", chatID, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, chatID string) (*domain.State, error) {
	p, err := s.path(chatID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", chatID, err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", chatID, err)
	}
	return &state, nil
}

// Delete is a no-op for unknown chats.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	p, err := s.path(chatID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session %s: %w", chatID, err)
	}
	return nil
}

// List skips files it did not write.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	chats := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := base64.RawURLEncoding.DecodeString(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		chats = append(chats, string(id))
	}
	return chats, nil
}
