package gormstore_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/pkg/adapters/gormstore"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openDB returns a private in-memory sqlite database with every table migrated.
func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := gormstore.DefaultConfig()
	cfg.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gormstore.Open(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, gormstore.Migrate(context.Background(), db))
	return db
}

func TestStore_EntityContract(t *testing.T) {
	ports.RunEntityStoreContract(t, func(t *testing.T) ports.EntityStore {
		return gormstore.New(openDB(t))
	})
}

func TestSessionStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, gormstore.NewSessionStore(openDB(t)))
}

func TestSessionStore_Overwrite(t *testing.T) {
	store := gormstore.NewSessionStore(openDB(t))
	ctx := context.Background()

	first := domain.NewState("7")
	first.Begin(domain.WorkflowLocation, "add_city")
	require.NoError(t, store.Save(ctx, "7", first))

	second := domain.NewState("7")
	second.Begin(domain.WorkflowLocation, "add_room")
	second.Scratchpad["city"] = "Berlin"
	require.NoError(t, store.Save(ctx, "7", second))

	loaded, err := store.Load(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, domain.Step("add_room"), loaded.Step)
	assert.Equal(t, "Berlin", loaded.Scratchpad["city"])
	assert.Equal(t, []string{"add_room"}, loaded.History)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)
}

func TestSeedRoles_Idempotent(t *testing.T) {
	store := gormstore.New(openDB(t))
	ctx := context.Background()

	require.NoError(t, gormstore.SeedRoles(ctx, store))
	require.NoError(t, gormstore.SeedRoles(ctx, store))

	admin, err := store.FindRoleByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	user, err := store.FindRoleByName(ctx, domain.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, admin.ID, user.ID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := gormstore.DefaultConfig()
	cfg.Driver = "oracle"
	_, err := gormstore.Open(cfg, logging.NewNop())
	assert.ErrorContains(t, err, "unsupported database driver")
}
