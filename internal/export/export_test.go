package export_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/libris/internal/export"
	"github.com/aretw0/libris/pkg/adapters/memory"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store            *memory.Entities
	dune, emma, sicp domain.Book
	created          time.Time
}

func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.NewEntities()

	role, err := s.CreateRole(ctx, domain.Role{Name: domain.RoleUser})
	require.NoError(t, err)
	emp, err := s.CreateEmployee(ctx, domain.Employee{FullName: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)
	tg, err := s.CreateTelegramUser(ctx, domain.TelegramUser{TelegramID: "200"})
	require.NoError(t, err)
	alice, err := s.CreateAppUser(ctx, domain.AppUser{TelegramUserID: tg.ID, EmployeeID: emp.ID, RoleID: role.ID})
	require.NoError(t, err)

	loc, err := s.CreateLocation(ctx, domain.Location{City: domain.Cities[0], Room: "5"})
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	desc := "Spice"
	book := func(title string, d *string, cats ...domain.Category) domain.Book {
		b, err := s.CreateBook(ctx, domain.Book{
			Title: title, Author: "Someone", Description: d,
			OwnerID: alice.ID, LocationID: loc.ID, Categories: cats, CreatedAt: created,
		})
		require.NoError(t, err)
		return b
	}
	f := fixture{
		store:   s,
		dune:    book("Dune", &desc, domain.Categories[0], domain.Categories[1]),
		emma:    book("Emma", nil, domain.Categories[2]),
		sicp:    book("SICP", nil, domain.Categories[0]),
		created: created,
	}

	_, err = s.CreateOrder(ctx, domain.Order{AppUserID: alice.ID, BookID: f.emma.ID, Status: domain.OrderReserved})
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, domain.Order{AppUserID: alice.ID, BookID: f.sicp.ID, Status: domain.OrderInProcess})
	require.NoError(t, err)
	_, err = s.CreateOrder(ctx, domain.Order{AppUserID: alice.ID, BookID: f.dune.ID, Status: domain.OrderReturned})
	require.NoError(t, err)
	return f
}

func TestRows(t *testing.T) {
	f := seed(t)
	rows, err := export.New(f.store, nil).Rows(context.Background())
	require.NoError(t, err)

	want := []export.BookRow{
		{
			ID: f.dune.ID.String(), Title: "Dune", Author: "Someone", Description: "Spice", Owner: "Alice",
			City: string(domain.Cities[0]), Room: "5",
			Categories: []string{string(domain.Categories[0]), string(domain.Categories[1])},
			Status:     export.StatusAvailable, CreatedAt: f.created,
		},
		{
			ID: f.emma.ID.String(), Title: "Emma", Author: "Someone", Owner: "Alice",
			City: string(domain.Cities[0]), Room: "5",
			Categories: []string{string(domain.Categories[2])},
			Status:     export.StatusReserved, CreatedAt: f.created,
		},
		{
			ID: f.sicp.ID.String(), Title: "SICP", Author: "Someone", Owner: "Alice",
			City: string(domain.Cities[0]), Room: "5",
			Categories: []string{string(domain.Categories[0])},
			Status:     export.StatusTaken, CreatedAt: f.created,
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	f := seed(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.parquet")
	exp := export.New(f.store, nil)

	n, err := exp.WriteFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want, err := exp.Rows(ctx)
	require.NoError(t, err)
	got, err := export.ReadFile(path)
	require.NoError(t, err)

	opts := cmp.Options{
		cmpopts.EquateEmpty(),
		cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	}
	if diff := cmp.Diff(want, got, opts); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_EmptyCatalog(t *testing.T) {
	var buf bytes.Buffer
	n, err := export.New(memory.NewEntities(), nil).Write(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NotZero(t, buf.Len(), "an empty catalog still has a parquet footer")
}

func TestReadFile_Missing(t *testing.T) {
	_, err := export.ReadFile(filepath.Join(t.TempDir(), uuid.NewString()+".parquet"))
	assert.Error(t, err)
}
