// Package export writes the catalog to parquet files for offline analysis.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// Book availability as exported.
const (
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusTaken     = "taken"
)

// BookRow is one exported book.
type BookRow struct {
	ID          string    `parquet:"id"`
	Title       string    `parquet:"title"`
	Author      string    `parquet:"author"`
	Description string    `parquet:"description,optional"`
	Owner       string    `parquet:"owner"`
	City        string    `parquet:"city"`
	Room        string    `parquet:"room"`
	Categories  []string  `parquet:"categories,list"`
	Status      string    `parquet:"status"`
	CreatedAt   time.Time `parquet:"created_at,timestamp"`
}

// Exporter reads the catalog from an entity store.
type Exporter struct {
	store  ports.EntityStore
	logger *slog.Logger
}

// New creates an Exporter. A nil logger discards.
func New(store ports.EntityStore, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{store: store, logger: logger}
}

// Rows joins books with their owner, location and loan status.
func (e *Exporter) Rows(ctx context.Context) ([]BookRow, error) {
	books, err := e.store.ListBooks(ctx, domain.BookFilter{})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	locations, err := e.store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	members, err := e.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	active, err := e.store.ListOrders(ctx, domain.OrderFilter{
		Statuses: []domain.OrderStatus{domain.OrderReserved, domain.OrderInProcess},
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	locByID := make(map[uuid.UUID]domain.Location, len(locations))
	for _, l := range locations {
		locByID[l.ID] = l
	}
	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.AppUserID] = m.FullName
	}
	status := make(map[uuid.UUID]string, len(active))
	for _, o := range active {
		if o.Status == domain.OrderInProcess || status[o.BookID] == "" {
			status[o.BookID] = statusOf(o.Status)
		}
	}

	rows := make([]BookRow, 0, len(books))
	for _, b := range books {
		loc := locByID[b.LocationID]
		row := BookRow{
			ID:         b.ID.String(),
			Title:      b.Title,
			Author:     b.Author,
			Owner:      names[b.OwnerID],
			City:       string(loc.City),
			Room:       loc.Room,
			Categories: make([]string, len(b.Categories)),
			Status:     StatusAvailable,
			CreatedAt:  b.CreatedAt,
		}
		if b.Description != nil {
			row.Description = *b.Description
		}
		for i, c := range b.Categories {
			row.Categories[i] = string(c)
		}
		if s, ok := status[b.ID]; ok {
			row.Status = s
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func statusOf(s domain.OrderStatus) string {
	if s == domain.OrderInProcess {
		return StatusTaken
	}
	return StatusReserved
}

// Write exports the catalog to w and returns the number of rows written.
func (e *Exporter) Write(ctx context.Context, w io.Writer) (int, error) {
	rows, err := e.Rows(ctx)
	if err != nil {
		return 0, err
	}

	pw := parquet.NewGenericWriter[BookRow](w)
	n, err := pw.Write(rows)
	if err != nil {
		return n, fmt.Errorf("write rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return n, fmt.Errorf("close parquet writer: %w", err)
	}
	e.logger.Info("catalog exported", "rows", n)
	return n, nil
}

// WriteFile exports the catalog to path, replacing it.
func (e *Exporter) WriteFile(ctx context.Context, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := e.Write(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
	}
	return n, err
}

// ReadFile loads an exported catalog.
func ReadFile(path string) ([]BookRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[BookRow](pf)
	defer reader.Close()

	var rows []BookRow
	batch := make([]BookRow, 128)
	for {
		n, err := reader.Read(batch)
		rows = append(rows, batch[:n]...)
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return rows, fmt.Errorf("read rows: %w", err)
		}
	}
}
