package outbox

import (
	"context"
	"time"

	domain "leadtracker/internal/domain/outbox"
)

// Store persists queued notifications.
type Store interface {
	// GetByID returns domain.ErrNotFound when no entry has id.
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts or replaces the entry with the same ID.
	Save(ctx context.Context, e domain.Entry) error

	// ListDue returns up to limit non-terminal entries whose next attempt
	// is at or before now, longest overdue first.
	// PRE: limit > 0
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error)

	// CountByStatus returns the number of entries in each status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}
