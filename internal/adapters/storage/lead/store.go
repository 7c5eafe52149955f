package lead

import (
	"context"
	"time"

	domain "leadtracker/internal/domain/lead"
)

// Store persists Lead records in insertion order.
// Leads returned by a Store carry their current RowIndex.
type Store interface {
	Append(ctx context.Context, value domain.Lead) error
	List(ctx context.Context) ([]domain.Lead, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Lead, error)
	GetAt(ctx context.Context, rowIndex int) (domain.Lead, error)
	Update(ctx context.Context, value domain.Lead) error
	Delete(ctx context.Context, id string) error
}
