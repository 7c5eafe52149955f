package contest

import (
	"context"

	domain "leadtracker/internal/domain/contest"
)

// Store persists Contest definitions. Contests are never updated in place.
type Store interface {
	Save(ctx context.Context, value domain.Contest) error
	List(ctx context.Context) ([]domain.Contest, error)
	Delete(ctx context.Context, id string) error
}
