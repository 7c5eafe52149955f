package projections

import (
	"context"
	"time"

	domainContest "leadtracker/internal/domain/contest"
	domainLead "leadtracker/internal/domain/lead"
)

// LeadStore interface for lead queries.
type LeadStore interface {
	List(ctx context.Context) ([]domainLead.Lead, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domainLead.Lead, error)
}

// ContestStore interface for contest queries.
type ContestStore interface {
	List(ctx context.Context) ([]domainContest.Contest, error)
}
