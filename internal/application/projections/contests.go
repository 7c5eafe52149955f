package projections

import (
	"context"
	"time"

	"leadtracker/internal/domain/contest"
	"leadtracker/internal/domain/lead"
)

// --- Contest Data ---

// GetContestDataQuery carries query parameters.
type GetContestDataQuery struct {
	StartDate string
	EndDate   string
}

// GetContestDataDeps holds dependencies for GetContestData.
type GetContestDataDeps struct {
	LeadStore LeadStore
	Location  *time.Location
}

// QueryGetContestData tallies Hot Leads per day over an inclusive date range.
// PRE: StartDate and EndDate are YYYY-MM-DD
// POST: One entry per calendar day, ascending; contest.ErrInvalidDate for malformed dates
func QueryGetContestData(ctx context.Context, query GetContestDataQuery, deps GetContestDataDeps) (contest.Aggregate, error) {
	if _, err := contest.ParseDay(query.StartDate); err != nil {
		return contest.Aggregate{}, err
	}
	if _, err := contest.ParseDay(query.EndDate); err != nil {
		return contest.Aggregate{}, err
	}
	leads, err := deps.LeadStore.List(ctx)
	if err != nil {
		return contest.Aggregate{}, err
	}
	return contest.Tally(query.StartDate, query.EndDate, leads, deps.Location)
}

// --- List Contests ---

// ListContestsDeps holds dependencies for ListContests.
type ListContestsDeps struct {
	ContestStore ContestStore
}

// QueryListContests returns every stored contest, expired ones included.
// POST: Never nil
func QueryListContests(ctx context.Context, deps ListContestsDeps) ([]contest.Contest, error) {
	contests, err := deps.ContestStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if contests == nil {
		contests = []contest.Contest{}
	}
	return contests, nil
}

// --- Contest Progress ---

// GetContestProgressQuery carries query parameters.
type GetContestProgressQuery struct {
	ContestID string
}

// GetContestProgressDeps holds dependencies for GetContestProgress.
type GetContestProgressDeps struct {
	LeadStore    LeadStore
	ContestStore ContestStore
	Now          func() time.Time
	Location     *time.Location
}

// QueryGetContestProgress builds the slab progress report of one contest as of today.
// PRE: none
// POST: Returns the report, or contest.ErrNotFound when no contest has that id
func QueryGetContestProgress(ctx context.Context, query GetContestProgressQuery, deps GetContestProgressDeps) (contest.Report, error) {
	contests, err := deps.ContestStore.List(ctx)
	if err != nil {
		return contest.Report{}, err
	}

	var found *contest.Contest
	for i := range contests {
		if contests[i].IDString() == query.ContestID {
			found = &contests[i]
			break
		}
	}
	if found == nil {
		return contest.Report{}, contest.ErrNotFound
	}

	leads, err := deps.LeadStore.List(ctx)
	if err != nil {
		return contest.Report{}, err
	}
	agg, err := contest.Tally(found.StartDate, found.EndDate, leads, deps.Location)
	if err != nil {
		return contest.Report{}, err
	}
	today := deps.Now().In(deps.Location).Format(lead.DateLayout)
	return contest.BuildReport(*found, agg, today)
}
