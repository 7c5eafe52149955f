package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"leadtracker/internal/domain/contest"
	"leadtracker/internal/domain/lead"
)

// ContestStoreForOrchestrator defines the store interface needed by contest orchestrators.
type ContestStoreForOrchestrator interface {
	Save(ctx context.Context, c contest.Contest) error
	List(ctx context.Context) ([]contest.Contest, error)
	Delete(ctx context.Context, id string) error
}

// --- Save Contest ---

// SaveContestInput carries input for the save contest orchestrator.
type SaveContestInput struct {
	ID        int64 // zero assigns an id from the clock
	Name      string
	StartDate string
	EndDate   string
	Slabs     []contest.SlabDraft
}

// SaveContestDeps holds dependencies for SaveContest.
type SaveContestDeps struct {
	ContestStore ContestStoreForOrchestrator
	Lock         sync.Locker
	Now          func() time.Time
}

// ExecuteSaveContest appends a new contest. Incomplete slabs are dropped
// and the rest are named after their submitted position.
// PRE: at least one slab has every field set
// POST: Contest appended; contest.ErrNoSlabs or another validation error otherwise
func ExecuteSaveContest(ctx context.Context, input SaveContestInput, deps SaveContestDeps) (contest.Contest, error) {
	slabs, err := contest.NormalizeSlabs(input.Slabs)
	if err != nil {
		return contest.Contest{}, err
	}

	c := contest.Contest{
		ID:        input.ID,
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Slabs:     slabs,
	}
	if c.ID == 0 {
		c.ID = contest.NewID(deps.Now())
	}
	if err := c.Validate(); err != nil {
		return contest.Contest{}, err
	}

	deps.Lock.Lock()
	defer deps.Lock.Unlock()

	if err := deps.ContestStore.Save(ctx, c); err != nil {
		return contest.Contest{}, err
	}

	slog.Info("contest_event", "event", "contest_saved", "contest_id", c.ID, "slabs", len(c.Slabs),
		"start_date", c.StartDate, "end_date", c.EndDate)
	return c, nil
}

// --- Delete Contest ---

// DeleteContestDeps holds dependencies for DeleteContest.
type DeleteContestDeps struct {
	ContestStore ContestStoreForOrchestrator
	Lock         sync.Locker
}

// ExecuteDeleteContest removes the contest whose id renders as contestID.
// PRE: none
// POST: Contest removed, or contest.ErrNotFound
func ExecuteDeleteContest(ctx context.Context, contestID string, deps DeleteContestDeps) error {
	deps.Lock.Lock()
	defer deps.Lock.Unlock()

	if err := deps.ContestStore.Delete(ctx, contestID); err != nil {
		return err
	}
	slog.Info("contest_event", "event", "contest_deleted", "contest_id", contestID)
	return nil
}

// --- Sweep Expired Contests ---

// SweepExpiredContestsDeps holds dependencies for SweepExpiredContests.
type SweepExpiredContestsDeps struct {
	ContestStore ContestStoreForOrchestrator
	Lock         sync.Locker
	Now          func() time.Time
	Location     *time.Location
}

// ExecuteSweepExpiredContests deletes every contest that ended before today
// and returns the ones left. Running it twice on the same day removes nothing
// the second time.
// PRE: none
// POST: No returned contest is expired
func ExecuteSweepExpiredContests(ctx context.Context, deps SweepExpiredContestsDeps) ([]contest.Contest, error) {
	today := deps.Now().In(deps.Location).Format(lead.DateLayout)

	deps.Lock.Lock()
	defer deps.Lock.Unlock()

	all, err := deps.ContestStore.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]contest.Contest, 0, len(all))
	for _, c := range all {
		if !c.IsExpired(today) {
			active = append(active, c)
			continue
		}
		if err := deps.ContestStore.Delete(ctx, c.IDString()); err != nil && !errors.Is(err, contest.ErrNotFound) {
			return nil, err
		}
		slog.Info("contest_event", "event", "contest_expired", "contest_id", c.ID, "end_date", c.EndDate, "today", today)
	}
	return active, nil
}
