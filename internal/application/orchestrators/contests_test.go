package orchestrators

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leadtracker/internal/domain/contest"
)

// mockContestStore implements ContestStoreForOrchestrator for testing.
type mockContestStore struct {
	contests []contest.Contest
	deletes  int
}

func (m *mockContestStore) Save(_ context.Context, c contest.Contest) error {
	m.contests = append(m.contests, c)
	return nil
}

func (m *mockContestStore) List(_ context.Context) ([]contest.Contest, error) {
	return append([]contest.Contest(nil), m.contests...), nil
}

func (m *mockContestStore) Delete(_ context.Context, id string) error {
	for i, c := range m.contests {
		if c.IDString() == id {
			m.contests = append(m.contests[:i], m.contests[i+1:]...)
			m.deletes++
			return nil
		}
	}
	return contest.ErrNotFound
}

func intp(n int) *int { return &n }

// TestExecuteSaveContest_NormalizesSlabs drops incomplete slabs and assigns an id.
func TestExecuteSaveContest_NormalizesSlabs(t *testing.T) {
	store := &mockContestStore{}
	c, err := ExecuteSaveContest(context.Background(), SaveContestInput{
		Name: "March sprint", StartDate: "2024-03-01", EndDate: "2024-03-07",
		Slabs: []contest.SlabDraft{
			{Daily: intp(3), Weekly: nil, Incentive: intp(500)},
			{Daily: intp(4), Weekly: intp(24), Incentive: intp(2000)},
		},
	}, SaveContestDeps{ContestStore: store, Lock: &sync.Mutex{}, Now: clockNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != clockTime.UnixMilli() {
		t.Errorf("ID = %d, want %d", c.ID, clockTime.UnixMilli())
	}
	if len(c.Slabs) != 1 || c.Slabs[0].Name != "Slab 2" {
		t.Errorf("slabs = %+v, want only Slab 2", c.Slabs)
	}
	if len(store.contests) != 1 {
		t.Errorf("stored %d contests, want 1", len(store.contests))
	}
}

// TestExecuteSaveContest_Rejects covers the validation failures.
func TestExecuteSaveContest_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   SaveContestInput
		wantErr error
	}{
		{"no complete slab", SaveContestInput{Name: "X", StartDate: "2024-03-01", EndDate: "2024-03-02",
			Slabs: []contest.SlabDraft{{Daily: intp(1)}}}, contest.ErrNoSlabs},
		{"zero target", SaveContestInput{Name: "X", StartDate: "2024-03-01", EndDate: "2024-03-02",
			Slabs: []contest.SlabDraft{{Daily: intp(0), Weekly: intp(5), Incentive: intp(10)}}}, contest.ErrInvalidTarget},
		{"bad date", SaveContestInput{Name: "X", StartDate: "March 1", EndDate: "2024-03-02",
			Slabs: []contest.SlabDraft{{Daily: intp(1), Weekly: intp(5), Incentive: intp(10)}}}, contest.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockContestStore{}
			_, err := ExecuteSaveContest(context.Background(), tt.input,
				SaveContestDeps{ContestStore: store, Lock: &sync.Mutex{}, Now: clockNow})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if len(store.contests) != 0 {
				t.Error("invalid contest was stored")
			}
		})
	}
}

// TestExecuteDeleteContest reports missing ids.
func TestExecuteDeleteContest(t *testing.T) {
	store := &mockContestStore{contests: []contest.Contest{{ID: 7, Name: "A"}}}
	deps := DeleteContestDeps{ContestStore: store, Lock: &sync.Mutex{}}

	if err := ExecuteDeleteContest(context.Background(), "7", deps); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ExecuteDeleteContest(context.Background(), "7", deps); !errors.Is(err, contest.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

// TestExecuteSweepExpiredContests keeps contests ending today and is idempotent.
func TestExecuteSweepExpiredContests(t *testing.T) {
	store := &mockContestStore{contests: []contest.Contest{
		{ID: 1, Name: "ended yesterday", StartDate: "2024-02-20", EndDate: "2024-02-29"},
		{ID: 2, Name: "ends today", StartDate: "2024-02-25", EndDate: "2024-03-01"},
		{ID: 3, Name: "future", StartDate: "2024-03-10", EndDate: "2024-03-17"},
	}}
	deps := SweepExpiredContestsDeps{ContestStore: store, Lock: &sync.Mutex{}, Now: clockNow, Location: time.UTC}

	active, err := ExecuteSweepExpiredContests(context.Background(), deps)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(active) != 2 || active[0].ID != 2 || active[1].ID != 3 {
		t.Errorf("active = %+v, want contests 2 and 3", active)
	}

	again, err := ExecuteSweepExpiredContests(context.Background(), deps)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(again) != 2 || store.deletes != 1 {
		t.Errorf("second sweep active=%d deletes=%d, want 2 and 1", len(again), store.deletes)
	}
}

// TestExecuteSweepExpiredContests_UsesLocation sweeps by the service's calendar day.
func TestExecuteSweepExpiredContests_UsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 2024-02-29 20:00 UTC is already 2024-03-01 in IST.
	late := func() time.Time { return time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC) }
	store := &mockContestStore{contests: []contest.Contest{{ID: 1, EndDate: "2024-02-29"}}}

	active, err := ExecuteSweepExpiredContests(context.Background(),
		SweepExpiredContestsDeps{ContestStore: store, Lock: &sync.Mutex{}, Now: late, Location: ist})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active = %+v, want none", active)
	}
}
