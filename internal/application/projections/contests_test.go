package projections

import (
	"context"
	"errors"
	"testing"

	"leadtracker/internal/domain/contest"
)

// TestQueryGetContestData tallies Hot Leads per day in the service zone.
func TestQueryGetContestData(t *testing.T) {
	agg, err := QueryGetContestData(context.Background(),
		GetContestDataQuery{StartDate: "2024-02-28", EndDate: "2024-03-01"},
		GetContestDataDeps{LeadStore: sampleLeads(), Location: ist})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []contest.DailyCount{{Date: "2024-02-28", Count: 0}, {Date: "2024-02-29", Count: 1}, {Date: "2024-03-01", Count: 1}}
	if len(agg.Daily) != len(want) {
		t.Fatalf("daily = %+v, want %+v", agg.Daily, want)
	}
	for i := range want {
		if agg.Daily[i] != want[i] {
			t.Errorf("daily[%d] = %+v, want %+v", i, agg.Daily[i], want[i])
		}
	}
	if agg.WeeklyTotal != 2 {
		t.Errorf("WeeklyTotal = %d, want 2", agg.WeeklyTotal)
	}

	_, err = QueryGetContestData(context.Background(), GetContestDataQuery{StartDate: "2024-02-28", EndDate: ""},
		GetContestDataDeps{LeadStore: sampleLeads(), Location: ist})
	if !errors.Is(err, contest.ErrInvalidDate) {
		t.Errorf("missing end date error = %v, want ErrInvalidDate", err)
	}
}

// TestQueryListContests returns an empty list rather than nil.
func TestQueryListContests(t *testing.T) {
	got, err := QueryListContests(context.Background(), ListContestsDeps{ContestStore: &mockContestStore{}})
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("got %v, %v; want empty non-nil slice", got, err)
	}
}

// TestQueryGetContestProgress builds a report for the matching id.
func TestQueryGetContestProgress(t *testing.T) {
	contests := &mockContestStore{contests: []contest.Contest{
		{ID: 11, Name: "Other", StartDate: "2024-01-01", EndDate: "2024-01-02",
			Slabs: []contest.Slab{{Name: "Slab 1", DailyTarget: 1, WeeklyTarget: 1}}},
		{ID: 12, Name: "Leap week", StartDate: "2024-02-29", EndDate: "2024-03-02",
			Slabs: []contest.Slab{{Name: "Slab 1", DailyTarget: 1, WeeklyTarget: 4, Incentive: 1500}}},
	}}
	deps := GetContestProgressDeps{LeadStore: sampleLeads(), ContestStore: contests, Now: now, Location: ist}

	r, err := QueryGetContestProgress(context.Background(), GetContestProgressQuery{ContestID: "12"}, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Today != "2024-03-01" || r.TodayCount != 1 || r.WeeklyTotal != 2 {
		t.Errorf("report = today %s count %d total %d", r.Today, r.TodayCount, r.WeeklyTotal)
	}
	if !r.Slabs[0].Daily.Achieved || r.Slabs[0].Weekly.Remaining != 2 || r.Slabs[0].Weekly.Percentage != 50 {
		t.Errorf("slab progress = %+v", r.Slabs[0])
	}
	if len(r.Breakdown) != 3 || r.Breakdown[0].Weekday != "Thu" || r.Breakdown[2].Achieved[0] {
		t.Errorf("breakdown = %+v", r.Breakdown)
	}

	if _, err := QueryGetContestProgress(context.Background(), GetContestProgressQuery{ContestID: "99"}, deps); !errors.Is(err, contest.ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}
