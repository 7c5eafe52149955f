package projections

import (
	"context"
	"time"

	"leadtracker/internal/domain/lead"
)

// --- Get Lead ---

// GetLeadQuery carries query parameters.
type GetLeadQuery struct {
	LoanCode string
}

// GetLeadDeps holds dependencies for GetLead.
type GetLeadDeps struct {
	LeadStore LeadStore
}

// QueryGetLead returns the first lead holding the exact loan code.
// PRE: none
// POST: Returns the lead with its current RowIndex, or lead.ErrNotFound
func QueryGetLead(ctx context.Context, query GetLeadQuery, deps GetLeadDeps) (lead.Lead, error) {
	leads, err := deps.LeadStore.List(ctx)
	if err != nil {
		return lead.Lead{}, err
	}
	for _, l := range leads {
		if l.LoanCode == query.LoanCode {
			return l, nil
		}
	}
	return lead.Lead{}, lead.ErrNotFound
}

// --- Search Leads ---

// SearchLeadsQuery carries query parameters.
type SearchLeadsQuery struct {
	SearchType  string
	SearchValue string
}

// SearchLeadsDeps holds dependencies for SearchLeads.
type SearchLeadsDeps struct {
	LeadStore LeadStore
}

// QuerySearchLeads returns every lead whose chosen field contains the value,
// ignoring case.
// PRE: none
// POST: Returns matches in sheet order (never nil), or lead.ErrInvalidSearchType
func QuerySearchLeads(ctx context.Context, query SearchLeadsQuery, deps SearchLeadsDeps) ([]lead.Lead, error) {
	field, err := lead.ParseSearchField(query.SearchType)
	if err != nil {
		return nil, err
	}
	leads, err := deps.LeadStore.List(ctx)
	if err != nil {
		return nil, err
	}
	matches := []lead.Lead{}
	for _, l := range leads {
		if l.Match(field, query.SearchValue) {
			matches = append(matches, l)
		}
	}
	return matches, nil
}

// --- Today's Leads ---

// TodayDeps holds dependencies for the today-scoped lead queries.
type TodayDeps struct {
	LeadStore LeadStore
	Now       func() time.Time
	Location  *time.Location
}

// todayBounds returns the start of today and of tomorrow in loc.
func todayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	n := now.In(loc)
	start := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// QueryListTodayLeads returns leads created today in the service time zone.
// PRE: none
// POST: Returns leads in sheet order with whole-sheet row indexes (never nil)
func QueryListTodayLeads(ctx context.Context, deps TodayDeps) ([]lead.Lead, error) {
	from, to := todayBounds(deps.Now(), deps.Location)
	leads, err := deps.LeadStore.ListCreatedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []lead.Lead{}
	}
	return leads, nil
}

// --- Status Counts ---

// Count scopes
const (
	ScopeToday = "today"
	ScopeAll   = "all"
)

// CountByStatusQuery carries query parameters.
type CountByStatusQuery struct {
	Scope string // ScopeToday or ScopeAll
}

// QueryCountByStatus tallies leads per status over today or all time.
// Statuses outside the five tracked ones are not counted.
// PRE: Scope is ScopeToday or ScopeAll
// POST: Returns a map with all five statuses present
func QueryCountByStatus(ctx context.Context, query CountByStatusQuery, deps TodayDeps) (map[string]int, error) {
	var (
		leads []lead.Lead
		err   error
	)
	if query.Scope == ScopeToday {
		leads, err = QueryListTodayLeads(ctx, deps)
	} else {
		leads, err = deps.LeadStore.List(ctx)
	}
	if err != nil {
		return nil, err
	}
	return lead.CountByStatus(leads), nil
}
