package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadtracker/internal/application/orchestrators"
	"leadtracker/internal/application/projections"
	"leadtracker/internal/domain/lead"
)

// notifyTimeout bounds the best-effort achievement emails after a write.
const notifyTimeout = 10 * time.Second

func (a *api) todayDeps() projections.TodayDeps {
	return projections.TodayDeps{LeadStore: a.deps.Stores.LeadStore, Now: a.deps.Now, Location: a.deps.Location}
}

func (a *api) getTodayStatusCount(ctx context.Context, _ url.Values) (result, error) {
	counts, err := projections.QueryCountByStatus(ctx, projections.CountByStatusQuery{Scope: projections.ScopeToday}, a.todayDeps())
	if err != nil {
		return result{}, err
	}
	return result{message: "Status counts retrieved", data: counts}, nil
}

func (a *api) getTotalStatusCount(ctx context.Context, _ url.Values) (result, error) {
	counts, err := projections.QueryCountByStatus(ctx, projections.CountByStatusQuery{Scope: projections.ScopeAll}, a.todayDeps())
	if err != nil {
		return result{}, err
	}
	return result{message: "Total status counts retrieved", data: counts}, nil
}

func (a *api) getTodaysData(ctx context.Context, _ url.Values) (result, error) {
	leads, err := projections.QueryListTodayLeads(ctx, a.todayDeps())
	if err != nil {
		return result{}, err
	}
	msg := "Today's data retrieved"
	if len(leads) == 0 {
		msg = "No data found"
	}
	return result{message: msg, data: toLeadResponses(leads, a.deps.Location)}, nil
}

func (a *api) getRecord(ctx context.Context, params url.Values) (result, error) {
	loanCode := params.Get("loanCode")
	if loanCode == "" {
		return result{}, missingParam("loanCode")
	}
	l, err := projections.QueryGetLead(ctx, projections.GetLeadQuery{LoanCode: loanCode},
		projections.GetLeadDeps{LeadStore: a.deps.Stores.LeadStore})
	if err != nil {
		return result{}, err
	}
	return result{message: "Record found", data: toLeadResponse(l, a.deps.Location)}, nil
}

func (a *api) searchRecords(ctx context.Context, params url.Values) (result, error) {
	leads, err := projections.QuerySearchLeads(ctx, projections.SearchLeadsQuery{
		SearchType:  params.Get("searchType"),
		SearchValue: params.Get("searchValue"),
	}, projections.SearchLeadsDeps{LeadStore: a.deps.Stores.LeadStore})
	if err != nil {
		return result{}, err
	}
	return result{message: "Search completed", data: toLeadResponses(leads, a.deps.Location)}, nil
}

func (a *api) addRecord(ctx context.Context, params url.Values) (result, error) {
	in, err := decodeLead(params)
	if err != nil {
		return result{}, err
	}
	var reached []orchestrators.SlabAchievement
	l, err := orchestrators.ExecuteAddLead(ctx, in.fields(), orchestrators.AddLeadDeps{
		LeadStore:  a.deps.Stores.LeadStore,
		Lock:       &a.lock,
		GenerateID: a.deps.GenerateID,
		Now:        a.deps.Now,
		OnCommit:   a.findAchievements(&reached),
	})
	if err != nil {
		return result{}, err
	}
	a.notifyAchievements(ctx, l, reached)
	return result{message: "Record added successfully"}, nil
}

// updateRecord verifies against the "loanCode" field when sent, else the
// record's own loan code. Clients that let users edit the loan code must send
// the original in "loanCode".
func (a *api) updateRecord(ctx context.Context, params url.Values) (result, error) {
	in, err := decodeLead(params)
	if err != nil {
		return result{}, err
	}
	rowIndex, err := rowIndexParam(params)
	if err != nil {
		return result{}, err
	}
	loanCode := params.Get("loanCode")
	if loanCode == "" {
		loanCode = string(in.LoanCode)
	}

	var reached []orchestrators.SlabAchievement
	change, err := orchestrators.ExecuteUpdateLead(ctx, orchestrators.UpdateLeadInput{
		LoanCode: loanCode,
		RowIndex: rowIndex,
		Fields:   in.fields(),
	}, orchestrators.UpdateLeadDeps{
		LeadStore: a.deps.Stores.LeadStore,
		Lock:      &a.lock,
		OnCommit:  a.findAchievements(&reached),
	})
	if err != nil {
		return result{}, err
	}
	a.notifyAchievements(ctx, change.Lead, reached)
	return result{message: "Record updated successfully"}, nil
}

func (a *api) deleteRecord(ctx context.Context, params url.Values) (result, error) {
	loanCode := params.Get("loanCode")
	if loanCode == "" {
		return result{}, missingParam("loanCode")
	}
	rowIndex, err := rowIndexParam(params)
	if err != nil {
		return result{}, err
	}
	err = orchestrators.ExecuteDeleteLead(ctx, orchestrators.DeleteLeadInput{LoanCode: loanCode, RowIndex: rowIndex},
		orchestrators.DeleteLeadDeps{LeadStore: a.deps.Stores.LeadStore, Lock: &a.lock})
	if err != nil {
		return result{}, err
	}
	return result{message: "Record deleted successfully"}, nil
}

// notifyEnabled reports whether slab achievement emails are configured.
func (a *api) notifyEnabled() bool {
	return a.deps.Notify.Sender != nil && len(a.deps.Notify.Recipients) > 0
}

func (a *api) notifyDeps() orchestrators.NotifySlabAchievementsDeps {
	n := a.deps.Notify
	deps := orchestrators.NotifySlabAchievementsDeps{
		LeadStore:    a.deps.Stores.LeadStore,
		ContestStore: a.deps.Stores.ContestStore,
		Sender:       n.Sender,
		Recipients:   n.Recipients,
		Printer:      n.Printer,
		Currency:     n.Currency,
		Now:          a.deps.Now,
		Location:     a.deps.Location,
		GenerateID:   generateID,
		MaxAttempts:  n.MaxAttempts,
	}
	if a.deps.Stores.OutboxStore != nil {
		deps.Outbox = a.deps.Stores.OutboxStore
	}
	return deps
}

// findAchievements returns a commit hook that records the slab targets the
// write just met. It runs under the write lock so concurrent writes each see
// their own count. Nil when notifications are off.
func (a *api) findAchievements(reached *[]orchestrators.SlabAchievement) func(context.Context, orchestrators.LeadChange) {
	if !a.notifyEnabled() {
		return nil
	}
	return func(ctx context.Context, change orchestrators.LeadChange) {
		found, err := orchestrators.FindSlabAchievements(ctx, change, a.notifyDeps())
		if err != nil {
			slog.Warn("slab_achievement_check_failed", "loan_code", change.Lead.LoanCode, "error", err)
			return
		}
		*reached = found
	}
}

// notifyAchievements emails the achievements found for l. Failures are
// logged and never reach the client.
func (a *api) notifyAchievements(ctx context.Context, l lead.Lead, reached []orchestrators.SlabAchievement) {
	if len(reached) == 0 || !a.notifyEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := orchestrators.ExecuteNotifySlabAchievements(ctx, l, reached, a.notifyDeps()); err != nil {
		slog.Warn("slab_notification_failed", "loan_code", l.LoanCode, "error", err)
	}
}

// decodeLead parses the record JSON in the "data" field.
func decodeLead(params url.Values) (leadInput, error) {
	raw := params.Get("data")
	if strings.TrimSpace(raw) == "" {
		return leadInput{}, missingParam("data")
	}
	var in leadInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return leadInput{}, invalidParam("data")
	}
	return in, nil
}

func rowIndexParam(params url.Values) (int, error) {
	raw := params.Get("rowIndex")
	if raw == "" {
		return 0, missingParam("rowIndex")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam("rowIndex")
	}
	return n, nil
}
