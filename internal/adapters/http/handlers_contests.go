package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"leadtracker/internal/application/orchestrators"
	"leadtracker/internal/application/projections"
	"leadtracker/internal/domain/contest"
)

func (a *api) getContestData(ctx context.Context, params url.Values) (result, error) {
	startDate, endDate := params.Get("startDate"), params.Get("endDate")
	if startDate == "" {
		return result{}, missingParam("startDate")
	}
	if endDate == "" {
		return result{}, missingParam("endDate")
	}
	agg, err := projections.QueryGetContestData(ctx, projections.GetContestDataQuery{StartDate: startDate, EndDate: endDate},
		projections.GetContestDataDeps{LeadStore: a.deps.Stores.LeadStore, Location: a.deps.Location})
	if errors.Is(err, contest.ErrRangeTooLong) {
		return result{}, invalidParam("endDate")
	}
	if err != nil {
		return result{}, err
	}
	return result{message: "Contest data retrieved", data: toAggregateResponse(agg)}, nil
}

func (a *api) getContests(ctx context.Context, _ url.Values) (result, error) {
	contests, err := projections.QueryListContests(ctx, projections.ListContestsDeps{ContestStore: a.deps.Stores.ContestStore})
	if err != nil {
		return result{}, err
	}
	return result{message: "Contests retrieved", data: toContestResponses(contests)}, nil
}

// getActiveContests sweeps expired contests before listing the rest.
func (a *api) getActiveContests(ctx context.Context, _ url.Values) (result, error) {
	active, err := orchestrators.ExecuteSweepExpiredContests(ctx, orchestrators.SweepExpiredContestsDeps{
		ContestStore: a.deps.Stores.ContestStore,
		Lock:         &a.lock,
		Now:          a.deps.Now,
		Location:     a.deps.Location,
	})
	if err != nil {
		return result{}, err
	}
	return result{message: "Contests retrieved", data: toContestResponses(active)}, nil
}

func (a *api) getContestProgress(ctx context.Context, params url.Values) (result, error) {
	id := params.Get("contestId")
	if id == "" {
		return result{}, missingParam("contestId")
	}
	report, err := projections.QueryGetContestProgress(ctx, projections.GetContestProgressQuery{ContestID: id},
		projections.GetContestProgressDeps{
			LeadStore:    a.deps.Stores.LeadStore,
			ContestStore: a.deps.Stores.ContestStore,
			Now:          a.deps.Now,
			Location:     a.deps.Location,
		})
	if err != nil {
		return result{}, err
	}
	return result{message: "Contest progress retrieved", data: toReportResponse(report)}, nil
}

func (a *api) saveContest(ctx context.Context, params url.Values) (result, error) {
	raw := params.Get("data")
	if strings.TrimSpace(raw) == "" {
		return result{}, missingParam("data")
	}
	var in contestInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return result{}, invalidParam("data")
	}
	c, err := orchestrators.ExecuteSaveContest(ctx, in.save(), orchestrators.SaveContestDeps{
		ContestStore: a.deps.Stores.ContestStore,
		Lock:         &a.lock,
		Now:          a.deps.Now,
	})
	if err != nil {
		return result{}, err
	}
	return result{message: "Contest saved successfully", data: toContestResponse(c)}, nil
}

func (a *api) deleteContest(ctx context.Context, params url.Values) (result, error) {
	id := params.Get("contestId")
	if id == "" {
		return result{}, missingParam("contestId")
	}
	err := orchestrators.ExecuteDeleteContest(ctx, id, orchestrators.DeleteContestDeps{
		ContestStore: a.deps.Stores.ContestStore,
		Lock:         &a.lock,
	})
	if err != nil {
		return result{}, err
	}
	return result{message: "Contest deleted successfully"}, nil
}
