package web

import (
	"bytes"
	"encoding/json"
	"time"

	"leadtracker/internal/application/orchestrators"
	"leadtracker/internal/domain/contest"
	"leadtracker/internal/domain/lead"
)

// text is a JSON string field that also accepts a bare number, since form
// scripts often send mobile numbers and codes unquoted.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = text(n.String())
	return nil
}

// leadInput is the record JSON carried in the "data" form field.
type leadInput struct {
	LoanCode      text `json:"loanCode"`
	ApplicationID text `json:"applicationId"`
	Name          text `json:"name"`
	MobileNumber  text `json:"mobileNumber"`
	Status        text `json:"status"`
	SubStatus     text `json:"subStatus"`
	Remarks       text `json:"remarks"`
}

func (in leadInput) fields() orchestrators.LeadFields {
	return orchestrators.LeadFields{
		LoanCode:      string(in.LoanCode),
		ApplicationID: string(in.ApplicationID),
		Name:          string(in.Name),
		MobileNumber:  string(in.MobileNumber),
		Status:        string(in.Status),
		SubStatus:     string(in.SubStatus),
		Remarks:       string(in.Remarks),
	}
}

type leadResponse struct {
	ID            string `json:"id"`
	RowIndex      int    `json:"rowIndex"`
	Timestamp     string `json:"timestamp"`
	LoanCode      string `json:"loanCode"`
	ApplicationID string `json:"applicationId"`
	Name          string `json:"name"`
	MobileNumber  string `json:"mobileNumber"`
	Status        string `json:"status"`
	SubStatus     string `json:"subStatus"`
	Remarks       string `json:"remarks"`
}

func toLeadResponse(l lead.Lead, loc *time.Location) leadResponse {
	r := leadResponse{
		ID:            l.ID,
		RowIndex:      l.RowIndex,
		LoanCode:      l.LoanCode,
		ApplicationID: l.ApplicationID,
		Name:          l.Name,
		MobileNumber:  l.MobileNumber,
		Status:        l.Status,
		SubStatus:     l.SubStatus,
		Remarks:       l.Remarks,
	}
	if !l.Timestamp.IsZero() {
		r.Timestamp = l.Timestamp.In(loc).Format(time.RFC3339)
	}
	return r
}

func toLeadResponses(leads []lead.Lead, loc *time.Location) []leadResponse {
	out := make([]leadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, toLeadResponse(l, loc))
	}
	return out
}

// slabInput accepts both the dailyTarget/weeklyTarget names and the short
// daily/weekly names older contest forms send. A missing number marks the
// slab incomplete.
type slabInput struct {
	DailyTarget  *int `json:"dailyTarget"`
	WeeklyTarget *int `json:"weeklyTarget"`
	Daily        *int `json:"daily"`
	Weekly       *int `json:"weekly"`
	Incentive    *int `json:"incentive"`
}

func (in slabInput) draft() contest.SlabDraft {
	d := contest.SlabDraft{Daily: in.DailyTarget, Weekly: in.WeeklyTarget, Incentive: in.Incentive}
	if d.Daily == nil {
		d.Daily = in.Daily
	}
	if d.Weekly == nil {
		d.Weekly = in.Weekly
	}
	return d
}

// contestInput is the contest JSON carried in the "data" form field.
type contestInput struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	StartDate string      `json:"startDate"`
	EndDate   string      `json:"endDate"`
	Slabs     []slabInput `json:"slabs"`
}

func (in contestInput) save() orchestrators.SaveContestInput {
	drafts := make([]contest.SlabDraft, 0, len(in.Slabs))
	for _, s := range in.Slabs {
		drafts = append(drafts, s.draft())
	}
	return orchestrators.SaveContestInput{
		ID:        in.ID,
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Slabs:     drafts,
	}
}

type slabResponse struct {
	Name         string `json:"name"`
	DailyTarget  int    `json:"dailyTarget"`
	WeeklyTarget int    `json:"weeklyTarget"`
	Incentive    int    `json:"incentive"`
}

type contestResponse struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	StartDate string         `json:"startDate"`
	EndDate   string         `json:"endDate"`
	Slabs     []slabResponse `json:"slabs"`
}

func toContestResponse(c contest.Contest) contestResponse {
	slabs := make([]slabResponse, 0, len(c.Slabs))
	for _, s := range c.Slabs {
		slabs = append(slabs, slabResponse(s))
	}
	return contestResponse{ID: c.ID, Name: c.Name, StartDate: c.StartDate, EndDate: c.EndDate, Slabs: slabs}
}

func toContestResponses(contests []contest.Contest) []contestResponse {
	out := make([]contestResponse, 0, len(contests))
	for _, c := range contests {
		out = append(out, toContestResponse(c))
	}
	return out
}

type dailyResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type aggregateResponse struct {
	Daily       []dailyResponse `json:"daily"`
	WeeklyTotal int             `json:"weeklyTotal"`
}

func toAggregateResponse(agg contest.Aggregate) aggregateResponse {
	daily := make([]dailyResponse, 0, len(agg.Daily))
	for _, d := range agg.Daily {
		daily = append(daily, dailyResponse(d))
	}
	return aggregateResponse{Daily: daily, WeeklyTotal: agg.WeeklyTotal}
}

type progressResponse struct {
	Count      int     `json:"count"`
	Target     int     `json:"target"`
	Achieved   bool    `json:"achieved"`
	Percentage float64 `json:"percentage"`
	Remaining  int     `json:"remaining"`
}

type slabReportResponse struct {
	Name      string           `json:"name"`
	Incentive int              `json:"incentive"`
	Daily     progressResponse `json:"daily"`
	Weekly    progressResponse `json:"weekly"`
}

type dayReportResponse struct {
	Date     string `json:"date"`
	Weekday  string `json:"weekday"`
	Count    int    `json:"count"`
	Achieved []bool `json:"achieved"`
}

type reportResponse struct {
	Contest     contestResponse      `json:"contest"`
	Today       string               `json:"today"`
	TodayCount  int                  `json:"todayCount"`
	WeeklyTotal int                  `json:"weeklyTotal"`
	Slabs       []slabReportResponse `json:"slabs"`
	Breakdown   []dayReportResponse  `json:"breakdown"`
}

func toReportResponse(r contest.Report) reportResponse {
	out := reportResponse{
		Contest:     toContestResponse(r.Contest),
		Today:       r.Today,
		TodayCount:  r.TodayCount,
		WeeklyTotal: r.WeeklyTotal,
		Slabs:       make([]slabReportResponse, 0, len(r.Slabs)),
		Breakdown:   make([]dayReportResponse, 0, len(r.Breakdown)),
	}
	for _, s := range r.Slabs {
		out.Slabs = append(out.Slabs, slabReportResponse{
			Name:      s.Slab.Name,
			Incentive: s.Slab.Incentive,
			Daily:     progressResponse(s.Daily),
			Weekly:    progressResponse(s.Weekly),
		})
	}
	for _, d := range r.Breakdown {
		out.Breakdown = append(out.Breakdown, dayReportResponse(d))
	}
	return out
}
