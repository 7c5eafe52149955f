package contest

import (
	"time"

	"leadtracker/internal/domain/lead"
)

// DailyCount is the number of Hot Leads logged on one calendar date.
type DailyCount struct {
	Date  string
	Count int
}

// Aggregate is the per-day and range-wide Hot Lead tally for a date range.
type Aggregate struct {
	Daily       []DailyCount // one entry per date, ascending, zero days included
	WeeklyTotal int
}

// ParseDay parses a YYYY-MM-DD calendar date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(lead.DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// MaxRangeDays bounds the dates a single tally may cover.
const MaxRangeDays = 366

// SpanDays is the number of calendar dates from start to end inclusive,
// zero when end is before start.
func SpanDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	// Sub saturates, so far-apart dates still compare as too long.
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

// Days lists every calendar date from start to end inclusive.
// An end before start yields no dates.
func Days(start, end time.Time) []string {
	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(lead.DateLayout))
	}
	return days
}

// Tally counts Hot Leads per date over [startDate, endDate] in a single pass
// over leads. Lead timestamps are mapped onto dates in loc.
// PRE: startDate and endDate are YYYY-MM-DD
// POST: len(Daily) == number of days in the range; WeeklyTotal == sum of
// counts; ErrRangeTooLong beyond MaxRangeDays
func Tally(startDate, endDate string, leads []lead.Lead, loc *time.Location) (Aggregate, error) {
	start, err := ParseDay(startDate)
	if err != nil {
		return Aggregate{}, err
	}
	end, err := ParseDay(endDate)
	if err != nil {
		return Aggregate{}, err
	}
	if SpanDays(start, end) > MaxRangeDays {
		return Aggregate{}, ErrRangeTooLong
	}

	perDay := make(map[string]int)
	total := 0
	for _, l := range leads {
		if !l.IsHotLead() {
			continue
		}
		d := l.Date(loc)
		if d < startDate || d > endDate {
			continue
		}
		perDay[d]++
		total++
	}

	days := Days(start, end)
	daily := make([]DailyCount, 0, len(days))
	for _, d := range days {
		daily = append(daily, DailyCount{Date: d, Count: perDay[d]})
	}
	return Aggregate{Daily: daily, WeeklyTotal: total}, nil
}

// CountOn returns the tally for date, or 0 when date is outside the range.
func (a Aggregate) CountOn(date string) int {
	for _, d := range a.Daily {
		if d.Date == date {
			return d.Count
		}
	}
	return 0
}
