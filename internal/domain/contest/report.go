package contest

// SlabReport is one slab's progress for today and for the whole range.
type SlabReport struct {
	Slab   Slab
	Daily  Progress
	Weekly Progress
}

// DayReport is one row of the daily breakdown: the day's count and, per
// slab in contest order, whether the daily target was met.
type DayReport struct {
	Date     string
	Weekday  string
	Count    int
	Achieved []bool
}

// Report is the full progress view of a contest on a given day.
type Report struct {
	Contest     Contest
	Today       string
	TodayCount  int
	WeeklyTotal int
	Slabs       []SlabReport
	Breakdown   []DayReport
}

// BuildReport combines a contest with its aggregate as of today.
// PRE: agg was tallied over the contest's own date range
// POST: Returns one SlabReport per slab and one DayReport per aggregated day
func BuildReport(c Contest, agg Aggregate, today string) (Report, error) {
	r := Report{
		Contest:     c,
		Today:       today,
		TodayCount:  agg.CountOn(today),
		WeeklyTotal: agg.WeeklyTotal,
	}

	for _, s := range c.Slabs {
		daily, err := NewProgress(r.TodayCount, s.DailyTarget)
		if err != nil {
			return Report{}, err
		}
		weekly, err := NewProgress(r.WeeklyTotal, s.WeeklyTarget)
		if err != nil {
			return Report{}, err
		}
		r.Slabs = append(r.Slabs, SlabReport{Slab: s, Daily: daily, Weekly: weekly})
	}

	for _, d := range agg.Daily {
		day := DayReport{Date: d.Date, Count: d.Count}
		if t, err := ParseDay(d.Date); err == nil {
			day.Weekday = t.Weekday().String()[:3]
		}
		for _, s := range c.Slabs {
			day.Achieved = append(day.Achieved, d.Count >= s.DailyTarget)
		}
		r.Breakdown = append(r.Breakdown, day)
	}
	return r, nil
}
