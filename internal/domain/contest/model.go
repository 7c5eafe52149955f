package contest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Domain errors
var (
	ErrNotFound         = errors.New("contest not found")
	ErrEmptyName        = errors.New("contest name cannot be empty")
	ErrInvalidDate      = errors.New("contest dates must be YYYY-MM-DD")
	ErrNoSlabs          = errors.New("please add at least one slab with all fields filled")
	ErrInvalidTarget    = errors.New("slab targets must be greater than zero")
	ErrInvalidIncentive = errors.New("slab incentive cannot be negative")
	ErrRangeTooLong     = fmt.Errorf("date range cannot exceed %d days", MaxRangeDays)
)

// Slab is one incentive tier: reaching DailyTarget Hot Leads in a day or
// WeeklyTarget over the contest range pays Incentive.
type Slab struct {
	Name         string
	DailyTarget  int
	WeeklyTarget int
	Incentive    int
}

// Contest is a dated incentive scheme over Hot Lead counts.
// StartDate and EndDate are inclusive calendar dates (YYYY-MM-DD).
type Contest struct {
	ID        int64
	Name      string
	StartDate string
	EndDate   string
	Slabs     []Slab
}

// Validate checks if the Contest has valid data.
// Date ordering is not checked: an inverted range aggregates to nothing.
// PRE: Contest struct is populated
// POST: Returns nil if valid, error otherwise
func (c *Contest) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	start, err := ParseDay(c.StartDate)
	if err != nil {
		return err
	}
	end, err := ParseDay(c.EndDate)
	if err != nil {
		return err
	}
	if SpanDays(start, end) > MaxRangeDays {
		return ErrRangeTooLong
	}
	if len(c.Slabs) == 0 {
		return ErrNoSlabs
	}
	for _, s := range c.Slabs {
		if s.DailyTarget <= 0 || s.WeeklyTarget <= 0 {
			return fmt.Errorf("%s: %w", s.Name, ErrInvalidTarget)
		}
		if s.Incentive < 0 {
			return fmt.Errorf("%s: %w", s.Name, ErrInvalidIncentive)
		}
	}
	return nil
}

// IDString is the id as clients compare it.
func (c *Contest) IDString() string {
	return strconv.FormatInt(c.ID, 10)
}

// IsExpired reports whether the contest ended strictly before today.
func (c *Contest) IsExpired(today string) bool {
	return c.EndDate < today
}

// IsActive reports whether today falls inside the contest range.
func (c *Contest) IsActive(today string) bool {
	return c.StartDate <= today && today <= c.EndDate
}

// SlabDraft is a slab as submitted by a form, where any number may be missing.
type SlabDraft struct {
	Daily     *int
	Weekly    *int
	Incentive *int
}

// NormalizeSlabs drops drafts with a missing field and names the survivors
// after their position in the submitted list ("Slab 1", "Slab 3", ...).
// PRE: none
// POST: Returns at least one slab, or ErrNoSlabs
func NormalizeSlabs(drafts []SlabDraft) ([]Slab, error) {
	var slabs []Slab
	for i, d := range drafts {
		if d.Daily == nil || d.Weekly == nil || d.Incentive == nil {
			continue
		}
		slabs = append(slabs, Slab{
			Name:         fmt.Sprintf("Slab %d", i+1),
			DailyTarget:  *d.Daily,
			WeeklyTarget: *d.Weekly,
			Incentive:    *d.Incentive,
		})
	}
	if len(slabs) == 0 {
		return nil, ErrNoSlabs
	}
	return slabs, nil
}

// NewID derives a contest id from the creation time (milliseconds).
func NewID(now time.Time) int64 {
	return now.UnixMilli()
}
