package lead

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Lead statuses
const (
	StatusDocPending = "Doc Pending"
	StatusHotLead    = "Hot Lead"
	StatusRecheck    = "Recheck"
	StatusPending    = "Pending"
	StatusAWH        = "AWH"
)

// ValidStatuses contains all known statuses in display order.
var ValidStatuses = []string{StatusDocPending, StatusHotLead, StatusRecheck, StatusPending, StatusAWH}

// HeaderRows is the number of rows above the first record in the sheet.
// Row indexes handed to clients are 1-based and include this offset.
const HeaderRows = 1

// DateLayout is the calendar date format used for day comparisons.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrNotFound           = errors.New("record not found")
	ErrVerificationFailed = errors.New("record verification failed")
	ErrEmptyLoanCode      = errors.New("loan code cannot be empty")
	ErrEmptyApplicationID = errors.New("application ID cannot be empty")
	ErrEmptyMobileNumber  = errors.New("mobile number cannot be empty")
	ErrInvalidStatus      = errors.New("status must be one of: Doc Pending, Hot Lead, Recheck, Pending, AWH")
	ErrInvalidSearchType  = errors.New("invalid search type")
)

// DuplicateError reports which unique field collided with an existing record.
type DuplicateError struct {
	Field string // display name, e.g. "Loan Code"
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

// Is makes errors.Is(err, ErrDuplicateKey) hold for every DuplicateError.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// Lead is one logged loan lead.
// ID is stable for the life of the record; RowIndex is the sheet position at
// read time and shifts whenever an earlier row is inserted or deleted.
type Lead struct {
	ID            string
	RowIndex      int
	Timestamp     time.Time // set on insert, never changed by update
	LoanCode      string
	ApplicationID string
	Name          string
	MobileNumber  string
	Status        string
	SubStatus     string
	Remarks       string
}

// Validate checks if the Lead has valid data.
// PRE: Lead struct is populated
// POST: Returns nil if valid, error otherwise
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.LoanCode) == "" {
		return ErrEmptyLoanCode
	}
	if strings.TrimSpace(l.ApplicationID) == "" {
		return ErrEmptyApplicationID
	}
	if strings.TrimSpace(l.MobileNumber) == "" {
		return ErrEmptyMobileNumber
	}
	if !IsKnownStatus(l.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// Date returns the calendar date of the lead's timestamp in loc.
func (l *Lead) Date(loc *time.Location) string {
	if l.Timestamp.IsZero() {
		return ""
	}
	return l.Timestamp.In(loc).Format(DateLayout)
}

// IsHotLead reports whether the lead currently counts toward contests.
func (l *Lead) IsHotLead() bool {
	return l.Status == StatusHotLead
}

// IsKnownStatus reports whether s is one of the five tracked statuses.
func IsKnownStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// FindDuplicate scans existing for a record that shares a unique field with
// candidate. The row at excludeRow is skipped (0 skips nothing).
// Fields are checked per row in the order loan code, application ID, mobile
// number; the first collision wins.
func FindDuplicate(existing []Lead, candidate Lead, excludeRow int) error {
	for _, e := range existing {
		if excludeRow != 0 && e.RowIndex == excludeRow {
			continue
		}
		if e.LoanCode == candidate.LoanCode {
			return &DuplicateError{Field: "Loan Code"}
		}
		if e.ApplicationID == candidate.ApplicationID {
			return &DuplicateError{Field: "Application ID"}
		}
		if e.MobileNumber == candidate.MobileNumber {
			return &DuplicateError{Field: "Mobile Number"}
		}
	}
	return nil
}

// CountByStatus tallies leads per known status. Every known status is present
// in the result; unknown statuses are ignored.
func CountByStatus(leads []Lead) map[string]int {
	counts := make(map[string]int, len(ValidStatuses))
	for _, s := range ValidStatuses {
		counts[s] = 0
	}
	for _, l := range leads {
		if _, ok := counts[l.Status]; ok {
			counts[l.Status]++
		}
	}
	return counts
}

// SearchField names a searchable unique column.
type SearchField string

// Searchable fields
const (
	SearchLoanCode      SearchField = "loanCode"
	SearchApplicationID SearchField = "applicationId"
	SearchMobileNumber  SearchField = "mobileNumber"
)

// ParseSearchField maps a client search type onto a SearchField.
func ParseSearchField(s string) (SearchField, error) {
	switch SearchField(s) {
	case SearchLoanCode, SearchApplicationID, SearchMobileNumber:
		return SearchField(s), nil
	}
	return "", ErrInvalidSearchType
}

// Value returns the lead's value for field.
func (l *Lead) Value(field SearchField) string {
	switch field {
	case SearchLoanCode:
		return l.LoanCode
	case SearchApplicationID:
		return l.ApplicationID
	case SearchMobileNumber:
		return l.MobileNumber
	}
	return ""
}

// Match reports whether field contains needle, ignoring case.
// An empty needle matches every lead.
func (l *Lead) Match(field SearchField, needle string) bool {
	fold := cases.Fold() // a Caser is not safe to share between goroutines
	return strings.Contains(fold.String(l.Value(field)), fold.String(needle))
}
