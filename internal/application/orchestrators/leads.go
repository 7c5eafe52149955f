package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"leadtracker/internal/domain/lead"
)

// LeadStoreForOrchestrator defines the store interface needed by lead orchestrators.
type LeadStoreForOrchestrator interface {
	Append(ctx context.Context, l lead.Lead) error
	List(ctx context.Context) ([]lead.Lead, error)
	GetAt(ctx context.Context, rowIndex int) (lead.Lead, error)
	Update(ctx context.Context, l lead.Lead) error
	Delete(ctx context.Context, id string) error
}

// LeadFields carries the client-editable fields of a lead.
type LeadFields struct {
	LoanCode      string
	ApplicationID string
	Name          string
	MobileNumber  string
	Status        string
	SubStatus     string
	Remarks       string
}

func (f LeadFields) apply(l *lead.Lead) {
	l.LoanCode = f.LoanCode
	l.ApplicationID = f.ApplicationID
	l.Name = f.Name
	l.MobileNumber = f.MobileNumber
	l.Status = f.Status
	l.SubStatus = f.SubStatus
	l.Remarks = f.Remarks
}

// --- Add Lead ---

// AddLeadDeps holds dependencies for AddLead.
type AddLeadDeps struct {
	LeadStore  LeadStoreForOrchestrator
	Lock       sync.Locker
	GenerateID func() string
	Now        func() time.Time

	// OnCommit runs after a successful write with Lock still held.
	OnCommit func(ctx context.Context, change LeadChange)
}

// ExecuteAddLead appends a new lead stamped with the current time.
// PRE: input passes lead validation
// POST: Lead appended as the last row, or *lead.DuplicateError if any unique field is taken
func ExecuteAddLead(ctx context.Context, input LeadFields, deps AddLeadDeps) (lead.Lead, error) {
	var l lead.Lead
	input.apply(&l)
	if err := l.Validate(); err != nil {
		return lead.Lead{}, err
	}

	deps.Lock.Lock()
	defer deps.Lock.Unlock()

	existing, err := deps.LeadStore.List(ctx)
	if err != nil {
		return lead.Lead{}, err
	}
	if err := lead.FindDuplicate(existing, l, 0); err != nil {
		return lead.Lead{}, err
	}

	l.ID = deps.GenerateID()
	l.Timestamp = deps.Now()
	if err := deps.LeadStore.Append(ctx, l); err != nil {
		return lead.Lead{}, err
	}
	l.RowIndex = len(existing) + lead.HeaderRows + 1
	if deps.OnCommit != nil {
		deps.OnCommit(ctx, LeadChange{Lead: l})
	}

	slog.Info("lead_event", "event", "lead_added", "lead_id", l.ID, "loan_code", l.LoanCode, "status", l.Status)
	return l, nil
}

// --- Update Lead ---

// LeadChange is a lead after a write together with the status it had before.
type LeadChange struct {
	Lead           lead.Lead
	PreviousStatus string // empty for a new lead
}

// UpdateLeadInput carries input for the update lead orchestrator.
type UpdateLeadInput struct {
	LoanCode string // loan code the caller believes sits at RowIndex
	RowIndex int
	Fields   LeadFields
}

// UpdateLeadDeps holds dependencies for UpdateLead.
type UpdateLeadDeps struct {
	LeadStore LeadStoreForOrchestrator
	Lock      sync.Locker

	// OnCommit runs after a successful write with Lock still held.
	OnCommit func(ctx context.Context, change LeadChange)
}

// ExecuteUpdateLead overwrites the lead at RowIndex after verifying it still
// holds LoanCode. The creation timestamp is preserved.
// PRE: input.Fields passes lead validation
// POST: Lead updated; *lead.DuplicateError if another row holds a unique
// field; lead.ErrVerificationFailed if the row moved or vanished
func ExecuteUpdateLead(ctx context.Context, input UpdateLeadInput, deps UpdateLeadDeps) (LeadChange, error) {
	var candidate lead.Lead
	input.Fields.apply(&candidate)
	if err := candidate.Validate(); err != nil {
		return LeadChange{}, err
	}

	deps.Lock.Lock()
	defer deps.Lock.Unlock()

	existing, err := deps.LeadStore.List(ctx)
	if err != nil {
		return LeadChange{}, err
	}
	if err := lead.FindDuplicate(existing, candidate, input.RowIndex); err != nil {
		return LeadChange{}, err
	}

	current, err := verifyRow(ctx, deps.LeadStore, input.LoanCode, input.RowIndex)
	if err != nil {
		return LeadChange{}, err
	}

	previous := current.Status
	input.Fields.apply(&current)
	if err := deps.LeadStore.Update(ctx, current); err != nil {
		return LeadChange{}, err
	}

	change := LeadChange{Lead: current, PreviousStatus: previous}
	if deps.OnCommit != nil {
		deps.OnCommit(ctx, change)
	}

	slog.Info("lead_event", "event", "lead_updated", "lead_id", current.ID, "row_index", current.RowIndex,
		"status", current.Status, "previous_status", previous)
	return change, nil
}

// --- Delete Lead ---

// DeleteLeadInput carries input for the delete lead orchestrator.
type DeleteLeadInput struct {
	LoanCode string
	RowIndex int
}

// DeleteLeadDeps holds dependencies for DeleteLead.
type DeleteLeadDeps struct {
	LeadStore LeadStoreForOrchestrator
	Lock      sync.Locker
}

// ExecuteDeleteLead removes the lead at RowIndex after verifying it still holds LoanCode.
// PRE: none
// POST: Lead removed and later rows shift up; lead.ErrVerificationFailed otherwise
func ExecuteDeleteLead(ctx context.Context, input DeleteLeadInput, deps DeleteLeadDeps) error {
	deps.Lock.Lock()
	defer deps.Lock.Unlock()

	current, err := verifyRow(ctx, deps.LeadStore, input.LoanCode, input.RowIndex)
	if err != nil {
		return err
	}
	if err := deps.LeadStore.Delete(ctx, current.ID); err != nil {
		return err
	}

	slog.Info("lead_event", "event", "lead_deleted", "lead_id", current.ID, "loan_code", current.LoanCode, "row_index", input.RowIndex)
	return nil
}

// verifyRow returns the lead at rowIndex if it holds loanCode.
// A missing row is reported as a verification failure.
func verifyRow(ctx context.Context, store LeadStoreForOrchestrator, loanCode string, rowIndex int) (lead.Lead, error) {
	current, err := store.GetAt(ctx, rowIndex)
	if errors.Is(err, lead.ErrNotFound) {
		return lead.Lead{}, lead.ErrVerificationFailed
	}
	if err != nil {
		return lead.Lead{}, err
	}
	if current.LoanCode != loanCode {
		return lead.Lead{}, lead.ErrVerificationFailed
	}
	return current, nil
}
