package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"leadtracker/internal/domain/lead"
)

// mockLeadStore keeps leads in sheet order and derives row indexes like the SQLite store.
type mockLeadStore struct {
	leads   []lead.Lead
	listErr error
}

func (m *mockLeadStore) positioned() []lead.Lead {
	out := make([]lead.Lead, len(m.leads))
	for i, l := range m.leads {
		l.RowIndex = i + lead.HeaderRows + 1
		out[i] = l
	}
	return out
}

func (m *mockLeadStore) Append(_ context.Context, l lead.Lead) error {
	m.leads = append(m.leads, l)
	return nil
}

func (m *mockLeadStore) List(_ context.Context) ([]lead.Lead, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.positioned(), nil
}

func (m *mockLeadStore) GetAt(_ context.Context, rowIndex int) (lead.Lead, error) {
	all := m.positioned()
	i := rowIndex - lead.HeaderRows - 1
	if i < 0 || i >= len(all) {
		return lead.Lead{}, lead.ErrNotFound
	}
	return all[i], nil
}

func (m *mockLeadStore) Update(_ context.Context, l lead.Lead) error {
	for i := range m.leads {
		if m.leads[i].ID == l.ID {
			l.Timestamp = m.leads[i].Timestamp
			m.leads[i] = l
			return nil
		}
	}
	return lead.ErrNotFound
}

func (m *mockLeadStore) Delete(_ context.Context, id string) error {
	for i := range m.leads {
		if m.leads[i].ID == id {
			m.leads = append(m.leads[:i], m.leads[i+1:]...)
			return nil
		}
	}
	return lead.ErrNotFound
}

var clockTime = time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC)

func clockNow() time.Time { return clockTime }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("lead-%03d", n)
	}
}

func fields(code string) LeadFields {
	return LeadFields{
		LoanCode:      code,
		ApplicationID: "APP-" + code,
		Name:          "Borrower " + code,
		MobileNumber:  "98" + code,
		Status:        lead.StatusPending,
	}
}

func addDeps(store *mockLeadStore) AddLeadDeps {
	return AddLeadDeps{LeadStore: store, Lock: &sync.Mutex{}, GenerateID: sequentialIDs(), Now: clockNow}
}

// seedLeads adds leads through the orchestrator so rows start at 2.
func seedLeads(t *testing.T, store *mockLeadStore, codes ...string) {
	t.Helper()
	deps := addDeps(store)
	for _, c := range codes {
		if _, err := ExecuteAddLead(context.Background(), fields(c), deps); err != nil {
			t.Fatalf("seed %s: %v", c, err)
		}
	}
}

// TestExecuteAddLead_Valid stamps id, time and row index.
func TestExecuteAddLead_Valid(t *testing.T) {
	store := &mockLeadStore{}
	seedLeads(t, store, "100")

	l, err := ExecuteAddLead(context.Background(), fields("200"), AddLeadDeps{
		LeadStore: store, Lock: &sync.Mutex{}, GenerateID: func() string { return "fixed" }, Now: clockNow,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ID != "fixed" || !l.Timestamp.Equal(clockTime) {
		t.Errorf("lead = %+v", l)
	}
	if l.RowIndex != 3 {
		t.Errorf("RowIndex = %d, want 3", l.RowIndex)
	}
	if len(store.leads) != 2 {
		t.Errorf("store has %d leads, want 2", len(store.leads))
	}
}

// TestExecuteAddLead_Duplicates rejects a collision on any unique field.
func TestExecuteAddLead_Duplicates(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *LeadFields)
		wantMsg string
	}{
		{"loan code", func(f *LeadFields) { f.LoanCode = "100" }, "Loan Code already exists"},
		{"application id", func(f *LeadFields) { f.ApplicationID = "APP-100" }, "Application ID already exists"},
		{"mobile number", func(f *LeadFields) { f.MobileNumber = "98100" }, "Mobile Number already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockLeadStore{}
			seedLeads(t, store, "100")

			f := fields("200")
			tt.mutate(&f)
			_, err := ExecuteAddLead(context.Background(), f, addDeps(store))
			if !errors.Is(err, lead.ErrDuplicateKey) {
				t.Fatalf("error = %v, want ErrDuplicateKey", err)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
			if len(store.leads) != 1 {
				t.Errorf("store mutated: %d leads", len(store.leads))
			}
		})
	}
}

// TestExecuteAddLead_Invalid rejects missing required fields before touching the store.
func TestExecuteAddLead_Invalid(t *testing.T) {
	store := &mockLeadStore{listErr: errors.New("must not be called")}
	f := fields("100")
	f.Status = "Closed"
	if _, err := ExecuteAddLead(context.Background(), f, addDeps(store)); !errors.Is(err, lead.ErrInvalidStatus) {
		t.Errorf("error = %v, want ErrInvalidStatus", err)
	}
}

// TestExecuteUpdateLead_SelfExclusion allows re-saving a lead's own unique fields.
func TestExecuteUpdateLead_SelfExclusion(t *testing.T) {
	store := &mockLeadStore{}
	seedLeads(t, store, "100", "200")

	f := fields("200")
	f.Status = lead.StatusHotLead
	change, err := ExecuteUpdateLead(context.Background(), UpdateLeadInput{LoanCode: "200", RowIndex: 3, Fields: f},
		UpdateLeadDeps{LeadStore: store, Lock: &sync.Mutex{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if change.PreviousStatus != lead.StatusPending || change.Lead.Status != lead.StatusHotLead {
		t.Errorf("change = %+v", change)
	}
	if change.Lead.ID != "lead-002" || !change.Lead.Timestamp.Equal(clockTime) {
		t.Errorf("identity not preserved: %+v", change.Lead)
	}
}

// TestExecuteUpdateLead_DuplicateOfOtherRow rejects taking another row's field.
func TestExecuteUpdateLead_DuplicateOfOtherRow(t *testing.T) {
	store := &mockLeadStore{}
	seedLeads(t, store, "100", "200")

	f := fields("200")
	f.MobileNumber = "98100"
	_, err := ExecuteUpdateLead(context.Background(), UpdateLeadInput{LoanCode: "200", RowIndex: 3, Fields: f},
		UpdateLeadDeps{LeadStore: store, Lock: &sync.Mutex{}})
	var dup *lead.DuplicateError
	if !errors.As(err, &dup) || dup.Field != "Mobile Number" {
		t.Errorf("error = %v, want Mobile Number duplicate", err)
	}
}

// TestExecuteUpdateLead_VerificationFailed leaves the sheet untouched when the row moved.
func TestExecuteUpdateLead_VerificationFailed(t *testing.T) {
	tests := []struct {
		name     string
		loanCode string
		rowIndex int
	}{
		{"row holds another loan code", "100", 3},
		{"row past the end", "200", 9},
		{"header row", "200", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockLeadStore{}
			seedLeads(t, store, "100", "200")
			before := store.positioned()

			f := fields("300")
			_, err := ExecuteUpdateLead(context.Background(), UpdateLeadInput{LoanCode: tt.loanCode, RowIndex: tt.rowIndex, Fields: f},
				UpdateLeadDeps{LeadStore: store, Lock: &sync.Mutex{}})
			if !errors.Is(err, lead.ErrVerificationFailed) {
				t.Fatalf("error = %v, want ErrVerificationFailed", err)
			}
			after := store.positioned()
			for i := range before {
				if before[i] != after[i] {
					t.Errorf("row %d changed: %+v -> %+v", i+2, before[i], after[i])
				}
			}
		})
	}
}

// TestExecuteDeleteLead verifies before removing and shifts later rows.
func TestExecuteDeleteLead(t *testing.T) {
	store := &mockLeadStore{}
	seedLeads(t, store, "100", "200", "300")
	deps := DeleteLeadDeps{LeadStore: store, Lock: &sync.Mutex{}}

	if err := ExecuteDeleteLead(context.Background(), DeleteLeadInput{LoanCode: "300", RowIndex: 3}, deps); !errors.Is(err, lead.ErrVerificationFailed) {
		t.Fatalf("mismatched delete error = %v, want ErrVerificationFailed", err)
	}
	if err := ExecuteDeleteLead(context.Background(), DeleteLeadInput{LoanCode: "200", RowIndex: 3}, deps); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := store.GetAt(context.Background(), 3)
	if err != nil || got.LoanCode != "300" {
		t.Errorf("row 3 after delete = %+v, %v; want loan code 300", got, err)
	}
}

// TestExecuteAddLead_ConcurrentDuplicates lets exactly one of many racing inserts win.
func TestExecuteAddLead_ConcurrentDuplicates(t *testing.T) {
	store := &mockLeadStore{}
	deps := addDeps(store)
	var idMu sync.Mutex
	gen := deps.GenerateID
	deps.GenerateID = func() string {
		idMu.Lock()
		defer idMu.Unlock()
		return gen()
	}

	var wg sync.WaitGroup
	var okMu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ExecuteAddLead(context.Background(), fields("777"), deps); err == nil {
				okMu.Lock()
				ok++
				okMu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 1 || len(store.leads) != 1 {
		t.Errorf("successful inserts = %d, stored = %d; want 1 and 1", ok, len(store.leads))
	}
}
