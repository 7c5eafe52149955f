package lead

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leadtracker/internal/adapters/storage"
	domain "leadtracker/internal/domain/lead"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// positioned numbers every lead by insertion order, offset past the header rows.
var positioned = fmt.Sprintf(`SELECT id, created_at, loan_code, application_id, name, mobile_number,
		status, sub_status, remarks,
		ROW_NUMBER() OVER (ORDER BY seq) + %d AS row_index
	FROM lead`, domain.HeaderRows)

// Append inserts a lead after every existing one.
// PRE: value has been validated and carries an ID and Timestamp
// POST: The lead is the last row
func (s *SQLiteStore) Append(ctx context.Context, l domain.Lead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lead (id, created_at, loan_code, application_id, name, mobile_number,
		   status, sub_status, remarks)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Timestamp.UTC().Format(timeLayout), l.LoanCode, l.ApplicationID, l.Name,
		l.MobileNumber, l.Status, l.SubStatus, l.Remarks)
	if err != nil {
		return fmt.Errorf("append lead: %w", err)
	}
	return nil
}

// List returns every lead in sheet order.
// POST: RowIndex runs from HeaderRows+1 without gaps
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Lead, error) {
	rows, err := s.db.QueryContext(ctx, positioned+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

// ListCreatedBetween returns leads created in [from, to), in sheet order.
// Row indexes are positions in the whole sheet, not in the result.
func (s *SQLiteStore) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`WITH sheet AS (`+positioned+`)
		 SELECT * FROM sheet WHERE created_at >= ? AND created_at < ? ORDER BY row_index`,
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

// GetAt returns the lead currently at rowIndex.
// PRE: none
// POST: Returns the lead, or domain.ErrNotFound if no row sits there
func (s *SQLiteStore) GetAt(ctx context.Context, rowIndex int) (domain.Lead, error) {
	offset := rowIndex - domain.HeaderRows - 1
	if offset < 0 {
		return domain.Lead{}, domain.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, positioned+` ORDER BY seq LIMIT 1 OFFSET ?`, offset)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Lead{}, domain.ErrNotFound
	}
	return l, err
}

// Update overwrites every field of the lead with value.ID except its creation time.
// PRE: value has been validated
// POST: Returns domain.ErrNotFound if no lead has that ID
func (s *SQLiteStore) Update(ctx context.Context, l domain.Lead) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE lead SET loan_code = ?, application_id = ?, name = ?, mobile_number = ?,
		   status = ?, sub_status = ?, remarks = ?
		 WHERE id = ?`,
		l.LoanCode, l.ApplicationID, l.Name, l.MobileNumber, l.Status, l.SubStatus, l.Remarks, l.ID)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return requireOne(res)
}

// Delete removes a lead by ID. Later rows move up by one.
// PRE: id is non-empty
// POST: Returns domain.ErrNotFound if no lead has that ID
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM lead WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return requireOne(res)
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanLead scans a single positioned row into a Lead.
func scanLead(row scanner) (domain.Lead, error) {
	var l domain.Lead
	var createdAt string
	err := row.Scan(&l.ID, &createdAt, &l.LoanCode, &l.ApplicationID, &l.Name, &l.MobileNumber,
		&l.Status, &l.SubStatus, &l.Remarks, &l.RowIndex)
	if err != nil {
		return domain.Lead{}, err
	}
	l.Timestamp = parseTime(createdAt, l.ID)
	return l, nil
}

// scanLeads scans positioned rows into a slice of Leads.
func scanLeads(rows *sql.Rows) ([]domain.Lead, error) {
	var leads []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// parseTime parses a stored timestamp, logging a warning on failure.
func parseTime(raw, leadID string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		slog.Warn("lead_time_parse_failed", "lead_id", leadID, "raw", raw, "error", err)
	}
	return t
}
