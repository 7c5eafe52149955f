package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadtracker/internal/adapters/storage"
	domain "leadtracker/internal/domain/outbox"
)

// Fixed width in UTC, so timestamps compare correctly as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

const entryColumns = `id, recipients, subject, html, status, attempts, max_attempts, last_attempted_at, next_attempt_at, created_at, message_id, last_error`

// SQLiteStore implements the outbox Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new outbox store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
// PRE: id is non-empty
// POST: Returns the entry or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM outbox WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, domain.ErrNotFound
	}
	return e, err
}

// Save persists an outbox entry to the database.
// PRE: e was built by domain.New
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, e domain.Entry) error {
	to, err := json.Marshal(e.To)
	if err != nil {
		return fmt.Errorf("encode recipients: %w", err)
	}
	lastAttemptedAt := ""
	if !e.LastAttemptedAt.IsZero() {
		lastAttemptedAt = e.LastAttemptedAt.UTC().Format(dateLayout)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   recipients=excluded.recipients, subject=excluded.subject, html=excluded.html,
		   status=excluded.status, attempts=excluded.attempts, max_attempts=excluded.max_attempts,
		   last_attempted_at=excluded.last_attempted_at, next_attempt_at=excluded.next_attempt_at,
		   message_id=excluded.message_id, last_error=excluded.last_error`,
		e.ID, string(to), e.Subject, e.HTML, e.Status, e.Attempts, e.MaxAttempts,
		lastAttemptedAt, e.NextAttemptAt.UTC().Format(dateLayout), e.CreatedAt.UTC().Format(dateLayout),
		e.MessageID, e.LastError)
	if err != nil {
		return fmt.Errorf("save outbox entry: %w", err)
	}
	return nil
}

// ListDue returns non-terminal entries whose next attempt is at or before now.
// PRE: limit > 0
// POST: Returns up to limit entries, longest overdue first
func (s *SQLiteStore) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM outbox
		 WHERE status IN (?, ?) AND next_attempt_at <= ?
		 ORDER BY next_attempt_at ASC, created_at ASC, id ASC LIMIT ?`,
		domain.StatusPending, domain.StatusRetrying, now.UTC().Format(dateLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByStatus groups entries by status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var e domain.Entry
	var to, createdAt, lastAttemptedAt, nextAttemptAt string
	err := row.Scan(&e.ID, &to, &e.Subject, &e.HTML, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &nextAttemptAt, &createdAt, &e.MessageID, &e.LastError)
	if err != nil {
		return domain.Entry{}, err
	}
	if err := json.Unmarshal([]byte(to), &e.To); err != nil {
		return domain.Entry{}, fmt.Errorf("decode recipients of %s: %w", e.ID, err)
	}
	e.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	e.NextAttemptAt, _ = time.Parse(dateLayout, nextAttemptAt)
	if lastAttemptedAt != "" {
		e.LastAttemptedAt, _ = time.Parse(dateLayout, lastAttemptedAt)
	}
	return e, nil
}
