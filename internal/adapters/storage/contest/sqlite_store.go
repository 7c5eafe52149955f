package contest

import (
	"context"
	"encoding/json"
	"fmt"

	"leadtracker/internal/adapters/storage"
	domain "leadtracker/internal/domain/contest"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// slabRow is the stored JSON shape of one slab.
type slabRow struct {
	Name         string `json:"name"`
	DailyTarget  int    `json:"dailyTarget"`
	WeeklyTarget int    `json:"weeklyTarget"`
	Incentive    int    `json:"incentive"`
}

// Save appends a contest.
// PRE: value has been validated
// POST: The contest is the last one returned by List
func (s *SQLiteStore) Save(ctx context.Context, c domain.Contest) error {
	rows := make([]slabRow, len(c.Slabs))
	for i, sl := range c.Slabs {
		rows[i] = slabRow(sl)
	}
	slabs, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode slabs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contest (id, name, start_date, end_date, slabs) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.StartDate, c.EndDate, string(slabs))
	if err != nil {
		return fmt.Errorf("save contest: %w", err)
	}
	return nil
}

// List returns every contest in creation order, expired ones included.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Contest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, start_date, end_date, slabs FROM contest ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contests []domain.Contest
	for rows.Next() {
		var c domain.Contest
		var raw string
		if err := rows.Scan(&c.ID, &c.Name, &c.StartDate, &c.EndDate, &raw); err != nil {
			return nil, err
		}
		var slabs []slabRow
		if err := json.Unmarshal([]byte(raw), &slabs); err != nil {
			return nil, fmt.Errorf("decode slabs of contest %d: %w", c.ID, err)
		}
		for _, sl := range slabs {
			c.Slabs = append(c.Slabs, domain.Slab(sl))
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

// Delete removes the first contest whose id renders as the given string.
// PRE: none
// POST: Returns domain.ErrNotFound when nothing matched
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM contest WHERE seq = (SELECT seq FROM contest WHERE CAST(id AS TEXT) = ? ORDER BY seq LIMIT 1)`, id)
	if err != nil {
		return fmt.Errorf("delete contest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
