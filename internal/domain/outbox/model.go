package outbox

import (
	"errors"
	"time"
)

// Status values of a queued notification.
const (
	StatusPending  = "pending"
	StatusRetrying = "retrying"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// DefaultMaxAttempts bounds delivery attempts when none is configured.
const DefaultMaxAttempts = 8

// Domain errors.
var (
	ErrNoRecipients = errors.New("notification has no recipients")
	ErrEmptySubject = errors.New("notification subject is required")
	ErrNotFound     = errors.New("outbox entry not found")
)

// Entry is a slab notification whose first delivery failed and which is
// waiting to be sent again.
type Entry struct {
	ID              string
	To              []string
	Subject         string
	HTML            string
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	NextAttemptAt   time.Time
	CreatedAt       time.Time
	MessageID       string // provider id once sent
	LastError       string
}

// New queues a notification.
// PRE: to has at least one address, subject is non-empty
// POST: Returns a pending entry with zero attempts
func New(id string, to []string, subject, html string, maxAttempts int, now time.Time) (Entry, error) {
	if len(to) == 0 {
		return Entry{}, ErrNoRecipients
	}
	if subject == "" {
		return Entry{}, ErrEmptySubject
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return Entry{
		ID:            id,
		To:            append([]string(nil), to...),
		Subject:       subject,
		HTML:          html,
		Status:        StatusPending,
		MaxAttempts:   maxAttempts,
		NextAttemptAt: now,
		CreatedAt:     now,
	}, nil
}

// IsTerminal reports whether the entry will never be attempted again.
func (e Entry) IsTerminal() bool {
	return e.Status == StatusSent || e.Status == StatusFailed
}

// Due reports whether the entry may be attempted at now.
// POST: Terminal entries are never due
func (e Entry) Due(now time.Time) bool {
	return !e.IsTerminal() && !now.Before(e.NextAttemptAt)
}

// NextRetryDelay doubles base for every attempt made so far, capped at max.
func (e Entry) NextRetryDelay(base, max time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return max
	}
	delay := base * (1 << e.Attempts)
	if delay <= 0 || delay > max {
		return max
	}
	return delay
}

// MarkAttempt records a delivery attempt at now.
// POST: Attempts incremented, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSent records a successful delivery.
func (e *Entry) MarkSent(messageID string) {
	e.Status = StatusSent
	e.MessageID = messageID
	e.LastError = ""
}

// MarkFailed records a failed attempt and schedules the next one after the
// backoff delay. The entry gives up once the attempt budget is spent.
// PRE: MarkAttempt was called for this attempt
// POST: Status is failed when Attempts >= MaxAttempts, else NextAttemptAt is
// LastAttemptedAt plus NextRetryDelay(base, max)
func (e *Entry) MarkFailed(err error, base, max time.Duration) {
	e.LastError = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
		return
	}
	e.NextAttemptAt = e.LastAttemptedAt.Add(e.NextRetryDelay(base, max))
}
