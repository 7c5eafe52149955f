package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leadtracker/internal/adapters/email"
	"leadtracker/internal/domain/outbox"
)

// Outbox retry defaults.
const (
	DefaultOutboxBaseDelay = time.Minute
	DefaultOutboxMaxDelay  = time.Hour
	DefaultOutboxBatchSize = 25
)

// OutboxStore lists and updates queued notifications.
type OutboxStore interface {
	OutboxSaver
	ListDue(ctx context.Context, now time.Time, limit int) ([]outbox.Entry, error)
}

// DeliverOutboxDeps holds dependencies for DeliverOutbox.
type DeliverOutboxDeps struct {
	OutboxStore OutboxStore
	Sender      email.Sender
	Now         func() time.Time
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BatchSize   int
}

// DeliverOutboxResult counts what one pass did.
type DeliverOutboxResult struct {
	Sent   int
	Failed int // attempts that failed, whether or not the entry gave up
}

// ExecuteDeliverOutbox retries queued notifications whose backoff has elapsed.
// PRE: deps.OutboxStore and deps.Sender are set
// POST: Each due entry is attempted once and saved with its new state
func ExecuteDeliverOutbox(ctx context.Context, deps DeliverOutboxDeps) (DeliverOutboxResult, error) {
	base, max, batch := deps.BaseDelay, deps.MaxDelay, deps.BatchSize
	if base <= 0 {
		base = DefaultOutboxBaseDelay
	}
	if max < base {
		max = DefaultOutboxMaxDelay
	}
	if batch <= 0 {
		batch = DefaultOutboxBatchSize
	}

	// Entries still in backoff are filtered by the store, so they never
	// crowd newer due entries out of the batch.
	entries, err := deps.OutboxStore.ListDue(ctx, deps.Now(), batch)
	if err != nil {
		return DeliverOutboxResult{}, fmt.Errorf("list due notifications: %w", err)
	}

	var res DeliverOutboxResult
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		e.MarkAttempt(deps.Now())
		sent, err := deps.Sender.Send(ctx, email.SendRequest{To: e.To, Subject: e.Subject, HTML: e.HTML})
		if err != nil {
			e.MarkFailed(err, base, max)
			res.Failed++
			slog.Warn("outbox_delivery_failed", "entry_id", e.ID, "attempt", e.Attempts, "status", e.Status, "error", err)
		} else {
			e.MarkSent(sent.MessageID)
			res.Sent++
			slog.Info("outbox_delivered", "entry_id", e.ID, "attempt", e.Attempts, "message_id", sent.MessageID)
		}
		if err := deps.OutboxStore.Save(ctx, e); err != nil {
			return res, fmt.Errorf("save notification %s: %w", e.ID, err)
		}
	}
	return res, nil
}

// StartOutboxWorker runs ExecuteDeliverOutbox every interval until ctx ends.
// PRE: interval > 0
// POST: Returns a channel closed once the worker has stopped
func StartOutboxWorker(ctx context.Context, interval time.Duration, deps DeliverOutboxDeps) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("outbox_worker_stopped")
				return
			case <-ticker.C:
				res, err := ExecuteDeliverOutbox(ctx, deps)
				if err != nil && ctx.Err() == nil {
					slog.Error("outbox_worker_pass_failed", "error", err)
					continue
				}
				if res.Sent+res.Failed > 0 {
					slog.Info("outbox_worker_pass", "sent", res.Sent, "failed", res.Failed)
				}
			}
		}
	}()
	return done
}
