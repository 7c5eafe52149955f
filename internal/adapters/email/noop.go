package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender logs notifications instead of delivering them.
// It is used when no provider key is configured.
type NoopSender struct {
	now func() time.Time
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{now: time.Now}
}

// Send logs the request.
// POST: Returns a synthetic message ID; nothing is delivered
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	at := s.now()
	slog.Info("notification_skipped", "to", req.To, "subject", req.Subject)
	return SendResult{MessageID: fmt.Sprintf("noop-%d", at.UnixNano()), SentAt: at}, nil
}

// SendBatch logs every request in order.
// POST: len(result) == len(reqs)
func (s *NoopSender) SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error) {
	results := make([]SendResult, 0, len(reqs))
	for _, req := range reqs {
		r, _ := s.Send(ctx, req)
		results = append(results, r)
	}
	return results, nil
}
