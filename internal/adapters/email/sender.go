package email

import (
	"context"
	"time"
)

// SendRequest is one outgoing notification.
type SendRequest struct {
	To      []string
	From    string // empty uses the sender's default, e.g. "Lead Tracker <alerts@example.com>"
	Subject string
	HTML    string
	ReplyTo string
}

// SendResult is the provider's acknowledgement of one request.
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// Sender delivers notifications through an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
	SendBatch(ctx context.Context, reqs []SendRequest) ([]SendResult, error)
}
