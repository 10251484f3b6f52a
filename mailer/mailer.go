package mailer

import (
	"context"
	"errors"
)

var (
	// ErrSendFailed wraps any provider-level dispatch failure.
	ErrSendFailed = errors.New("mailer: failed to send email")
	// ErrInvalidConfig is returned when a sender is constructed with
	// incomplete configuration.
	ErrInvalidConfig = errors.New("mailer: invalid configuration")
)

// Message is one outbound transactional email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string
}

// Sender dispatches a message and returns the provider's message id for
// observability. Implementations must be safe for concurrent use and must
// honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}
