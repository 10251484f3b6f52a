package mailer

import (
	"context"
	"fmt"
	"sync"
)

// Recorder is an in-memory [Sender] for development and tests. It records
// every message and can be told to fail on demand.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	nextID   int
	FailNext error
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Send implements [Sender], capturing msg.
func (r *Recorder) Send(ctx context.Context, msg Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailNext != nil {
		err := r.FailNext
		r.FailNext = nil
		return "", err
	}

	r.nextID++
	r.messages = append(r.messages, msg)
	return fmt.Sprintf("recorded-%d", r.nextID), nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
