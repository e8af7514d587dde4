// Package brokertest provides an in-memory broker.Producer for tests.
package brokertest

import (
	"context"
	"sync"

	"github.com/brooktewabe/Activity-Log-Service/internal/broker"
)

// Recorder keeps every produced message. Set Err to make Produce fail.
type Recorder struct {
	mu       sync.Mutex
	messages []broker.Message
	calls    int
	closed   bool

	Err error
}

func (r *Recorder) Produce(ctx context.Context, msgs ...broker.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.Err != nil {
		return r.Err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.messages = append(r.messages, msgs...)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Messages returns a copy of what was produced so far.
func (r *Recorder) Messages() []broker.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broker.Message(nil), r.messages...)
}

// Calls is the number of Produce invocations, failed ones included.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

var _ broker.Producer = (*Recorder)(nil)
