// Package scheduler enforces the counter's half-duplex command discipline:
// a FIFO of outgoing commands with at most one in flight, released by
// acknowledgement or stream-sample lines.
package scheduler

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
)

// DefaultSettleDelay is applied before writing the last queued command, so
// a burst of commands does not starve the device's line buffer. A pacing
// guard, not a protocol requirement.
const DefaultSettleDelay = 200 * time.Millisecond

// ErrNotEstablished is returned when a dispatch is attempted while the
// transport connection is down.
var ErrNotEstablished = errors.New("serial connection not established")

// Writer is the transport surface the scheduler needs: a gated string
// write. Satisfied by transport.Serial.
type Writer interface {
	WriteString(payload string) error
	Established() bool
}

// WithSettleDelay overrides the queue-drained settle delay.
func WithSettleDelay(d time.Duration) func(*Queue) {
	return func(q *Queue) {
		q.settle = d
	}
}

// WithLogger sets the logger for the queue.
func WithLogger(logger *slog.Logger) func(*Queue) {
	return func(q *Queue) {
		q.logger = logger.With(slog.String("component", "scheduler"))
	}
}

// Queue is the half-duplex command queue. Enqueue may be called from the
// presentation context while Dispatch runs on the reader context, so all
// state is guarded by one mutex.
type Queue struct {
	mu            sync.Mutex
	pending       []fa5.Outgoing
	awaitingReply bool

	settle time.Duration
	logger *slog.Logger
}

// New creates an empty command queue.
func New(options ...func(*Queue)) *Queue {
	q := Queue{
		settle: DefaultSettleDelay,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&q)
	}

	return &q
}

// Enqueue appends a command to the FIFO tail. Always succeeds.
func (q *Queue) Enqueue(o fa5.Outgoing) {
	q.mu.Lock()
	q.pending = append(q.pending, o)
	q.mu.Unlock()
}

// Len returns the number of commands still queued (not counting one in
// flight).
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// AwaitingReply reports whether a command is in flight.
func (q *Queue) AwaitingReply() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.awaitingReply
}

// next pops the queue head and marks a reply outstanding. The second
// return is false when there was nothing to send (not an error); drained
// reports whether the pop emptied the queue.
func (q *Queue) next() (payload string, ok, drained bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.awaitingReply = false
		return "", false, true
	}

	head := q.pending[0]
	q.pending = q.pending[1:]
	q.awaitingReply = true
	return head.Wire(), true, len(q.pending) == 0
}

// Dispatch releases the next queued command to the transport. Called when
// the received line allows an interruption (see fa5.ReleasesCommand). An
// empty queue is a no-op returning ("", nil). The sent payload is returned
// for echoing to the operator.
func (q *Queue) Dispatch(w Writer) (string, error) {
	payload, ok, drained := q.next()
	if !ok {
		return "", nil
	}

	if !w.Established() {
		return "", ErrNotEstablished
	}

	if drained {
		time.Sleep(q.settle)
	}

	if err := w.WriteString(payload); err != nil {
		return "", err
	}

	q.logger.Debug("command sent", slog.String("payload", payload))
	return payload, nil
}
