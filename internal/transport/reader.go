package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// LineSource yields CRLF-terminated lines from the counter.
type LineSource interface {
	ReadLine(ctx context.Context) (string, error)
}

// WithLogger sets up a Reader logger.
func WithLogger(logger *slog.Logger) func(*Reader) {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Reader pumps lines from a LineSource into a channel from a dedicated
// goroutine, so the rest of the program never blocks on the serial port.
type Reader struct {
	conn    LineSource
	logger  *slog.Logger
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReader creates a line pump around conn.
func NewReader(conn LineSource, options ...func(*Reader)) *Reader {
	r := Reader{
		conn:   conn,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Begin starts reading lines and sending them to the lines channel. It
// returns an error channel which is closed when reading stops; a transport
// failure is sent on it first. Begin does not close the lines channel.
func (r *Reader) Begin(ctx context.Context, lines chan<- string) (<-chan error, error) {
	if r.running.Load() {
		return nil, fmt.Errorf("reader is already running")
	}
	r.running.Store(true)

	ctx, r.cancel = context.WithCancel(ctx)
	stopped := make(chan error, 1)

	r.wg.Add(1)
	go func() {
		defer close(stopped)
		defer r.wg.Done()
		defer r.running.Store(false)

		r.logger.Info("starting line collection ...")

		for {
			line, err := r.conn.ReadLine(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					r.logger.Info("line collection stopped")
					return
				}

				r.logger.Error(err.Error())
				stopped <- err
				return
			}

			select {
			case lines <- line:
			case <-ctx.Done():
				r.logger.Info("line collection stopped")
				return
			}
		}
	}()

	return stopped, nil
}

// Stop cancels the pump and waits for its goroutine to exit. It is safe
// to call when the pump is not running.
func (r *Reader) Stop() {
	if !r.running.Load() {
		return
	}

	r.cancel()
	r.wg.Wait()
}
