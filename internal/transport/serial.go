// Package transport provides the serial byte-stream link to the counter:
// CRLF-terminated line reads on one side, gated raw writes on the other.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultPollInterval is the sleep between empty reads, to avoid
	// busy-waiting while the counter integrates over its gate time.
	DefaultPollInterval = 100 * time.Millisecond

	readChunkSize = 256
)

// ErrNotEstablished is returned by writes while the connection is down.
var ErrNotEstablished = errors.New("serial connection not established")

var crlf = []byte("\r\n")

// Config describes the serial link. The counter speaks 8N1.
type Config struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
}

// WithPollInterval overrides the sleep between empty reads.
func WithPollInterval(d time.Duration) func(*Serial) {
	return func(s *Serial) {
		s.poll = d
	}
}

// Serial is the line-oriented connection to the counter. ReadLine must be
// called from a single reader goroutine; WriteString may be called from
// another goroutine but is serialized by the scheduler's single-in-flight
// discipline.
type Serial struct {
	rw          io.ReadWriteCloser
	established atomic.Bool
	poll        time.Duration

	acc   bytes.Buffer
	chunk []byte
}

// Open opens the serial port and marks the connection established.
func Open(cfg Config, options ...func(*Serial)) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", cfg.Port, err)
	}

	if cfg.ReadTimeout > 0 {
		if err = port.SetReadTimeout(cfg.ReadTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("setting read timeout: %w", err)
		}
	}

	s := newSerial(port, options...)
	s.established.Store(true)
	return s, nil
}

func newSerial(rw io.ReadWriteCloser, options ...func(*Serial)) *Serial {
	s := Serial{
		rw:    rw,
		poll:  DefaultPollInterval,
		chunk: make([]byte, readChunkSize),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// ReadLine blocks until a full CRLF-terminated line has accumulated and
// returns it, terminator included. One stream line is not sent in one go:
// with a 10 s gate time its two parts arrive 10 s apart, so bytes are
// accumulated across reads until the terminator shows up. A transport
// error is terminal and drops the established flag.
func (s *Serial) ReadLine(ctx context.Context) (string, error) {
	for {
		if i := bytes.Index(s.acc.Bytes(), crlf); i >= 0 {
			return string(s.acc.Next(i + len(crlf))), nil
		}

		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := s.rw.Read(s.chunk)
		if err != nil {
			s.established.Store(false)
			return "", fmt.Errorf("reading from serial port: %w", err)
		}
		if n > 0 {
			s.acc.Write(s.chunk[:n])
			continue
		}

		// Read timeout expired with no data. Not a stall: the gap
		// between stream samples can be tens of seconds.
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

// WriteString writes a command payload to the port. Writes are gated by
// the established flag.
func (s *Serial) WriteString(payload string) error {
	if !s.established.Load() {
		return ErrNotEstablished
	}

	if _, err := s.rw.Write([]byte(payload)); err != nil {
		s.established.Store(false)
		return fmt.Errorf("writing to serial port: %w", err)
	}
	return nil
}

// Established reports whether the connection is up.
func (s *Serial) Established() bool {
	return s.established.Load()
}

// Close drops the established flag and releases the port.
func (s *Serial) Close() error {
	s.established.Store(false)
	return s.rw.Close()
}
