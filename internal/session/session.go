// Package session holds the measurement log for one monitoring run: raw
// received lines, frequency and power samples with elapsed timestamps, the
// latest device-settings snapshot, and the statistics computed over them.
package session

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
)

var ten = decimal.NewFromInt(10)

// Sample is one measurement value with its elapsed-seconds timestamp.
// Immutable once appended.
type Sample struct {
	Value   decimal.Decimal
	Elapsed float64
}

// RawLine is one received line with its elapsed-seconds timestamp.
type RawLine struct {
	Text    string
	Elapsed float64
}

// WithLogger sets the logger for the session.
func WithLogger(logger *slog.Logger) func(*Session) {
	return func(s *Session) {
		s.logger = logger.With(slog.String("component", "session"))
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) func(*Session) {
	return func(s *Session) {
		s.now = now
	}
}

// Session is the append-only measurement log. The reader goroutine appends
// while the presentation layer reads statistics, so one mutex guards all
// state.
type Session struct {
	mu           sync.Mutex
	lines        []RawLine
	frequencies  []Sample
	power        []Sample
	start        time.Time
	settings     fa5.Settings
	resetPending bool

	now    func() time.Time
	logger *slog.Logger
}

// New creates a session. The first appended line establishes the start
// instant.
func New(options ...func(*Session)) *Session {
	s := Session{
		now:          time.Now,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		resetPending: true,
	}

	for _, option := range options {
		option(&s)
	}

	s.start = s.now()
	return &s
}

// Append processes one received line: runs the decoder, records the raw
// line, merges the settings delta and stores any decoded samples. Power
// values arrive in tenths of dBm and are divided by ten here. A malformed
// numeric payload is logged and skipped without aborting the rest of the
// line.
func (s *Session) Append(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resetPending {
		s.resetLocked(true)
	}

	elapsed := s.now().Sub(s.start).Seconds()

	measurements, delta := fa5.Decode(line)

	s.lines = append(s.lines, RawLine{Text: line, Elapsed: elapsed})
	s.settings.Merge(delta)

	for _, m := range measurements {
		value, err := decimal.NewFromString(strings.TrimSpace(m.Raw))
		if err != nil {
			s.logger.Warn("dropping malformed measurement",
				slog.String("category", m.Category.String()),
				slog.String("payload", m.Raw))
			continue
		}

		switch m.Category {
		case fa5.Frequency:
			s.frequencies = append(s.frequencies, Sample{Value: value, Elapsed: elapsed})
		case fa5.Power:
			s.power = append(s.power, Sample{Value: value.Div(ten), Elapsed: elapsed})
		}
	}
}

// Reset clears all recorded lines and samples. When resetStart is true the
// session start instant is moved to now.
func (s *Session) Reset(resetStart bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(resetStart)
}

// ResetOnNextRead defers a reset until the next Append, so a reset
// requested mid-stream does not discard the line already in flight.
func (s *Session) ResetOnNextRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetPending = true
}

func (s *Session) resetLocked(resetStart bool) {
	s.lines = nil
	s.frequencies = nil
	s.power = nil
	if resetStart {
		s.start = s.now()
	}
	s.resetPending = false
}

// Settings returns the latest device-settings snapshot.
func (s *Session) Settings() fa5.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// StartTime returns the session start instant.
func (s *Session) StartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

// Lines returns a copy of all recorded raw lines.
func (s *Session) Lines() []RawLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RawLine(nil), s.lines...)
}

// Samples returns a copy of the sample sequence for the category.
func (s *Session) Samples(c fa5.Category) []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sample(nil), s.dataLocked(c)...)
}

func (s *Session) dataLocked(c fa5.Category) []Sample {
	switch c {
	case fa5.Frequency:
		return s.frequencies
	case fa5.Power:
		return s.power
	default:
		return nil
	}
}
