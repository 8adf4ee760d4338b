package session

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
)

// testClock is a controllable time source.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// streamLine builds a two-measurement stream line around a frequency
// payload; the decoder strips the "$A" prefix and the 3-digit error tail.
func streamLine(freq, power string) string {
	return "$A" + freq + "123," + power + ",\r\n"
}

func TestAppendStreamLine(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	clock.Advance(time.Second)
	s.Append(streamLine("0010000000.001000", "+00129"))

	require.Equal(1, s.Count(fa5.Frequency))
	require.Equal(1, s.Count(fa5.Power))
	require.Len(s.Lines(), 1)

	freq, elapsed := s.Latest(fa5.Frequency)
	require.True(freq.Equal(decimal.RequireFromString("10000000.001")))
	require.InDelta(0.0, elapsed, 1e-9) // first line establishes the start instant

	power, _ := s.Latest(fa5.Power)
	require.True(power.Equal(decimal.RequireFromString("12.9")))
}

func TestAppendMergesSettings(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))
	s.Append("$APIR ,0009999999.999870000,+00127,DOK\r\n")

	settings := s.Settings()
	require.Equal(fa5.Channel1, settings.Channel)
	require.True(settings.Precision)
	require.True(settings.Imp50)
	require.False(settings.LPF)
	require.False(settings.ExtRefOsc)

	// A later line that reports nothing must not regress the snapshot.
	s.Append("SELF TEST OK\r\n")
	require.Equal(fa5.Channel1, s.Settings().Channel)
}

func TestAppendSkipsMalformedPayload(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))
	s.Append("$Anot-a-number-x,+00129,\r\n")

	// The bad frequency payload is dropped; the power field still lands.
	require.Equal(0, s.Count(fa5.Frequency))
	require.Equal(1, s.Count(fa5.Power))
	require.Len(s.Lines(), 1)
}

func TestEmptySequenceSentinels(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))

	require.True(s.Min(fa5.Frequency).IsZero())
	require.True(s.Max(fa5.Frequency).IsZero())
	require.True(s.Average(fa5.Frequency).IsZero())
	require.True(s.StdDev(fa5.Frequency).IsZero())
	require.True(s.PeakToPeak(fa5.Frequency).IsZero())

	value, elapsed := s.Latest(fa5.Frequency)
	require.True(value.IsZero())
	require.Zero(elapsed)

	require.Zero(s.Count(fa5.Frequency))
	require.Zero(s.Interval(fa5.Frequency))
}

func TestStatistics(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	for _, freq := range []string{"0000000002.000000", "0000000004.000000", "0000000006.000000"} {
		s.Append(streamLine(freq, "+00120"))
		clock.Advance(time.Second)
	}

	require.True(s.Min(fa5.Frequency).Equal(decimal.NewFromInt(2)))
	require.True(s.Max(fa5.Frequency).Equal(decimal.NewFromInt(6)))
	require.True(s.Average(fa5.Frequency).Equal(decimal.NewFromInt(4)))

	// Sample stdev of {2, 4, 6} is exactly 2.
	require.True(s.StdDev(fa5.Frequency).Equal(decimal.NewFromInt(2)))

	pkpk := s.PeakToPeak(fa5.Frequency)
	require.True(pkpk.Equal(s.Max(fa5.Frequency).Sub(s.Min(fa5.Frequency))))
	require.True(pkpk.Equal(decimal.NewFromInt(4)))

	require.Equal(3, s.Count(fa5.Frequency))
}

func TestStdDevSingleSample(t *testing.T) {
	s := New(WithClock(newTestClock().Now))
	s.Append(streamLine("0010000000.000000", "+00120"))

	if !s.StdDev(fa5.Frequency).IsZero() {
		t.Errorf("stdev of one sample = %s, want 0", s.StdDev(fa5.Frequency))
	}
}

func TestInterval(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	s.Append(streamLine("0010000000.000000", "+00120"))
	clock.Advance(2 * time.Second)
	s.Append(streamLine("0010000000.000000", "+00120"))
	clock.Advance(200 * time.Millisecond)
	s.Append(streamLine("0010000000.000000", "+00120"))

	require.Equal(200, s.Interval(fa5.Frequency))
}

func TestFreqDifferenceAutoTarget(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))
	s.Append(streamLine("0010000000.000000", "+00120"))

	// One sample of exactly 10 MHz: auto target equals it, ppm is zero.
	target, difference, ppm := s.FreqDifference(decimal.Zero, decimal.Zero)
	require.True(target.Equal(decimal.NewFromInt(10_000_000)))
	require.True(difference.IsZero())
	require.True(ppm.IsZero())
}

func TestFreqDifferenceDerivedTargetRounding(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))

	// 10 MHz order of magnitude: the derived target rounds away the last
	// four digits before the decimal point.
	freq := decimal.RequireFromString("10000000.123")
	target, difference, ppm := s.FreqDifference(freq, decimal.Zero)

	require.True(target.Equal(decimal.NewFromInt(10_000_000)))
	require.True(difference.Equal(decimal.RequireFromString("0.123")))

	want := decimal.RequireFromString("0.123").Mul(decimal.NewFromInt(1_000_000)).
		Div(decimal.NewFromInt(10_000_000))
	require.True(ppm.Equal(want))
}

func TestFreqDifferenceExplicitTarget(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))

	freq := decimal.RequireFromString("10000000.001")
	target := decimal.NewFromInt(10_000_000)

	gotTarget, difference, ppm := s.FreqDifference(freq, target)
	require.True(gotTarget.Equal(target))
	require.True(difference.Equal(decimal.RequireFromString("0.001")))
	require.True(ppm.Equal(decimal.RequireFromString("0.0001")))
}

func TestFreqDifferenceNoSamples(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))

	target, difference, ppm := s.FreqDifference(decimal.Zero, decimal.Zero)
	require.True(target.IsZero())
	require.True(difference.IsZero())
	require.True(ppm.IsZero()) // no division by a zero target
}

func TestResetOnNextRead(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	s.Append(streamLine("0010000000.000000", "+00120"))
	s.Append(streamLine("0010000000.000000", "+00120"))
	require.Equal(2, s.Count(fa5.Frequency))

	// The deferred reset must not discard anything until the next line.
	s.ResetOnNextRead()
	require.Equal(2, s.Count(fa5.Frequency))
	require.Len(s.Lines(), 2)

	clock.Advance(5 * time.Second)
	s.Append(streamLine("0020000000.000000", "+00120"))

	require.Equal(1, s.Count(fa5.Frequency))
	require.Len(s.Lines(), 1)

	// Start instant moved with the reset: new sample is at elapsed 0.
	_, elapsed := s.Latest(fa5.Frequency)
	require.InDelta(0.0, elapsed, 1e-9)
}

func TestResetKeepStart(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	s.Append(streamLine("0010000000.000000", "+00120"))
	clock.Advance(3 * time.Second)

	s.Reset(false)
	require.Zero(s.Count(fa5.Frequency))

	s.Append(streamLine("0010000000.000000", "+00120"))
	_, elapsed := s.Latest(fa5.Frequency)
	require.InDelta(3.0, elapsed, 1e-9)
}
