package session

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
)

var (
	pointOne = decimal.RequireFromString("0.1")
	million  = decimal.NewFromInt(1_000_000)
)

// Min returns the smallest recorded value, or 0 when there are no samples.
func (s *Session) Min(c fa5.Category) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minLocked(c)
}

// Max returns the largest recorded value, or 0 when there are no samples.
func (s *Session) Max(c fa5.Category) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLocked(c)
}

// Average returns the arithmetic mean, or 0 when there are no samples.
func (s *Session) Average(c fa5.Category) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.averageLocked(c)
}

// StdDev returns the sample standard deviation, or 0 for fewer than two
// samples.
func (s *Session) StdDev(c fa5.Category) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdDevLocked(c)
}

// PeakToPeak returns max - min, or 0 when there are no samples.
func (s *Session) PeakToPeak(c fa5.Category) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxLocked(c).Sub(s.minLocked(c))
}

// Latest returns the most recent (value, elapsed) pair, or (0, 0) when
// there are no samples.
func (s *Session) Latest(c fa5.Category) (decimal.Decimal, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(c)
}

// Count returns the number of recorded samples.
func (s *Session) Count(c fa5.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dataLocked(c))
}

// Interval returns the elapsed milliseconds between the two most recent
// samples, or 0 for fewer than two.
func (s *Session) Interval(c fa5.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.dataLocked(c)
	if len(data) < 2 {
		return 0
	}
	interval := data[len(data)-1].Elapsed - data[len(data)-2].Elapsed
	return int(math.Round(interval * 1000))
}

// FreqDifference compares a frequency against a target and returns the
// target, the difference and the parts-per-million offset.
//
// A zero freq falls back to the running mean of the frequency samples. A
// zero target is auto-derived by rounding the chosen frequency to three
// significant digits below its order of magnitude, modelling the counter
// reporting against a nominal reference even when the operator has not
// specified one.
func (s *Session) FreqDifference(freq, target decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freqDifferenceLocked(freq, target)
}

func (s *Session) freqDifferenceLocked(freq, target decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	frequency := freq
	if freq.IsZero() && len(s.frequencies) > 0 {
		frequency = s.averageLocked(fa5.Frequency)
	}

	targetFreq := target
	if target.IsZero() {
		shifted := frequency.Add(pointOne).Abs().InexactFloat64()
		places := -int32(math.Floor(math.Log10(shifted))) + 3
		targetFreq = frequency.RoundBank(places)
	}

	difference := frequency.Sub(targetFreq)

	ppm := decimal.Zero
	if targetFreq.IsPositive() {
		ppm = million.Mul(difference).Div(targetFreq)
	}

	return targetFreq, difference, ppm
}

func (s *Session) minLocked(c fa5.Category) decimal.Decimal {
	data := s.dataLocked(c)
	if len(data) == 0 {
		return decimal.Zero
	}
	m := data[0].Value
	for _, sample := range data[1:] {
		if sample.Value.LessThan(m) {
			m = sample.Value
		}
	}
	return m
}

func (s *Session) maxLocked(c fa5.Category) decimal.Decimal {
	data := s.dataLocked(c)
	if len(data) == 0 {
		return decimal.Zero
	}
	m := data[0].Value
	for _, sample := range data[1:] {
		if sample.Value.GreaterThan(m) {
			m = sample.Value
		}
	}
	return m
}

func (s *Session) averageLocked(c fa5.Category) decimal.Decimal {
	data := s.dataLocked(c)
	if len(data) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, sample := range data {
		sum = sum.Add(sample.Value)
	}
	return sum.Div(decimal.NewFromInt(int64(len(data))))
}

// stdDevLocked computes the deviations and variance exactly in decimal;
// only the final square root goes through float64.
func (s *Session) stdDevLocked(c fa5.Category) decimal.Decimal {
	data := s.dataLocked(c)
	if len(data) < 2 {
		return decimal.Zero
	}

	mean := s.averageLocked(c)
	sumSq := decimal.Zero
	for _, sample := range data {
		dev := sample.Value.Sub(mean)
		sumSq = sumSq.Add(dev.Mul(dev))
	}

	variance := sumSq.Div(decimal.NewFromInt(int64(len(data) - 1)))
	return decimal.NewFromFloat(math.Sqrt(variance.InexactFloat64()))
}

func (s *Session) latestLocked(c fa5.Category) (decimal.Decimal, float64) {
	data := s.dataLocked(c)
	if len(data) == 0 {
		return decimal.Zero, 0.0
	}
	last := data[len(data)-1]
	return last.Value, last.Elapsed
}
