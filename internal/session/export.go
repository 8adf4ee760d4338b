package session

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
)

var thousand = decimal.NewFromInt(1000)

// StatsHeader is the fixed column schema of the statistics log.
const StatsHeader = "Notes,Start Time,Stop Time,Target Freq,Average Freq (Hz)," +
	"Difference (mHz),STDev (mHz),Gate Time,Pk-Pk (mHz),Power (dBm)," +
	"Minimum,Maximum,Channel,Count,50 Ohm,ppm"

const exportTimeFormat = "02/01/06 15:04:05"

// StatsRow builds one comma-separated statistics row over the frequency
// samples, matching StatsHeader.
func (s *Session) StatsRow(notes string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	avg := s.averageLocked(fa5.Frequency).RoundBank(7)
	target, difference, ppm := s.freqDifferenceLocked(avg, decimal.Zero)

	latestPower, _ := s.latestLocked(fa5.Power)
	stdevMilli := s.stdDevLocked(fa5.Frequency).Mul(thousand)
	peakMilli := s.maxLocked(fa5.Frequency).Sub(s.minLocked(fa5.Frequency)).Mul(thousand)

	fields := []string{
		sanitizeNotes(notes, "; "),
		s.start.Format(exportTimeFormat),
		s.now().Format(exportTimeFormat),
		target.String(),
		avg.StringFixed(7),
		difference.Mul(thousand).String(),
		stdevMilli.StringFixed(4),
		strconv.FormatFloat(float64(s.settings.GateTime)/1000, 'f', -1, 64),
		peakMilli.String(),
		latestPower.String(),
		s.minLocked(fa5.Frequency).String(),
		s.maxLocked(fa5.Frequency).String(),
		s.settings.Channel.String(),
		strconv.Itoa(len(s.frequencies)),
		strconv.FormatBool(s.settings.Imp50),
		ppm.String(),
	}

	return strings.Join(fields, ",")
}

// AppendStatsRow appends one statistics row to the log at path, writing
// the header first when the file is created. A locked or unwritable file
// is a recoverable failure: in-memory state is untouched.
func (s *Session) AppendStatsRow(path, notes string) (err error) {
	row := s.StatsRow(notes)

	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening statistics log: %w", err)
	}
	defer closeWithError(f, &err)

	if writeHeader {
		if _, err = f.WriteString(StatsHeader + "\n"); err != nil {
			return fmt.Errorf("writing statistics header: %w", err)
		}
	}
	if _, err = f.WriteString(row + "\n"); err != nil {
		return fmt.Errorf("writing statistics row: %w", err)
	}
	return nil
}

// SaveRawCSV appends the frequency samples to the dump at path, one
// "<elapsed 2dp>,<value>" pair per line. The session header (start time,
// sample count, notes) rides on the first sample's row.
func (s *Session) SaveRawCSV(path, notes string) (err error) {
	s.mu.Lock()
	samples := append([]Sample(nil), s.frequencies...)
	start := s.start
	s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening raw dump: %w", err)
	}
	defer closeWithError(f, &err)

	var sb strings.Builder
	if len(samples) > 0 {
		fmt.Fprintf(&sb, "%.2f,%s", samples[0].Elapsed, samples[0].Value.String())
	}
	fmt.Fprintf(&sb, ",%s, N:%d,%s\n", start.Format(exportTimeFormat), len(samples), sanitizeNotes(notes, ","))
	for _, sample := range samples[min(1, len(samples)):] {
		fmt.Fprintf(&sb, "%.2f,%s\n", sample.Elapsed, sample.Value.String())
	}

	if _, err = f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("writing raw dump: %w", err)
	}
	return nil
}

// sanitizeNotes flattens operator notes onto one line with the given
// separator, so they cannot break the CSV row structure.
func sanitizeNotes(notes, sep string) string {
	notes = strings.ReplaceAll(notes, "\r\n", "\n")
	notes = strings.ReplaceAll(notes, "\n", sep)
	return strings.TrimSuffix(notes, sep)
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
