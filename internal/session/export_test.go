package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsRowSchema(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	s.Append("$APIR ,0009999999.999870000,+00127,DOK\r\n")
	s.Append("$A02000 0002000 ms GOK\r\n")
	s.Append(streamLine("0010000000.000000", "+00129"))
	clock.Advance(2 * time.Second)
	s.Append(streamLine("0010000000.000000", "+00129"))

	require.Equal(16, len(strings.Split(StatsHeader, ",")))

	row := s.StatsRow("bench test")
	fields := strings.Split(row, ",")
	require.Len(fields, 16)

	require.Equal("bench test", fields[0])
	require.Equal("10000000", fields[3])          // target
	require.Equal("10000000.0000000", fields[4])  // average, 7 decimals
	require.Equal("0", fields[5])                 // difference (mHz)
	require.Equal("0.0000", fields[6])            // stdev (mHz), 4 decimals
	require.Equal("2", fields[7])                 // gate time in seconds
	require.Equal("12.9", fields[9])              // latest power
	require.Equal("Channel: 1", fields[12])       // channel label
	require.Equal("2", fields[13])                // count
	require.Equal("true", fields[14])             // 50 ohm flag
	require.Equal("0", fields[15])                // ppm
}

func TestStatsRowFlattensNotes(t *testing.T) {
	s := New(WithClock(newTestClock().Now))

	row := s.StatsRow("line one\nline two\n")
	if !strings.HasPrefix(row, "line one; line two,") {
		t.Errorf("notes not flattened: %q", row)
	}
}

func TestAppendStatsRowWritesHeaderOnce(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))
	s.Append(streamLine("0010000000.000000", "+00129"))

	path := filepath.Join(t.TempDir(), "stats.csv")

	require.NoError(s.AppendStatsRow(path, ""))
	require.NoError(s.AppendStatsRow(path, ""))

	data, err := os.ReadFile(path)
	require.NoError(err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(lines, 3)
	require.Equal(StatsHeader, lines[0])
	require.NotEqual(StatsHeader, lines[1])
}

func TestAppendStatsRowUnwritablePath(t *testing.T) {
	s := New(WithClock(newTestClock().Now))

	err := s.AppendStatsRow(filepath.Join(t.TempDir(), "no", "such", "dir", "stats.csv"), "")
	if err == nil {
		t.Fatal("expected a recoverable error for an unwritable path")
	}

	// In-memory state is untouched by the failed export.
	s.Append(streamLine("0010000000.000000", "+00129"))
	if got := len(s.Lines()); got != 1 {
		t.Errorf("session state damaged by failed export: %d lines", got)
	}
}

func TestSaveRawCSV(t *testing.T) {
	require := require.New(t)

	clock := newTestClock()
	s := New(WithClock(clock.Now))

	s.Append(streamLine("0010000000.000000", "+00129"))
	clock.Advance(1500 * time.Millisecond)
	s.Append(streamLine("0010000000.002000", "+00129"))

	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(s.SaveRawCSV(path, "note"))

	data, err := os.ReadFile(path)
	require.NoError(err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(lines, 2)

	// First sample row carries the session header tail.
	require.True(strings.HasPrefix(lines[0], "0.00,10000000,"), "got %q", lines[0])
	require.Contains(lines[0], "N:2")
	require.True(strings.HasSuffix(lines[0], ",note"), "got %q", lines[0])

	require.Equal("1.50,10000000.002", lines[1])
}

func TestSaveRawCSVEmptySession(t *testing.T) {
	require := require.New(t)

	s := New(WithClock(newTestClock().Now))

	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(s.SaveRawCSV(path, ""))

	data, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(data), "N:0")
}
