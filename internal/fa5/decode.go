// Package fa5 implements the FA-5/6GP line protocol: the outgoing command
// set and the decoder turning received reply and stream lines into
// classified measurements and device-setting deltas.
package fa5

import (
	"strconv"
	"strings"
)

// Category classifies a decoded measurement.
type Category uint8

const (
	Unknown Category = iota
	Frequency
	Power
)

func (c Category) String() string {
	switch c {
	case Frequency:
		return "frequency"
	case Power:
		return "power"
	default:
		return "unknown"
	}
}

// Measurement is one numeric reading extracted from a line. Raw is the
// untouched payload substring; decimal parsing is left to the caller so a
// malformed payload cannot abort the rest of the line.
type Measurement struct {
	Category Category
	Raw      string
}

// Reply-line offsets. Undocumented protocol knowledge, taken from captured
// device output.
const (
	// "PW" prefix and " POK" tail around a power reply payload.
	powerPrefixLen = 2
	powerSuffixLen = 4

	// The 7-digit gate time ends 7 characters before the end of an
	// AOK/GOK reply.
	gateDigits    = 7
	gateTailAfter = 7

	// $<chan><prec><ref><imp><lpf>... settings reply (DOK).
	dokChannelPos   = 1
	dokPrecisionPos = 2
	dokRefOscPos    = 3
	dokImpedancePos = 4
	dokLPFPos       = 5

	// Stream lines: "$A" prefix and a 3-digit tail of accumulated double
	// error are stripped off the frequency field.
	streamPrefixLen = 2
	streamSuffixLen = 3
)

// The LPF state in EOK/COK replies is decoded by exact literal comparison,
// not by position; the firmware mixes both strategies.
const (
	lpfOnEOKLine = "LPF ON EOK"
	lpfOnCOKLine = "CH1 LPF ON COK"
)

// Decode classifies one received line (CRLF terminator tolerated) into an
// ordered list of measurements and a settings delta. Pure and stateless.
//
// Priority: lines carrying an acknowledgement code first, then '$' stream
// data, everything else is Unknown and produces nothing.
func Decode(line string) ([]Measurement, SettingsDelta) {
	s := strings.TrimSpace(line)

	var delta SettingsDelta
	var measurements []Measurement

	switch {
	case strings.Contains(s, "OK"):
		switch {
		case strings.HasSuffix(s, "POK"):
			if len(s) > powerPrefixLen+powerSuffixLen {
				measurements = append(measurements, Measurement{Power, s[powerPrefixLen : len(s)-powerSuffixLen]})
			}

		case strings.HasSuffix(s, "AOK"), strings.HasSuffix(s, "GOK"):
			if len(s) >= gateDigits+gateTailAfter {
				digits := s[len(s)-gateDigits-gateTailAfter : len(s)-gateTailAfter]
				if gt, err := strconv.Atoi(digits); err == nil {
					delta.GateTime = gt
				}
			}

		case strings.HasSuffix(s, "DOK"):
			if len(s) > dokLPFPos {
				delta.Channel = channelFromCode(s[dokChannelPos])
				delta.Precision = boolPtr(s[dokPrecisionPos] == 'P')
				delta.ExtRefOsc = boolPtr(s[dokRefOscPos] == 'E')
				delta.Imp50 = boolPtr(s[dokImpedancePos] == 'R')
				delta.LPF = boolPtr(s[dokLPFPos] == 'L')
			}

		case strings.HasSuffix(s, "EOK"):
			if strings.HasPrefix(s, "LPF") {
				delta.LPF = boolPtr(s == lpfOnEOKLine)
			}

		case strings.HasSuffix(s, "COK"):
			if len(s) >= 7 && s[4:7] == "LPF" {
				delta.LPF = boolPtr(s == lpfOnCOKLine)
			}
		}
		// Any other OK-bearing line is an acknowledgement with no data.

	case strings.Contains(s, "$"):
		fields := strings.Split(s, ",")
		if f := fields[0]; len(f) > streamPrefixLen+streamSuffixLen {
			measurements = append(measurements, Measurement{Frequency, f[streamPrefixLen : len(f)-streamSuffixLen]})
		}
		if len(fields) == 3 {
			// Power rides in the second field as tenths of dBm; the
			// caller divides by ten when storing.
			measurements = append(measurements, Measurement{Power, fields[1]})
		}
	}

	return measurements, delta
}

// ReleasesCommand reports whether a received line allows the next queued
// command to go out: stream samples mean the device is ready to be
// interrupted, and acknowledgement codes complete the in-flight command.
func ReleasesCommand(line string) bool {
	s := strings.TrimSpace(line)
	return strings.HasPrefix(s, "$") || strings.HasSuffix(s, "OK")
}
