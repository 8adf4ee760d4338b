package fa5

// Channel identifies the measurement input reported by the counter.
type Channel uint8

const (
	ChannelUnknown Channel = iota
	Channel1
	Channel2
	ChannelInternalClock
)

// String returns the device's display label for the channel.
func (c Channel) String() string {
	switch c {
	case Channel1:
		return "Channel: 1"
	case Channel2:
		return "Channel: 2"
	case ChannelInternalClock:
		return "Channel: Internal Clock"
	default:
		return "unknown"
	}
}

func channelFromCode(code byte) Channel {
	switch code {
	case 'A':
		return Channel1
	case 'B':
		return Channel2
	case 'T':
		return ChannelInternalClock
	default:
		return ChannelUnknown
	}
}

// Settings is the latest known device configuration. The counter only
// reports the settings relevant to the command just acknowledged, so a
// snapshot is built up from partial deltas over time.
type Settings struct {
	Channel   Channel
	Imp50     bool // 50 ohm input impedance (otherwise 1 Mohm)
	Precision bool // high precision mode
	ExtRefOsc bool // external reference oscillator
	LPF       bool // low-pass filter on channel 1
	GateTime  int  // milliseconds, 0 = unknown
}

// SettingsDelta carries the fields a single reply line conveyed. Nil
// pointers and zero values mean "not reported" and must not overwrite
// previously known state.
type SettingsDelta struct {
	Channel   Channel
	Imp50     *bool
	Precision *bool
	ExtRefOsc *bool
	LPF       *bool
	GateTime  int // milliseconds, only > 0 is meaningful
}

// Merge folds a delta into the snapshot. A field is only overwritten when
// the delta explicitly carries a known value for it; the gate time only
// when strictly positive.
func (s *Settings) Merge(d SettingsDelta) {
	if d.Channel != ChannelUnknown {
		s.Channel = d.Channel
	}
	if d.Imp50 != nil {
		s.Imp50 = *d.Imp50
	}
	if d.Precision != nil {
		s.Precision = *d.Precision
	}
	if d.ExtRefOsc != nil {
		s.ExtRefOsc = *d.ExtRefOsc
	}
	if d.LPF != nil {
		s.LPF = *d.LPF
	}
	if d.GateTime > 0 {
		s.GateTime = d.GateTime
	}
}

func boolPtr(v bool) *bool { return &v }
