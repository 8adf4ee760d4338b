package fa5

import (
	"fmt"
	"math"
)

// Outgoing is anything that can be written to the counter. The three
// implementations are Command (fixed payload), GateTime (parameterized)
// and Raw (operator-typed literal).
type Outgoing interface {
	Wire() string
}

// Command identifies one of the counter's fixed-payload operations.
type Command uint8

const (
	GetGateTimeSetting Command = iota
	GetFreqPowerSettings
	GetProdVersion
	Reset
	SetInternal10MRef
	SetCh1FreqAndPower
	SetCh2FreqAndPower
	Ch1Impedance50Ohm
	Ch1Impedance1MOhm
	Ch1LPFOn
	Ch1LPFOff
	HighPrecisionOn
	HighPrecisionOff
	SendFreqAfterMeasure
	SendFreqAndPower
	UseDForFreqPower
	SetBaudRate4800
	SetBaudRate9600
	SetBaudRate19200
	SetBaudRate38400
	SetBaudRate57600
	SetBaudRate115200
	SetGateTime100ms
	SetGateTime1000ms
	SetGateTime2000ms
	SetGateTime20000ms
	EESelfTestOnPowerUp
	EECh1FreqOnPowerUp
	EECh2FreqOnPowerUp
	EECh1Imp50OhmSave
	EECh1Imp1MOhmSave
	EEBeepOnSave
	EEBeepOffSave
	EEPrecisionModeOn
	EEPrecisionModeOff
	EELPFOnSave
	EELPFOffSave
	EECalibrateCh1Imp50Ohm0dBm
	EECalibrateCh1Imp50OhmMinus20dBm
	EECalibrateCh1Imp50Ohm5dBm
	EECalibrateCh20dBm
	EECalibrateCh2Minus20dBm
	EESaveCh1NoiseFloor
	EESaveCh2NoiseFloor
	EEAutoSendFreq
	EEAutoSendFreqPower
	EEQueryFreqPowerManually
)

// commandWire maps every command to its fixed ASCII payload. Payloads are
// the device's documented literals; they begin with '$' and end with '*'.
var commandWire = [...]string{
	GetGateTimeSetting:   "$G*",
	GetFreqPowerSettings: "$D*",
	GetProdVersion:       "$V*",
	Reset:                "$R*",
	SetInternal10MRef:    "$C0000*",
	SetCh1FreqAndPower:   "$C0101*",
	SetCh2FreqAndPower:   "$C0202*",
	Ch1Impedance50Ohm:    "$C0303*",
	Ch1Impedance1MOhm:    "$C0404*",
	Ch1LPFOn:             "$C0505*",
	Ch1LPFOff:            "$C0606*",
	HighPrecisionOn:      "$C0707*",
	HighPrecisionOff:     "$C0808*",
	SendFreqAfterMeasure: "$C0909*",
	SendFreqAndPower:     "$C1010*",
	UseDForFreqPower:     "$C1111*",
	SetBaudRate4800:      "$C2020*",
	SetBaudRate9600:      "$C2121*",
	SetBaudRate19200:     "$C2222*",
	SetBaudRate38400:     "$C2323*",
	SetBaudRate57600:     "$C2424*",
	// Firmware 2024.7 actually switches to 12800 bps on this command
	// (reported upstream); the documented literal is kept as-is.
	SetBaudRate115200:                "$C2525*",
	SetGateTime100ms:                 "$A00100*",
	SetGateTime1000ms:                "$A01000*",
	SetGateTime2000ms:                "$A02000*",
	SetGateTime20000ms:               "$A20000*",
	EESelfTestOnPowerUp:              "$E2020*",
	EECh1FreqOnPowerUp:               "$E2121*",
	EECh2FreqOnPowerUp:               "$E2222*",
	EECh1Imp50OhmSave:                "$E3030*",
	EECh1Imp1MOhmSave:                "$E3131*",
	EEBeepOnSave:                     "$E3232*",
	EEBeepOffSave:                    "$E3333*",
	EEPrecisionModeOn:                "$E3434*",
	EEPrecisionModeOff:               "$E3535*",
	EELPFOnSave:                      "$E3636*",
	EELPFOffSave:                     "$E3737*",
	EECalibrateCh1Imp50Ohm0dBm:       "$E4040*",
	EECalibrateCh1Imp50OhmMinus20dBm: "$E4141*",
	EECalibrateCh1Imp50Ohm5dBm:       "$E4242*",
	EECalibrateCh20dBm:               "$E4343*",
	EECalibrateCh2Minus20dBm:         "$E4444*",
	EESaveCh1NoiseFloor:              "$E4545*",
	EESaveCh2NoiseFloor:              "$E4646*",
	EEAutoSendFreq:                   "$E6060*",
	EEAutoSendFreqPower:              "$E6161*",
	EEQueryFreqPowerManually:         "$E6262*",
}

// Wire returns the fixed payload for the command.
func (c Command) Wire() string {
	if int(c) >= len(commandWire) {
		return ""
	}
	return commandWire[c]
}

// GateTime is the parameterized gate-time command, in milliseconds.
type GateTime int

// Wire serializes the gate time as "$A" + 5-digit zero-padded ms + "*".
func (g GateTime) Wire() string {
	return fmt.Sprintf("$A%05d*", int(g))
}

// GateTimeFromSeconds builds a gate-time command from a seconds value,
// matching the UI presets (0.1 s .. 20 s).
func GateTimeFromSeconds(sec float64) GateTime {
	return GateTime(int(math.Round(sec * 1000)))
}

// Raw is an operator-typed command written to the wire verbatim.
type Raw string

func (r Raw) Wire() string { return string(r) }
