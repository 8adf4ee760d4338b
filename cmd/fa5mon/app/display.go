package app

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/session"
)

var milli = decimal.NewFromInt(1000)

// panel renders the statistics block after each stream sample.
type panel struct {
	out  io.Writer
	sess *session.Session
}

func newPanel(out io.Writer, sess *session.Session) *panel {
	return &panel{out: out, sess: sess}
}

func (p *panel) Render() {
	latest, elapsed := p.sess.Latest(fa5.Frequency)
	avg := p.sess.Average(fa5.Frequency)
	target, difference, ppm := p.sess.FreqDifference(avg, decimal.Zero)

	power, _ := p.sess.Latest(fa5.Power)
	settings := p.sess.Settings()

	var sb strings.Builder
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, " Frequency %s Hz\n", session.GroupSpaces(latest))
	fmt.Fprintf(&sb, " Average   %s Hz\n", session.GroupSpaces(avg))
	fmt.Fprintf(&sb, " Offset    %s Hz from %s Hz target\n", signPad(difference), session.GroupSpaces(target))
	fmt.Fprintf(&sb, " STDev     %s mHz   Pk-Pk %s mHz\n",
		p.sess.StdDev(fa5.Frequency).Mul(milli).StringFixed(4),
		p.sess.PeakToPeak(fa5.Frequency).Mul(milli).String())
	fmt.Fprintf(&sb, " Min       %s   Max %s\n",
		session.GroupSpaces(p.sess.Min(fa5.Frequency)),
		session.GroupSpaces(p.sess.Max(fa5.Frequency)))
	fmt.Fprintf(&sb, " Power     %s dBm   ppm %s\n", power.StringFixed(1), ppm.String())
	fmt.Fprintf(&sb, " %s   Gate %g s   %s   LPF %s   Precision %s\n",
		settings.Channel,
		float64(settings.GateTime)/1000,
		impedance(settings.Imp50),
		onOff(settings.LPF),
		onOff(settings.Precision))
	fmt.Fprintf(&sb, " Samples   %s every %s ms   elapsed %s\n",
		humanize.Comma(int64(p.sess.Count(fa5.Frequency))),
		humanize.Comma(int64(p.sess.Interval(fa5.Frequency))),
		formatElapsed(elapsed))

	fmt.Fprint(p.out, sb.String())
}

// signPad keeps the offset column stable: non-negative values get a
// leading space where the minus sign would sit.
func signPad(d decimal.Decimal) string {
	s := session.GroupSpaces(d)
	if d.Sign() >= 0 {
		return " " + s
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func impedance(imp50 bool) string {
	if imp50 {
		return "50 Ohm"
	}
	return "1 MOhm"
}

func formatElapsed(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Truncate(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
