package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"unicode"

	"github.com/eiannone/keyboard"

	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/fa5"
	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/scheduler"
	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/session"
	"github.com/Ken26M/FA-5-6GP-MonitorControl/internal/transport"
)

const linesBuffer = 64

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	conn, err := transport.Open(transport.Config{
		Port:        config.Serial.Port,
		BaudRate:    config.Serial.BaudRate,
		ReadTimeout: config.Serial.ReadTimeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}
	defer conn.Close()

	logger.Info("serial port open",
		slog.String("port", config.Serial.Port),
		slog.Int("baudRate", config.Serial.BaudRate))

	sess := session.New(session.WithLogger(logger))
	queue := scheduler.New(
		scheduler.WithSettleDelay(config.Serial.SettleDelay()),
		scheduler.WithLogger(logger))

	// Interrogate device settings and gate time; the queue drains once
	// the counter starts talking.
	queue.Enqueue(fa5.GetFreqPowerSettings)
	queue.Enqueue(fa5.GetGateTimeSetting)

	reader := transport.NewReader(conn, transport.WithLogger(logger))
	lines := make(chan string, linesBuffer)
	stopped, err := reader.Begin(ctx, lines)
	if err != nil {
		return err
	}
	defer reader.Stop()

	keys, closeKeys := openKeyboard(logger)
	defer closeKeys()

	p := newPanel(os.Stdout, sess)

	var entry commandEntry

	for {
		select {
		case <-ctx.Done():
			return nil

		case err, ok := <-stopped:
			if ok && err != nil {
				return fmt.Errorf("serial reader stopped: %w", err)
			}
			return nil

		case line := <-lines:
			sess.Append(line)

			if measurements, _ := fa5.Decode(line); len(measurements) > 0 {
				p.Render()
			}

			if fa5.ReleasesCommand(line) {
				payload, err := queue.Dispatch(conn)
				switch {
				case errors.Is(err, scheduler.ErrNotEstablished):
					return err
				case err != nil:
					logger.Error("command dispatch failed", slog.String("error", err.Error()))
				case payload != "":
					logger.Info("command sent", slog.String("payload", payload))
				}
			}

		case ev, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			if entry.handle(ev, queue, logger) {
				continue
			}
			if ev.char == 't' || ev.char == 'T' {
				entry.active = true
				logger.Info("raw command entry: type the payload, Enter to send, Esc to cancel")
				continue
			}
			if quit := handleKey(ev, sess, queue, config, logger); quit {
				return nil
			}
		}
	}
}

// commandEntry collects an operator-typed raw command, character by
// character, until Enter submits it or Esc discards it.
type commandEntry struct {
	active bool
	buf    []rune
}

func (e *commandEntry) handle(ev keyEvent, queue *scheduler.Queue, logger *slog.Logger) bool {
	if !e.active {
		return false
	}

	switch ev.key {
	case keyboard.KeyEnter:
		if len(e.buf) > 0 {
			payload := string(e.buf)
			queue.Enqueue(fa5.Raw(payload))
			logger.Info("raw command queued", slog.String("payload", payload))
		}
		*e = commandEntry{}
	case keyboard.KeyEsc:
		*e = commandEntry{}
	case keyboard.KeyBackspace, keyboard.KeyBackspace2:
		if len(e.buf) > 0 {
			e.buf = e.buf[:len(e.buf)-1]
		}
	default:
		if ev.char != 0 {
			e.buf = append(e.buf, ev.char)
		}
	}
	return true
}

type keyEvent struct {
	char rune
	key  keyboard.Key
}

// openKeyboard starts the key listener. Without a TTY the monitor keeps
// running read-only.
func openKeyboard(logger *slog.Logger) (<-chan keyEvent, func()) {
	if err := keyboard.Open(); err != nil {
		logger.Warn("keyboard unavailable, running read-only", slog.String("error", err.Error()))
		return nil, func() {}
	}

	keys := make(chan keyEvent)
	go func() {
		defer close(keys)
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			keys <- keyEvent{char: char, key: key}
		}
	}()

	return keys, func() { _ = keyboard.Close() }
}

// handleKey maps one keypress to its action. Toggles read the current
// settings snapshot to pick the opposite command, then queue a settings
// refresh so the snapshot converges on what the device confirms.
func handleKey(ev keyEvent, sess *session.Session, queue *scheduler.Queue, config *Config, logger *slog.Logger) (quit bool) {
	if ev.key == keyboard.KeyCtrlC {
		return true
	}

	settings := sess.Settings()

	switch unicode.ToLower(ev.char) {
	case 'q':
		return true

	case '1':
		queue.Enqueue(fa5.SetCh1FreqAndPower)
		queue.Enqueue(fa5.GetFreqPowerSettings)
	case '2':
		queue.Enqueue(fa5.SetCh2FreqAndPower)
		queue.Enqueue(fa5.GetFreqPowerSettings)
	case 'i':
		queue.Enqueue(fa5.SetInternal10MRef)
		queue.Enqueue(fa5.GetFreqPowerSettings)

	case 'p':
		if settings.Precision {
			queue.Enqueue(fa5.HighPrecisionOff)
		} else {
			queue.Enqueue(fa5.HighPrecisionOn)
		}
		queue.Enqueue(fa5.GetFreqPowerSettings)
	case 'l':
		if settings.LPF {
			queue.Enqueue(fa5.Ch1LPFOff)
		} else {
			queue.Enqueue(fa5.Ch1LPFOn)
		}
		queue.Enqueue(fa5.GetFreqPowerSettings)
	case 'o':
		if settings.Imp50 {
			queue.Enqueue(fa5.Ch1Impedance1MOhm)
		} else {
			queue.Enqueue(fa5.Ch1Impedance50Ohm)
		}
		queue.Enqueue(fa5.GetFreqPowerSettings)

	case 'g':
		next := nextGateTime(config.Settings.GateTimes, settings.GateTime)
		queue.Enqueue(fa5.GateTimeFromSeconds(next))
		queue.Enqueue(fa5.GetGateTimeSetting)

	case 'v':
		queue.Enqueue(fa5.GetProdVersion)

	case 'r':
		sess.ResetOnNextRead()
		logger.Info("statistics reset on next sample")

	case 's':
		if err := sess.SaveRawCSV(config.Export.RawFile, ""); err != nil {
			logger.Error("raw dump failed", slog.String("error", err.Error()))
		} else {
			logger.Info("raw dump saved", slog.String("path", config.Export.RawFile))
		}
	case 'c':
		if err := sess.AppendStatsRow(config.Export.StatsFile, ""); err != nil {
			logger.Error("statistics export failed", slog.String("error", err.Error()))
		} else {
			logger.Info("statistics row saved", slog.String("path", config.Export.StatsFile))
		}
	}

	return false
}

// nextGateTime cycles through the presets: the first preset longer than
// the current gate time, wrapping around to the shortest.
func nextGateTime(presets []float64, currentMs int) float64 {
	for _, preset := range presets {
		if int(preset*1000) > currentMs {
			return preset
		}
	}
	return presets[0]
}
