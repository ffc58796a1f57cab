// Package motion derives motion state and cadence from a step sensor.
// Like logic, it never reads the clock; every sample carries its own time.
package motion

import (
	"time"

	"github.com/sweeney/soundscape/internal/logic"
)

// Defaults for Config.
const (
	DefaultWindow       = 10 * time.Second
	DefaultIdleBelowSPM = 20
	DefaultRunFromSPM   = 140
)

// Config tunes the meter.
type Config struct {
	// Window is the sliding window steps are counted over.
	Window time.Duration
	// IdleBelowSPM is the cadence below which the listener is idle.
	IdleBelowSPM int
	// RunFromSPM is the cadence at or above which the listener is running.
	RunFromSPM int
}

// DefaultConfig returns the default meter tuning.
func DefaultConfig() Config {
	return Config{
		Window:       DefaultWindow,
		IdleBelowSPM: DefaultIdleBelowSPM,
		RunFromSPM:   DefaultRunFromSPM,
	}
}

// Meter counts rising edges of the step line. Not safe for concurrent use.
type Meter struct {
	cfg       Config
	steps     []time.Time
	lastLevel bool
	started   bool
	firstSeen time.Time
}

// NewMeter creates a meter with the given tuning.
func NewMeter(cfg Config) *Meter {
	return &Meter{cfg: cfg}
}

// Observe records one sample of the step line.
func (m *Meter) Observe(level bool, now time.Time) {
	if !m.started {
		m.started = true
		m.firstSeen = now
		m.lastLevel = level
		return
	}
	if level && !m.lastLevel {
		m.steps = append(m.steps, now)
	}
	m.lastLevel = level
	m.prune(now)
}

func (m *Meter) prune(now time.Time) {
	cutoff := now.Add(-m.cfg.Window)
	i := 0
	for i < len(m.steps) && !m.steps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		m.steps = append(m.steps[:0], m.steps[i:]...)
	}
}

// Reading returns the motion state and cadence as of now. Cadence is absent
// until one full window has been observed, and motion is idle meanwhile.
func (m *Meter) Reading(now time.Time) (logic.Motion, logic.Cadence) {
	if !m.started || now.Sub(m.firstSeen) < m.cfg.Window || m.cfg.Window <= 0 {
		return logic.MotionIdle, logic.NoCadence
	}
	m.prune(now)

	spm := int(float64(len(m.steps)) * float64(time.Minute) / float64(m.cfg.Window))
	return m.classify(spm), logic.CadenceOf(spm)
}

func (m *Meter) classify(spm int) logic.Motion {
	switch {
	case spm < m.cfg.IdleBelowSPM:
		return logic.MotionIdle
	case spm < m.cfg.RunFromSPM:
		return logic.MotionWalking
	default:
		return logic.MotionRunning
	}
}
