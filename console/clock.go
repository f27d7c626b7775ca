package console

import (
	"fmt"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	DefaultSpinnerInterval = 100 * time.Millisecond
	DefaultPulseInterval   = 150 * time.Millisecond
	DefaultPulseDuration   = 2 * time.Second
)

// ProcessingState describes the long-running operation shown in the status
// line.
type ProcessingState struct {
	Active    bool
	Title     string
	StartedAt time.Time
	Frame     int
}

// AnimationClock advances the spinner and the response pulse. It owns no
// goroutine: the poll loop calls Tick.
type AnimationClock struct {
	spinnerInterval time.Duration
	pulseInterval   time.Duration
	pulseDuration   time.Duration

	lastSpin time.Time

	pulseActive  bool
	pulseText    string
	pulseStarted time.Time
	pulseLast    time.Time
	pulseOn      bool
}

func NewAnimationClock(spinner, pulse, pulseDuration time.Duration) *AnimationClock {
	return &AnimationClock{
		spinnerInterval: spinner,
		pulseInterval:   pulse,
		pulseDuration:   pulseDuration,
	}
}

// Tick advances whichever animation is running and reports whether the
// bottom area needs an overwrite redraw. The response pulse suspends the
// spinner until it expires.
func (c *AnimationClock) Tick(now time.Time, p *ProcessingState) bool {
	if c.pulseActive {
		if now.Sub(c.pulseStarted) >= c.pulseDuration {
			c.pulseActive = false
			c.lastSpin = now
			return true
		}
		if now.Sub(c.pulseLast) >= c.pulseInterval {
			c.pulseOn = !c.pulseOn
			c.pulseLast = now
			return true
		}
		return false
	}
	if p == nil || !p.Active {
		return false
	}
	if now.Sub(c.lastSpin) >= c.spinnerInterval {
		p.Frame = (p.Frame + 1) % len(spinnerFrames)
		c.lastSpin = now
		return true
	}
	return false
}

// StartPulse shows text as a pulsing summary for the pulse duration.
func (c *AnimationClock) StartPulse(text string, now time.Time) {
	c.pulseActive = true
	c.pulseText = text
	c.pulseStarted = now
	c.pulseLast = now
	c.pulseOn = true
}

func (c *AnimationClock) StopPulse() {
	c.pulseActive = false
}

func (c *AnimationClock) PulseActive() bool { return c.pulseActive }

// ResetSpinner restarts the spinner cadence at now.
func (c *AnimationClock) ResetSpinner(now time.Time) {
	c.lastSpin = now
}

// StatusLine returns the status line text, if any, for the current state.
func (c *AnimationClock) StatusLine(p ProcessingState, now time.Time) (string, bool) {
	if c.pulseActive {
		dot := "○"
		if c.pulseOn {
			dot = "●"
		}
		return dot + " " + c.pulseText, true
	}
	if !p.Active {
		return "", false
	}
	elapsed := int(now.Sub(p.StartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	frame := spinnerFrames[p.Frame%len(spinnerFrames)]
	return fmt.Sprintf("%s %s (%ds · esc to interrupt)", frame, p.Title, elapsed), true
}
