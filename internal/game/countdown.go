package game

import "fmt"

// DefaultCountdownSeconds is how long the end screen waits before a new song
const DefaultCountdownSeconds = 30

// CountdownState is the presentation view of the post-game countdown
type CountdownState struct {
	Remaining int  `json:"remaining"`
	Paused    bool `json:"paused"`
	Running   bool `json:"running"`
}

// Label renders the remaining time as m:ss
func (s CountdownState) Label() string {
	return fmt.Sprintf("%d:%02d", s.Remaining/60, s.Remaining%60)
}

// Countdown counts down one second per Tick while running and not paused
type Countdown struct {
	duration  int
	remaining int
	running   bool
	paused    bool
}

// NewCountdown creates a stopped countdown of the given length in seconds
func NewCountdown(seconds int) *Countdown {
	if seconds <= 0 {
		seconds = DefaultCountdownSeconds
	}
	return &Countdown{duration: seconds, remaining: seconds}
}

// Start resets the countdown and begins counting
func (c *Countdown) Start() {
	c.remaining = c.duration
	c.running = true
	c.paused = false
}

// Stop halts the countdown and resets it
func (c *Countdown) Stop() {
	c.remaining = c.duration
	c.running = false
	c.paused = false
}

// TogglePause flips the paused flag of a running countdown
func (c *Countdown) TogglePause() {
	if c.running {
		c.paused = !c.paused
	}
}

// Tick advances one second and reports whether the countdown just expired
func (c *Countdown) Tick() bool {
	if !c.running || c.paused {
		return false
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 {
		c.running = false
		return true
	}
	return false
}

// State returns the countdown view
func (c *Countdown) State() CountdownState {
	return CountdownState{Remaining: c.remaining, Paused: c.paused, Running: c.running}
}
