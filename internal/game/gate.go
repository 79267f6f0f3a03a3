package game

import "fmt"

// Device is a controllable audio transport
type Device interface {
	Play() error
	Pause() error
	SeekTo(seconds float64) error
	Subscribe(l Listener)
	Close() error
}

// Listener receives device notifications. Position updates arrive at
// whatever granularity the device chooses.
type Listener interface {
	PositionChanged(seconds float64)
	PlayStarted()
	PlayPaused()
}

// PlaybackState is the gate's view of the device
type PlaybackState struct {
	Position  float64 `json:"position"`
	Playing   bool    `json:"playing"`
	Unlocked  int     `json:"unlocked"`
	Available bool    `json:"available"`
}

// Gate keeps playback inside the unlocked window, pausing the device the
// first time the position reaches the boundary. Gate is not safe for
// concurrent use; the controller serialises access.
type Gate struct {
	device    Device
	available bool
	position  float64
	playing   bool
	unlocked  int
	latched   bool
	forced    int
}

// NewGate wraps dev. A nil device produces an unavailable gate.
func NewGate(dev Device, unlocked int) *Gate {
	return &Gate{
		device:    dev,
		available: dev != nil,
		unlocked:  unlocked,
	}
}

// PositionChanged records a position report and enforces the boundary
func (g *Gate) PositionChanged(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	g.position = seconds
	if seconds < float64(g.unlocked) {
		g.latched = false
	}
	g.enforce()
}

// PlayStarted marks the device as playing. A play that starts at or past
// the boundary is paused, unless the gate already paused this crossing:
// then the notification is the play that pause cut off, reported late.
func (g *Gate) PlayStarted() {
	if !g.available {
		return
	}
	if g.latched && g.position >= float64(g.unlocked) {
		return
	}
	g.playing = true
	g.enforce()
}

// PlayPaused marks the device as paused
func (g *Gate) PlayPaused() {
	g.playing = false
}

// TogglePlay pauses a playing device or starts a paused one. Both paths
// seek to 0 so every play restarts at the top of the window.
func (g *Gate) TogglePlay() error {
	if !g.available {
		return ErrDeviceUnavailable
	}

	if g.playing {
		if err := g.device.Pause(); err != nil {
			return g.fail(err)
		}
		if err := g.device.SeekTo(0); err != nil {
			return g.fail(err)
		}
		g.playing = false
	} else {
		if err := g.device.SeekTo(0); err != nil {
			return g.fail(err)
		}
		if err := g.device.Play(); err != nil {
			return g.fail(err)
		}
		g.playing = true
	}

	g.position = 0
	g.latched = false
	return nil
}

// Stop pauses the device if it is playing
func (g *Gate) Stop() error {
	if !g.available {
		return ErrDeviceUnavailable
	}
	if !g.playing {
		return nil
	}
	if err := g.device.Pause(); err != nil {
		return g.fail(err)
	}
	g.playing = false
	return nil
}

// SetUnlocked moves the boundary and re-checks the current position
// against it immediately.
func (g *Gate) SetUnlocked(seconds int) {
	g.unlocked = seconds
	if g.position < float64(seconds) {
		g.latched = false
	}
	g.enforce()
}

// MarkUnavailable disables playback after a device failure
func (g *Gate) MarkUnavailable() {
	g.available = false
	g.playing = false
}

// Close releases the device. The gate is unavailable afterwards.
func (g *Gate) Close() error {
	if g.device == nil {
		return nil
	}
	err := g.device.Close()
	g.device = nil
	g.MarkUnavailable()
	return err
}

// Snapshot returns the current playback state
func (g *Gate) Snapshot() PlaybackState {
	return PlaybackState{
		Position:  g.position,
		Playing:   g.playing,
		Unlocked:  g.unlocked,
		Available: g.available,
	}
}

// Position returns the last reported position in seconds
func (g *Gate) Position() float64 { return g.position }

// ForcedPauses counts boundary pauses issued by the gate
func (g *Gate) ForcedPauses() int { return g.forced }

func (g *Gate) enforce() {
	if !g.available || !g.playing || g.latched {
		return
	}
	if g.position < float64(g.unlocked) {
		return
	}
	g.latched = true
	g.playing = false
	g.forced++
	if err := g.device.Pause(); err != nil {
		g.fail(err)
	}
}

func (g *Gate) fail(err error) error {
	g.MarkUnavailable()
	return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
}
