package player

import (
	"sync"
	"time"

	"bollywoodle/internal/game"
)

// ClockDevice is a game.Device that plays nothing and advances its position
// in real time. The terminal client uses it in place of a widget.
//
// Notifications are delivered from the device's own goroutine on each
// tick, never from inside Play, Pause or SeekTo.
type ClockDevice struct {
	mu       sync.Mutex
	position float64
	playing  bool
	length   float64
	step     float64
	listener game.Listener
	queued   []func(game.Listener)

	ticks     <-chan time.Time
	stopTicks func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewClockDevice starts a device that reports its position every interval.
// length is the track length in seconds; zero means endless.
func NewClockDevice(interval time.Duration, length float64) *ClockDevice {
	ticker := time.NewTicker(interval)
	d := newClockDevice(ticker.C, interval, length)
	d.stopTicks = ticker.Stop
	return d
}

func newClockDevice(ticks <-chan time.Time, interval time.Duration, length float64) *ClockDevice {
	d := &ClockDevice{
		length:    length,
		step:      interval.Seconds(),
		ticks:     ticks,
		stopTicks: func() {},
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *ClockDevice) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.ticks:
			d.tick()
		}
	}
}

func (d *ClockDevice) tick() {
	d.mu.Lock()
	events := d.queued
	d.queued = nil
	if d.playing {
		d.position += d.step
		if d.length > 0 && d.position >= d.length {
			d.position = d.length
			d.playing = false
			events = append(events, positionEvent(d.position), func(l game.Listener) { l.PlayPaused() })
		} else {
			events = append(events, positionEvent(d.position))
		}
	}
	l := d.listener
	d.mu.Unlock()

	if l == nil {
		return
	}
	for _, ev := range events {
		ev(l)
	}
}

func positionEvent(pos float64) func(game.Listener) {
	return func(l game.Listener) { l.PositionChanged(pos) }
}

func (d *ClockDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.playing {
		d.playing = true
		d.queued = append(d.queued, func(l game.Listener) { l.PlayStarted() })
	}
	return nil
}

func (d *ClockDevice) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playing {
		d.playing = false
		d.queued = append(d.queued, func(l game.Listener) { l.PlayPaused() })
	}
	return nil
}

func (d *ClockDevice) SeekTo(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	d.position = seconds
	d.queued = append(d.queued, positionEvent(seconds))
	return nil
}

func (d *ClockDevice) Subscribe(l game.Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

// Close stops the device goroutine
func (d *ClockDevice) Close() error {
	d.closeOnce.Do(func() {
		d.stopTicks()
		close(d.done)
	})
	return nil
}

// Position returns the simulated playback position
func (d *ClockDevice) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// Playing reports whether the device is advancing
func (d *ClockDevice) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}
