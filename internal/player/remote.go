// Package player provides the audio devices the game gate drives.
package player

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"bollywoodle/internal/game"
)

// ErrDeviceClosed is returned for events sent to a closed device
var ErrDeviceClosed = errors.New("device closed")

const maxPendingCommands = 32

// Command is an instruction for the browser widget
type Command struct {
	Action  string  `json:"action"`
	Seconds float64 `json:"seconds,omitempty"`
}

const (
	ActionPlay  = "play"
	ActionPause = "pause"
	ActionSeek  = "seek"
)

// Event is a notification reported by the browser widget
type Event struct {
	Type     string  `json:"type"`
	Position float64 `json:"position"`
}

const (
	EventProgress = "progress"
	EventPlay     = "play"
	EventPause    = "pause"
	EventReady    = "ready"
	EventError    = "error"
)

// RemoteDevice is a game.Device whose transport is an embedded widget in
// the player's browser. Commands queue until the page collects them with
// Drain, and the page reports widget events through HandleEvent.
type RemoteDevice struct {
	mu       sync.Mutex
	trackID  string
	pending  []Command
	listener game.Listener
	ready    bool
	closed   bool
}

// NewRemoteDevice creates a device for a SoundCloud track
func NewRemoteDevice(trackID string) *RemoteDevice {
	return &RemoteDevice{trackID: trackID}
}

// TrackID returns the track the device plays
func (d *RemoteDevice) TrackID() string { return d.trackID }

func (d *RemoteDevice) Play() error {
	return d.push(Command{Action: ActionPlay})
}

func (d *RemoteDevice) Pause() error {
	return d.push(Command{Action: ActionPause})
}

func (d *RemoteDevice) SeekTo(seconds float64) error {
	return d.push(Command{Action: ActionSeek, Seconds: seconds})
}

func (d *RemoteDevice) Subscribe(l game.Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

func (d *RemoteDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.pending = nil
	d.listener = nil
	return nil
}

// push queues a command. Once the queue is full the oldest command is
// dropped, since the page only needs the latest intent.
func (d *RemoteDevice) push(cmd Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeviceClosed
	}
	if len(d.pending) >= maxPendingCommands {
		d.pending = d.pending[1:]
	}
	d.pending = append(d.pending, cmd)
	return nil
}

// Drain returns and clears the queued commands
func (d *RemoteDevice) Drain() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmds := d.pending
	d.pending = nil
	if cmds == nil {
		cmds = []Command{}
	}
	return cmds
}

// Ready reports whether the widget has signalled it loaded
func (d *RemoteDevice) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ready
}

// HandleEvent forwards a widget event to the subscribed listener. The
// listener is called without the device lock held so it may issue
// commands back to the device.
func (d *RemoteDevice) HandleEvent(ev Event) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDeviceClosed
	}
	if ev.Type == EventReady {
		d.ready = true
	}
	l := d.listener
	d.mu.Unlock()

	if l == nil {
		return nil
	}

	switch ev.Type {
	case EventProgress:
		l.PositionChanged(ev.Position)
	case EventPlay:
		l.PlayStarted()
	case EventPause:
		l.PlayPaused()
	case EventReady, EventError:
	default:
		return fmt.Errorf("unknown device event %q", ev.Type)
	}
	return nil
}

const widgetBase = "https://w.soundcloud.com/player/"

// WidgetURL is the hidden SoundCloud iframe source for a track
func WidgetURL(trackID string) string {
	q := url.Values{}
	q.Set("auto_play", "false")
	q.Set("show_artwork", "false")
	q.Set("show_comments", "false")
	q.Set("show_user", "false")
	q.Set("show_reposts", "false")
	q.Set("show_teaser", "false")
	q.Set("visual", "false")
	return widgetBase + "?url=" + url.QueryEscape("https://api.soundcloud.com/tracks/"+trackID) + "&" + q.Encode()
}
