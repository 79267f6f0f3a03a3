package player

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bollywoodle/internal/game"
)

// recorder is a game.Listener that logs notifications
type recorder struct {
	mu     sync.Mutex
	events []string
	notify chan string
	device game.Device
}

func newRecorder() *recorder {
	return &recorder{notify: make(chan string, 64)}
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.notify <- ev
}

func (r *recorder) PositionChanged(seconds float64) {
	// Issue a command from inside the callback, as the gate does when it
	// forces a pause.
	if r.device != nil && seconds >= 1 {
		r.device.Pause()
	}
	r.add("position")
}

func (r *recorder) PlayStarted() { r.add("play") }
func (r *recorder) PlayPaused()  { r.add("pause") }

func (r *recorder) wait(t *testing.T, want string) {
	t.Helper()
	for {
		select {
		case ev := <-r.notify:
			if ev == want {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestRemoteDeviceQueuesCommands(t *testing.T) {
	dev := NewRemoteDevice("1001")
	dev.SeekTo(0)
	dev.Play()
	dev.Pause()

	cmds := dev.Drain()
	if len(cmds) != 3 {
		t.Fatalf("Drain() = %+v", cmds)
	}
	if cmds[0].Action != ActionSeek || cmds[1].Action != ActionPlay || cmds[2].Action != ActionPause {
		t.Errorf("unexpected order %+v", cmds)
	}
	if again := dev.Drain(); len(again) != 0 {
		t.Errorf("second Drain() = %+v", again)
	}
}

func TestRemoteDeviceDropsOldestWhenFull(t *testing.T) {
	dev := NewRemoteDevice("1001")
	for i := 0; i < maxPendingCommands+5; i++ {
		dev.SeekTo(float64(i))
	}

	cmds := dev.Drain()
	if len(cmds) != maxPendingCommands {
		t.Fatalf("queued %d commands, want %d", len(cmds), maxPendingCommands)
	}
	if cmds[len(cmds)-1].Seconds != float64(maxPendingCommands+4) {
		t.Errorf("latest command lost: %+v", cmds[len(cmds)-1])
	}
}

func TestRemoteDeviceHandleEvent(t *testing.T) {
	dev := NewRemoteDevice("1001")
	rec := newRecorder()
	rec.device = dev
	dev.Subscribe(rec)

	events := []Event{
		{Type: EventReady},
		{Type: EventPlay},
		{Type: EventProgress, Position: 0.5},
		{Type: EventProgress, Position: 1.2},
		{Type: EventPause},
	}
	for _, ev := range events {
		if err := dev.HandleEvent(ev); err != nil {
			t.Fatalf("HandleEvent(%+v) error = %v", ev, err)
		}
	}

	if !dev.Ready() {
		t.Error("ready event not recorded")
	}
	want := []string{"play", "position", "position", "pause"}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
	if cmds := dev.Drain(); len(cmds) != 1 || cmds[0].Action != ActionPause {
		t.Errorf("callback command not queued: %+v", cmds)
	}

	if err := dev.HandleEvent(Event{Type: "rewind"}); err == nil {
		t.Error("expected error for unknown event")
	}
}

func TestRemoteDeviceClosed(t *testing.T) {
	dev := NewRemoteDevice("1001")
	dev.Play()
	dev.Close()

	if err := dev.Play(); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("Play() after Close error = %v", err)
	}
	if err := dev.HandleEvent(Event{Type: EventPlay}); !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("HandleEvent() after Close error = %v", err)
	}
	if cmds := dev.Drain(); len(cmds) != 0 {
		t.Errorf("closed device still has commands %+v", cmds)
	}
}

func TestWidgetURL(t *testing.T) {
	raw := WidgetURL("1001")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	if u.Host != "w.soundcloud.com" {
		t.Errorf("host = %q", u.Host)
	}
	q := u.Query()
	if q.Get("url") != "https://api.soundcloud.com/tracks/1001" {
		t.Errorf("url param = %q", q.Get("url"))
	}
	if q.Get("auto_play") != "false" || q.Get("visual") != "false" {
		t.Errorf("widget options = %v", q)
	}
}

func TestClockDeviceAdvances(t *testing.T) {
	ticks := make(chan time.Time)
	dev := newClockDevice(ticks, 250*time.Millisecond, 0)
	defer dev.Close()

	rec := newRecorder()
	dev.Subscribe(rec)

	dev.SeekTo(0)
	dev.Play()
	ticks <- time.Now()
	rec.wait(t, "play")
	rec.wait(t, "position")

	ticks <- time.Now()
	rec.wait(t, "position")
	ticks <- time.Now()
	rec.wait(t, "position")

	if got := dev.Position(); got != 0.75 {
		t.Errorf("Position() = %v, want 0.75", got)
	}

	dev.Pause()
	ticks <- time.Now()
	rec.wait(t, "pause")
	before := dev.Position()
	ticks <- time.Now()
	if dev.Position() != before {
		t.Error("paused device advanced")
	}
}

func TestClockDeviceCommandFromCallback(t *testing.T) {
	ticks := make(chan time.Time)
	dev := newClockDevice(ticks, 500*time.Millisecond, 0)
	defer dev.Close()

	rec := newRecorder()
	rec.device = dev
	dev.Subscribe(rec)
	dev.Play()

	ticks <- time.Now()
	ticks <- time.Now()
	rec.wait(t, "position")
	rec.wait(t, "position")

	if dev.Playing() {
		t.Error("pause issued from callback was lost")
	}
}

func TestClockDeviceStopsAtTrackEnd(t *testing.T) {
	ticks := make(chan time.Time)
	dev := newClockDevice(ticks, time.Second, 2)
	defer dev.Close()

	rec := newRecorder()
	dev.Subscribe(rec)
	dev.Play()

	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}
	rec.wait(t, "pause")

	if dev.Playing() || dev.Position() != 2 {
		t.Errorf("playing=%v position=%v", dev.Playing(), dev.Position())
	}
}

func TestClockDeviceCloseIdempotent(t *testing.T) {
	dev := NewClockDevice(time.Hour, 0)
	if err := dev.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
