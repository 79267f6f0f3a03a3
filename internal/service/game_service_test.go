package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bollywoodle/internal/config"
	"bollywoodle/internal/game"
	"bollywoodle/internal/models"
	"bollywoodle/internal/player"
)

type stubRepository struct {
	mu      sync.Mutex
	records []models.GuessRecord
}

func (r *stubRepository) FetchRandomSong(ctx context.Context) (*models.Song, error) {
	return &models.Song{ID: 1, Title: "Kesariya", Artist: "Arijit Singh", TrackID: "1001"}, nil
}

func (r *stubRepository) FetchDailySong(ctx context.Context) (*models.Song, error) {
	return &models.Song{ID: 2, Title: "Tum Hi Ho", Artist: "Arijit Singh", TrackID: "1002", IsDailySong: true}, nil
}

func (r *stubRepository) FetchAllTitles(ctx context.Context) ([]models.SongTitle, error) {
	return catalogTitles, nil
}

func (r *stubRepository) RecordGuess(ctx context.Context, rec models.GuessRecord) (*models.Guess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return &models.Guess{ID: int64(len(r.records))}, nil
}

func testModes(t *testing.T) []game.Mode {
	t.Helper()
	modes, err := ModesFromConfig(&config.Config{
		MaxAttempts:      6,
		Segments:         "1,1,3,4,5,2",
		DailyClipSeconds: 30,
		CountdownSeconds: 2,
	})
	if err != nil {
		t.Fatalf("ModesFromConfig() error = %v", err)
	}
	return modes
}

func newTestService(t *testing.T) *GameService {
	t.Helper()
	svc := NewGameService(&stubRepository{}, testModes(t), time.Second, time.Hour)
	t.Cleanup(svc.Close)
	return svc
}

func TestModesFromConfig(t *testing.T) {
	modes := testModes(t)
	if len(modes) != 2 || modes[0].Name != "classic" || modes[1].Name != "daily" {
		t.Fatalf("modes = %+v", modes)
	}
	if modes[0].MaxAttempts != 6 || modes[0].Schedule.Total() != 16 {
		t.Errorf("classic = %+v", modes[0])
	}
	if !modes[1].Daily || modes[1].MaxAttempts != 0 || modes[1].Schedule.Total() != 30 {
		t.Errorf("daily = %+v", modes[1])
	}

	if _, err := ModesFromConfig(&config.Config{Segments: "1,x"}); !errors.Is(err, game.ErrInvalidSchedule) {
		t.Errorf("bad segments error = %v", err)
	}
	if _, err := ModesFromConfig(&config.Config{Segments: "1", MaxAttempts: 1, DailyClipSeconds: 0}); !errors.Is(err, game.ErrInvalidSchedule) {
		t.Errorf("zero daily clip error = %v", err)
	}
}

func TestModesFromConfigAttemptLimit(t *testing.T) {
	tests := []struct {
		name        string
		segments    string
		maxAttempts int
		wantErr     bool
	}{
		{"matching", "1,1,3,4,5,2", 6, false},
		{"fewer attempts than segments", "1,1,3,4,5,2", 4, false},
		{"zero attempts", "1,1,3,4,5,2", 0, true},
		{"negative attempts", "1,1,3,4,5,2", -2, true},
		{"schedule shorter than attempts", "1,1", 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Segments: tt.segments, MaxAttempts: tt.maxAttempts, DailyClipSeconds: 30}
			modes, err := ModesFromConfig(cfg)
			if tt.wantErr {
				if !errors.Is(err, game.ErrInvalidSchedule) {
					t.Errorf("ModesFromConfig() error = %v, want ErrInvalidSchedule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ModesFromConfig() error = %v", err)
			}
			if modes[0].MaxAttempts != tt.maxAttempts {
				t.Errorf("classic MaxAttempts = %d, want %d", modes[0].MaxAttempts, tt.maxAttempts)
			}
		})
	}
}

func TestStartGameUnknownMode(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.StartGame(context.Background(), "p1", "arcade"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("StartGame() error = %v, want ErrUnknownMode", err)
	}
}

func TestStartGameCreatesAndRestarts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.StartGame(ctx, "p1", "classic")
	if err != nil {
		t.Fatalf("StartGame() error = %v", err)
	}
	if sess.Controller.State() != game.StateReady {
		t.Fatalf("State = %q", sess.Controller.State())
	}
	first := sess.Device()
	if first == nil || first.TrackID() != "1001" {
		t.Fatalf("device = %+v", first)
	}

	sess.Controller.Skip()
	again, err := svc.StartGame(ctx, "p1", "classic")
	if err != nil {
		t.Fatalf("second StartGame() error = %v", err)
	}
	if again != sess {
		t.Error("same mode should reuse the session")
	}
	if len(again.Controller.View().Attempts) != 0 {
		t.Error("restart kept old attempts")
	}
	if again.Device() == first {
		t.Error("restart reused the device")
	}

	daily, err := svc.StartGame(ctx, "p1", "daily")
	if err != nil {
		t.Fatalf("daily StartGame() error = %v", err)
	}
	if daily == sess || daily.Controller.Mode().Name != "daily" {
		t.Error("mode switch should replace the session")
	}
	if stats := svc.Stats(); stats.ActiveSessions != 1 || stats.ByState[game.StateReady] != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestSessionNotFound(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Session("nobody"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Session() error = %v", err)
	}
	if cmds := svc.DrainCommands("nobody"); len(cmds) != 0 {
		t.Errorf("DrainCommands() = %v", cmds)
	}
	if err := svc.HandleDeviceEvent("nobody", player.Event{Type: player.EventPlay}); !errors.Is(err, ErrNoSession) {
		t.Errorf("HandleDeviceEvent() error = %v", err)
	}
}

func TestDeviceRoundTrip(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.StartGame(context.Background(), "p1", "classic")

	if err := sess.Controller.TogglePlay(); err != nil {
		t.Fatalf("TogglePlay() error = %v", err)
	}
	cmds := svc.DrainCommands("p1")
	if len(cmds) != 2 || cmds[0].Action != player.ActionSeek || cmds[1].Action != player.ActionPlay {
		t.Fatalf("commands = %+v", cmds)
	}

	svc.HandleDeviceEvent("p1", player.Event{Type: player.EventPlay})
	svc.HandleDeviceEvent("p1", player.Event{Type: player.EventProgress, Position: 1.0})

	if sess.Controller.View().Playback.Playing {
		t.Error("gate did not pause at the boundary")
	}
	cmds = svc.DrainCommands("p1")
	if len(cmds) != 1 || cmds[0].Action != player.ActionPause {
		t.Errorf("expected forced pause command, got %+v", cmds)
	}
}

func TestDeviceErrorEventDisablesPlayback(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.StartGame(context.Background(), "p1", "classic")

	if err := svc.HandleDeviceEvent("p1", player.Event{Type: player.EventError}); err != nil {
		t.Fatalf("HandleDeviceEvent() error = %v", err)
	}
	if sess.Controller.View().Playback.Available {
		t.Error("playback still available")
	}
	if !sess.Controller.SubmitGuess("Kesariya") {
		t.Error("guessing should still work")
	}
}

func TestTickCountdownsRestartsFinishedGames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	sess, _ := svc.StartGame(ctx, "p1", "classic")
	sess.Controller.SubmitGuess("Kesariya")

	svc.TickCountdowns(ctx)
	if sess.Controller.State() != game.StateWon {
		t.Fatalf("restarted early: %q", sess.Controller.State())
	}
	svc.TickCountdowns(ctx)
	if sess.Controller.State() != game.StateReady {
		t.Errorf("State after countdown = %q, want ready", sess.Controller.State())
	}
}

func TestCleanupIdle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	svc.StartGame(ctx, "old", "classic")
	svc.StartGame(ctx, "new", "classic")

	base := time.Now()
	svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	svc.Session("new")

	if n := svc.CleanupIdle(); n != 1 {
		t.Fatalf("CleanupIdle() = %d, want 1", n)
	}
	if _, err := svc.Session("old"); !errors.Is(err, ErrNoSession) {
		t.Error("idle session survived")
	}
	if svc.Stats().ActiveSessions != 1 {
		t.Errorf("ActiveSessions = %d", svc.Stats().ActiveSessions)
	}
}

func TestEndGame(t *testing.T) {
	svc := newTestService(t)
	sess, _ := svc.StartGame(context.Background(), "p1", "classic")
	svc.EndGame("p1")

	if _, err := svc.Session("p1"); !errors.Is(err, ErrNoSession) {
		t.Error("session still present")
	}
	if sess.Controller.View().Playback.Available {
		t.Error("device not released")
	}
}
