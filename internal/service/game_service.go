package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"bollywoodle/internal/config"
	"bollywoodle/internal/game"
	"bollywoodle/internal/models"
	"bollywoodle/internal/player"
)

var (
	// ErrUnknownMode is returned for a mode name with no configuration
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrNoSession is returned when a player has no game in progress
	ErrNoSession = errors.New("no game in progress")
)

// ModesFromConfig builds the classic and daily modes from configuration
func ModesFromConfig(cfg *config.Config) ([]game.Mode, error) {
	schedule, err := game.ParseSchedule(cfg.Segments)
	if err != nil {
		return nil, fmt.Errorf("SEGMENTS: %w", err)
	}

	classic := game.ClassicMode
	classic.MaxAttempts = cfg.MaxAttempts
	classic.Schedule = schedule
	classic.CountdownSeconds = cfg.CountdownSeconds

	daily := game.DailyMode(cfg.DailyClipSeconds)
	daily.CountdownSeconds = cfg.CountdownSeconds

	for _, m := range []game.Mode{classic, daily} {
		if err := m.Validate(); err != nil {
			return nil, err
		}
	}
	return []game.Mode{classic, daily}, nil
}

// Session is one player's game
type Session struct {
	PlayerID   string
	Controller *game.Controller

	device   atomic.Pointer[player.RemoteDevice]
	lastSeen atomic.Int64
}

// Device returns the widget device for the current song, or nil
func (s *Session) Device() *player.RemoteDevice {
	return s.device.Load()
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastSeen.Load()))
}

// GameStats summarises the sessions held by the service
type GameStats struct {
	ActiveSessions int
	ByState        map[game.State]int
}

// GameService keeps one game controller per player and drives every
// post-game countdown from a single ticker.
type GameService struct {
	repo          game.Repository
	modes         map[string]game.Mode
	recordTimeout time.Duration
	idleTimeout   time.Duration
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewGameService creates a game service over repo. Sessions unused for
// idleTimeout are dropped by CleanupIdle.
func NewGameService(repo game.Repository, modes []game.Mode, recordTimeout, idleTimeout time.Duration) *GameService {
	byName := make(map[string]game.Mode, len(modes))
	for _, m := range modes {
		byName[m.Name] = m
	}
	if idleTimeout <= 0 {
		idleTimeout = 24 * time.Hour
	}
	return &GameService{
		repo:          repo,
		modes:         byName,
		recordTimeout: recordTimeout,
		idleTimeout:   idleTimeout,
		now:           time.Now,
		sessions:      make(map[string]*Session),
	}
}

// Mode returns the named mode configuration
func (s *GameService) Mode(name string) (game.Mode, bool) {
	m, ok := s.modes[name]
	return m, ok
}

// StartGame starts a new game for the player. A game already running in
// the same mode restarts with a new song; a different mode replaces it.
func (s *GameService) StartGame(ctx context.Context, playerID, modeName string) (*Session, error) {
	mode, ok := s.modes[modeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, modeName)
	}

	s.mu.Lock()
	sess, exists := s.sessions[playerID]
	if exists && sess.Controller.Mode().Name != mode.Name {
		sess.Controller.Close()
		exists = false
	}
	if !exists {
		var err error
		sess, err = s.newSession(playerID, mode)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		s.sessions[playerID] = sess
	}
	sess.touch(s.now())
	s.mu.Unlock()

	if err := sess.Controller.Start(ctx); err != nil {
		return sess, err
	}
	return sess, nil
}

func (s *GameService) newSession(playerID string, mode game.Mode) (*Session, error) {
	sess := &Session{PlayerID: playerID}
	ctrl, err := game.NewController(game.Options{
		Mode:       mode,
		Repository: s.repo,
		Devices: func(song *models.Song) (game.Device, error) {
			dev := player.NewRemoteDevice(song.TrackID)
			sess.device.Store(dev)
			return dev, nil
		},
		RecordTimeout: s.recordTimeout,
	})
	if err != nil {
		return nil, err
	}
	sess.Controller = ctrl
	return sess, nil
}

// Session returns the player's game
func (s *GameService) Session(playerID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[playerID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	sess.touch(s.now())
	return sess, nil
}

// HandleDeviceEvent routes a widget event to the player's current device
func (s *GameService) HandleDeviceEvent(playerID string, ev player.Event) error {
	sess, err := s.Session(playerID)
	if err != nil {
		return err
	}
	if ev.Type == player.EventError {
		sess.Controller.DeviceFailed(errors.New("widget reported an error"))
		return nil
	}
	dev := sess.Device()
	if dev == nil {
		return game.ErrDeviceUnavailable
	}
	return dev.HandleEvent(ev)
}

// DrainCommands returns the widget commands queued for the player
func (s *GameService) DrainCommands(playerID string) []player.Command {
	sess, err := s.Session(playerID)
	if err != nil {
		return []player.Command{}
	}
	dev := sess.Device()
	if dev == nil {
		return []player.Command{}
	}
	return dev.Drain()
}

// EndGame closes and forgets the player's game
func (s *GameService) EndGame(playerID string) {
	s.mu.Lock()
	sess, ok := s.sessions[playerID]
	delete(s.sessions, playerID)
	s.mu.Unlock()

	if ok {
		sess.Controller.Close()
	}
}

func (s *GameService) snapshot() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// TickCountdowns advances every session's post-game countdown by one second
func (s *GameService) TickCountdowns(ctx context.Context) {
	for _, sess := range s.snapshot() {
		if err := sess.Controller.Tick(ctx); err != nil {
			log.Printf("TickCountdowns: restart for player %s failed: %v", sess.PlayerID, err)
		}
	}
}

// RunCountdowns ticks countdowns once a second until ctx is done
func (s *GameService) RunCountdowns(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.TickCountdowns(ctx)
		}
	}
}

// CleanupIdle drops sessions idle for longer than the idle timeout
func (s *GameService) CleanupIdle() int {
	now := s.now()

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.idleSince(now) > s.idleTimeout {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Controller.Close()
	}
	return len(expired)
}

// RunCleanup periodically removes idle sessions until ctx is done
func (s *GameService) RunCleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanupIdle(); n > 0 {
				log.Printf("Expired %d idle game sessions", n)
			}
		}
	}
}

// Stats reports how many sessions exist and what state they are in
func (s *GameService) Stats() GameStats {
	sessions := s.snapshot()
	stats := GameStats{ActiveSessions: len(sessions), ByState: make(map[game.State]int)}
	for _, sess := range sessions {
		stats.ByState[sess.Controller.State()]++
	}
	return stats
}

// Close ends every session and waits for pending guess records
func (s *GameService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Controller.Close()
		sess.Controller.Wait()
	}
}
