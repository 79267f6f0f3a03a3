package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bollywoodle/internal/models"
)

// State is a session controller state
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateActive  State = "active"
	StateWon     State = "won"
	StateLost    State = "lost"
	StateError   State = "error"
)

// Terminal reports whether the state ends the game
func (s State) Terminal() bool {
	return s == StateWon || s == StateLost
}

// Repository is the song data source the controller depends on
type Repository interface {
	FetchRandomSong(ctx context.Context) (*models.Song, error)
	FetchDailySong(ctx context.Context) (*models.Song, error)
	FetchAllTitles(ctx context.Context) ([]models.SongTitle, error)
	RecordGuess(ctx context.Context, record models.GuessRecord) (*models.Guess, error)
}

// DeviceFactory opens the audio device for a song
type DeviceFactory func(song *models.Song) (Device, error)

// Mode configures a controller
type Mode struct {
	Name             string
	Daily            bool
	MaxAttempts      int
	Schedule         Schedule
	CountdownSeconds int
}

// ClassicMode plays a random song with six attempts
var ClassicMode = Mode{
	Name:             "classic",
	MaxAttempts:      6,
	Schedule:         DefaultSchedule,
	CountdownSeconds: DefaultCountdownSeconds,
}

// DailyMode plays the daily song as one clip with no attempt cap
func DailyMode(clipSeconds int) Mode {
	return Mode{
		Name:             "daily",
		Daily:            true,
		Schedule:         Schedule{clipSeconds},
		CountdownSeconds: DefaultCountdownSeconds,
	}
}

// Validate checks the mode's schedule. A capped mode needs a positive
// attempt limit and a segment for every attempt it allows.
func (m Mode) Validate() error {
	if err := m.Schedule.Validate(); err != nil {
		return fmt.Errorf("mode %s: %w", m.Name, err)
	}
	if m.Daily {
		return nil
	}
	if m.MaxAttempts <= 0 {
		return fmt.Errorf("mode %s: %w: max attempts is %d", m.Name, ErrInvalidSchedule, m.MaxAttempts)
	}
	if len(m.Schedule) < m.MaxAttempts {
		return fmt.Errorf("mode %s: %w: %d segments for %d attempts", m.Name, ErrInvalidSchedule, len(m.Schedule), m.MaxAttempts)
	}
	return nil
}

// Options are the controller's collaborators
type Options struct {
	Mode          Mode
	Repository    Repository
	Devices       DeviceFactory
	NewID         func() string
	RecordTimeout time.Duration
}

const defaultRecordTimeout = 10 * time.Second

// Controller runs one player's game: loading a song, taking guesses and
// skips, enforcing the unlocked window and restarting after the post-game
// countdown. All methods are safe for concurrent use.
type Controller struct {
	opts Options

	mu        sync.Mutex
	gen       uint64
	state     State
	err       error
	song      *models.Song
	titles    []models.SongTitle
	ledger    *Ledger
	gate      *Gate
	countdown *Countdown
	timeTaken float64
	notices   []Notice
	subs      map[int]chan struct{}
	nextSub   int
	closed    bool

	inflight sync.WaitGroup
}

// NewController creates a controller in the loading state. Call Start to
// fetch the first song.
func NewController(opts Options) (*Controller, error) {
	if opts.Repository == nil {
		return nil, errors.New("controller requires a repository")
	}
	if err := opts.Mode.Validate(); err != nil {
		return nil, err
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = defaultRecordTimeout
	}

	return &Controller{
		opts:      opts,
		state:     StateLoading,
		ledger:    NewLedger(opts.Mode.MaxAttempts, opts.Mode.Schedule),
		gate:      NewGate(nil, opts.Mode.Schedule.Unlocked(0)),
		countdown: NewCountdown(opts.Mode.CountdownSeconds),
		subs:      make(map[int]chan struct{}),
	}, nil
}

// Start discards the current session and loads a new song. The song and
// the title list are fetched concurrently; if either fails the controller
// enters the error state. A load overtaken by a newer Start is dropped.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.gate.Close()
	c.state = StateLoading
	c.err = nil
	c.song = nil
	c.titles = nil
	c.timeTaken = 0
	c.notices = nil
	c.ledger = NewLedger(c.opts.Mode.MaxAttempts, c.opts.Mode.Schedule)
	c.gate = NewGate(nil, c.ledger.UnlockedDuration())
	c.countdown.Stop()
	c.notifyLocked()
	c.mu.Unlock()

	song, titles, err := c.load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.closed {
		return nil
	}
	defer c.notifyLocked()

	if err != nil {
		log.Printf("Start: %s load failed: %v", c.opts.Mode.Name, err)
		c.state = StateError
		c.err = err
		return err
	}

	c.song = song
	c.titles = titles

	var dev Device
	if c.opts.Devices != nil {
		dev, err = c.opts.Devices(song)
		if err != nil {
			log.Printf("Start: device for track %s unavailable: %v", song.TrackID, err)
			dev = nil
		}
	}
	c.gate = NewGate(dev, c.ledger.UnlockedDuration())
	if dev != nil {
		dev.Subscribe(deviceListener{c: c, gen: gen})
	}

	c.state = StateReady
	return nil
}

// NewGame restarts with a fresh song
func (c *Controller) NewGame(ctx context.Context) error {
	return c.Start(ctx)
}

func (c *Controller) load(ctx context.Context) (*models.Song, []models.SongTitle, error) {
	var (
		song   *models.Song
		titles []models.SongTitle
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if c.opts.Mode.Daily {
			song, err = c.opts.Repository.FetchDailySong(gctx)
		} else {
			song, err = c.opts.Repository.FetchRandomSong(gctx)
		}
		return err
	})
	g.Go(func() error {
		var err error
		titles, err = c.opts.Repository.FetchAllTitles(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %w", ErrNoData, err)
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	if song == nil {
		return nil, nil, ErrNoData
	}
	return song, titles, nil
}

// SubmitGuess scores a title picked from the suggestion list. It returns
// false and changes nothing when the game is not accepting attempts or the
// title is not one of the suggestions.
func (c *Controller) SubmitGuess(title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acceptingLocked() {
		return false
	}
	match, ok := models.FindTitle(c.titles, title)
	if !ok {
		return false
	}

	correct := MatchesTitle(match.Title, c.song.Title)
	elapsed := c.gate.Position()
	if _, err := c.ledger.Append(GuessAttempt(match.Title, correct)); err != nil {
		return false
	}

	c.recordLocked(models.GuessRecord{
		SongID:           c.song.ID,
		TimeTakenSeconds: elapsed,
		Correct:          correct,
		SessionID:        c.opts.NewID(),
	})

	if correct {
		c.timeTaken = elapsed
	}
	c.advanceLocked(true)
	return true
}

// Skip spends an attempt to hear more of the song
func (c *Controller) Skip() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acceptingLocked() {
		return false
	}
	if _, err := c.ledger.Append(SkipAttempt()); err != nil {
		return false
	}
	c.advanceLocked(false)
	return true
}

// Reveal gives up and ends the game as lost
func (c *Controller) Reveal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.acceptingLocked() {
		return false
	}
	c.finishLocked(StateLost)
	c.notifyLocked()
	return true
}

// Tick advances the post-game countdown by one second and starts a new
// game when it reaches zero.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	before := c.countdown.State()
	expired := c.countdown.Tick()
	if c.countdown.State() != before {
		c.notifyLocked()
	}
	c.mu.Unlock()

	if !expired {
		return nil
	}
	return c.Start(ctx)
}

// ToggleCountdown pauses or resumes the post-game countdown
func (c *Controller) ToggleCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.countdown.TogglePause()
	c.notifyLocked()
}

// TogglePlay starts the clip from the top or stops it
func (c *Controller) TogglePlay() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.gate.TogglePlay()
	c.notifyLocked()
	return err
}

// DeviceFailed disables playback for the current song. Guessing keeps working.
func (c *Controller) DeviceFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.song != nil {
		log.Printf("DeviceFailed: track %s: %v", c.song.TrackID, err)
	}
	c.gate.MarkUnavailable()
	c.notifyLocked()
}

func (c *Controller) acceptingLocked() bool {
	if c.state != StateReady && c.state != StateActive {
		return false
	}
	return c.song != nil && !c.ledger.IsTerminal()
}

func (c *Controller) advanceLocked(guessed bool) {
	c.gate.SetUnlocked(c.ledger.UnlockedDuration())

	switch {
	case c.ledger.IsWon():
		c.finishLocked(StateWon)
		c.notices = append(c.notices, correctNotice(c.timeTaken))
	case c.ledger.IsExhausted():
		c.finishLocked(StateLost)
		c.notices = append(c.notices, gameOverNotice())
	default:
		c.state = StateActive
		if guessed {
			c.notices = append(c.notices, incorrectNotice())
		}
	}
	c.notifyLocked()
}

func (c *Controller) finishLocked(state State) {
	c.state = state
	c.countdown.Start()
}

// recordLocked stores a guess in the background. A failure only queues a
// notice, and only if the session it belongs to is still current.
func (c *Controller) recordLocked(record models.GuessRecord) {
	gen := c.gen
	repo := c.opts.Repository
	timeout := c.opts.RecordTimeout

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if _, err := repo.RecordGuess(ctx, record); err != nil {
			log.Printf("RecordGuess: song %d: %v", record.SongID, fmt.Errorf("%w: %w", ErrRecordFailure, err))

			c.mu.Lock()
			defer c.mu.Unlock()
			if gen != c.gen {
				return
			}
			c.notices = append(c.notices, recordFailedNotice())
			c.notifyLocked()
		}
	}()
}

// Wait blocks until every background guess record has finished
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// State returns the current controller state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the load error when the controller is in the error state
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Mode returns the controller's mode
func (c *Controller) Mode() Mode {
	return c.opts.Mode
}

// Titles returns the suggestion list for the current song
func (c *Controller) Titles() []models.SongTitle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.SongTitle, len(c.titles))
	copy(out, c.titles)
	return out
}

// DrainNotices returns and clears the queued notices
func (c *Controller) DrainNotices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	notices := c.notices
	c.notices = nil
	return notices
}

// Subscribe returns a channel signalled after every state change, and a
// function that cancels the subscription. Signals coalesce.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) notifyLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close releases the audio device and ends every subscription. In-flight
// loads and records are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	c.gate.Close()
	c.countdown.Stop()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// deviceListener forwards device notifications for one session. Events
// from a device belonging to an older session are ignored.
type deviceListener struct {
	c   *Controller
	gen uint64
}

func (l deviceListener) PositionChanged(seconds float64) {
	l.c.withGate(l.gen, func(g *Gate) { g.PositionChanged(seconds) })
}

func (l deviceListener) PlayStarted() {
	l.c.withGate(l.gen, func(g *Gate) { g.PlayStarted() })
}

func (l deviceListener) PlayPaused() {
	l.c.withGate(l.gen, func(g *Gate) { g.PlayPaused() })
}

func (c *Controller) withGate(gen uint64, fn func(g *Gate)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	before := c.gate.Snapshot().Playing
	fn(c.gate)
	if c.gate.Snapshot().Playing != before {
		c.notifyLocked()
	}
}
