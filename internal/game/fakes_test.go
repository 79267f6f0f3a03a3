package game

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bollywoodle/internal/models"
)

// fakeDevice records the commands it receives
type fakeDevice struct {
	mu       sync.Mutex
	calls    []string
	listener Listener
	closed   bool
	failPlay error
}

func (d *fakeDevice) Play() error {
	d.record("play")
	return d.failPlay
}

func (d *fakeDevice) Pause() error {
	d.record("pause")
	return nil
}

func (d *fakeDevice) SeekTo(seconds float64) error {
	d.record(fmt.Sprintf("seek:%g", seconds))
	return nil
}

func (d *fakeDevice) Subscribe(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listener = l
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDevice) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	copy(out, d.calls)
	return out
}

func (d *fakeDevice) Listener() Listener {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listener
}

func (d *fakeDevice) count(call string) int {
	n := 0
	for _, c := range d.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// fakeRepository serves a fixed catalog and records guesses
type fakeRepository struct {
	mu        sync.Mutex
	song      *models.Song
	daily     *models.Song
	titles    []models.SongTitle
	songErr   error
	titlesErr error
	recordErr error
	records   []models.GuessRecord
	// block, when set, holds the next FetchRandomSong until it is closed.
	// entered is signalled once that call is waiting.
	block   chan struct{}
	entered chan struct{}
	// recordBlock holds every RecordGuess until it is closed
	recordBlock chan struct{}
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		song:  &models.Song{ID: 7, Title: "Kesariya", Artist: "Arijit Singh", TrackID: "1001"},
		daily: &models.Song{ID: 8, Title: "Tum Hi Ho", Artist: "Arijit Singh", TrackID: "1002", IsDailySong: true},
		titles: []models.SongTitle{
			{Title: "Kesariya", Artist: "Arijit Singh"},
			{Title: "Tum Hi Ho", Artist: "Arijit Singh"},
			{Title: "Chaiyya Chaiyya", Artist: "Sukhwinder Singh"},
		},
	}
}

func (r *fakeRepository) FetchRandomSong(ctx context.Context) (*models.Song, error) {
	r.mu.Lock()
	block, entered := r.block, r.entered
	r.block = nil
	r.mu.Unlock()
	if block != nil {
		close(entered)
		<-block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.songErr != nil {
		return nil, r.songErr
	}
	song := *r.song
	return &song, nil
}

func (r *fakeRepository) FetchDailySong(ctx context.Context) (*models.Song, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.songErr != nil {
		return nil, r.songErr
	}
	if r.daily == nil {
		return nil, fmt.Errorf("no daily song configured: %w", models.ErrNotFound)
	}
	song := *r.daily
	return &song, nil
}

func (r *fakeRepository) FetchAllTitles(ctx context.Context) ([]models.SongTitle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.titlesErr != nil {
		return nil, r.titlesErr
	}
	return r.titles, nil
}

func (r *fakeRepository) RecordGuess(ctx context.Context, record models.GuessRecord) (*models.Guess, error) {
	r.mu.Lock()
	wait := r.recordBlock
	r.mu.Unlock()
	if wait != nil {
		<-wait
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	if r.recordErr != nil {
		return nil, r.recordErr
	}
	return &models.Guess{ID: int64(len(r.records)), SongID: record.SongID, Correct: record.Correct, SessionID: record.SessionID}, nil
}

func (r *fakeRepository) Records() []models.GuessRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.GuessRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *fakeRepository) setSong(song *models.Song) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.song = song
}

var errBackend = errors.New("backend down")
