package models

import (
	"strings"
	"time"
)

// Song represents a track that can be played in the game
type Song struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	TrackID     string    `json:"soundcloud_id"`
	EmbedURL    string    `json:"embed_url"`
	IsDailySong bool      `json:"is_daily_song"`
	CreatedAt   time.Time `json:"created_at"`
}

// SongTitle is one entry of the guess suggestion list
type SongTitle struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Label renders the title the way the suggestion list shows it
func (t SongTitle) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Title + " - " + t.Artist
}

// FindTitle returns the suggestion whose title matches, ignoring case and
// surrounding whitespace.
func FindTitle(titles []SongTitle, title string) (SongTitle, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return SongTitle{}, false
	}
	for _, t := range titles {
		if strings.EqualFold(t.Title, title) {
			return t, true
		}
	}
	return SongTitle{}, false
}

// GuessRecord is the payload written for every guess attempt
type GuessRecord struct {
	SongID           int64   `json:"song_id"`
	TimeTakenSeconds float64 `json:"time_taken"`
	Correct          bool    `json:"correct"`
	SessionID        string  `json:"session_id"`
}

// Guess is a stored guess attempt
type Guess struct {
	ID               int64     `json:"id"`
	SongID           int64     `json:"song_id"`
	TimeTakenSeconds float64   `json:"time_taken"`
	Correct          bool      `json:"correct"`
	SessionID        string    `json:"session_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// SongStats aggregates guesses recorded for a song
type SongStats struct {
	SongID           int64
	Title            string
	Artist           string
	TotalGuesses     int
	CorrectGuesses   int
	AverageTimeTaken float64
}

// SuccessRate returns the fraction of guesses that were correct
func (s SongStats) SuccessRate() float64 {
	if s.TotalGuesses == 0 {
		return 0
	}
	return float64(s.CorrectGuesses) / float64(s.TotalGuesses)
}
