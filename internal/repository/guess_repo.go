package repository

import (
	"context"
	"time"

	"bollywoodle/internal/database"
	"bollywoodle/internal/models"
)

// GuessRepository handles guess database operations
type GuessRepository struct {
	db *database.DB
}

// NewGuessRepository creates a new guess repository
func NewGuessRepository(db *database.DB) *GuessRepository {
	return &GuessRepository{db: db}
}

// RecordGuess stores one guess attempt
func (r *GuessRepository) RecordGuess(ctx context.Context, record models.GuessRecord) (*models.Guess, error) {
	query := `
		INSERT INTO guesses (song_id, time_taken, correct, session_id)
		VALUES (?, ?, ?, ?)
	`

	id, err := r.db.ExecReturningID(ctx, query, record.SongID, record.TimeTakenSeconds, record.Correct, record.SessionID)
	if err != nil {
		return nil, storageError("record guess", err)
	}

	return &models.Guess{
		ID:               id,
		SongID:           record.SongID,
		TimeTakenSeconds: record.TimeTakenSeconds,
		Correct:          record.Correct,
		SessionID:        record.SessionID,
		CreatedAt:        time.Now(),
	}, nil
}

// GetSongGuesses retrieves all guesses for a song, oldest first
func (r *GuessRepository) GetSongGuesses(ctx context.Context, songID int64) ([]models.Guess, error) {
	query := `
		SELECT id, song_id, time_taken, correct, session_id, created_at
		FROM guesses
		WHERE song_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, songID)
	if err != nil {
		return nil, storageError("get song guesses", err)
	}
	defer rows.Close()

	var guesses []models.Guess
	for rows.Next() {
		var g models.Guess
		err := rows.Scan(
			&g.ID,
			&g.SongID,
			&g.TimeTakenSeconds,
			&g.Correct,
			&g.SessionID,
			&g.CreatedAt,
		)
		if err != nil {
			return nil, storageError("scan guess", err)
		}
		guesses = append(guesses, g)
	}

	return guesses, rows.Err()
}

// GetSongStats aggregates guesses per song, including songs never guessed
func (r *GuessRepository) GetSongStats(ctx context.Context) ([]models.SongStats, error) {
	query := `
		SELECT s.id, s.title, s.artist,
		       COUNT(g.id),
		       COALESCE(SUM(CASE WHEN g.correct THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(g.time_taken), 0)
		FROM songs s
		LEFT JOIN guesses g ON g.song_id = s.id
		GROUP BY s.id, s.title, s.artist
		ORDER BY s.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("get song stats", err)
	}
	defer rows.Close()

	var stats []models.SongStats
	for rows.Next() {
		var s models.SongStats
		if err := rows.Scan(&s.SongID, &s.Title, &s.Artist, &s.TotalGuesses, &s.CorrectGuesses, &s.AverageTimeTaken); err != nil {
			return nil, storageError("scan song stats", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GameStore combines song and guess storage into the repository the game
// controller consumes.
type GameStore struct {
	*SongRepository
	*GuessRepository
}

// NewGameStore creates a game store over db
func NewGameStore(db *database.DB) *GameStore {
	return &GameStore{
		SongRepository:  NewSongRepository(db),
		GuessRepository: NewGuessRepository(db),
	}
}
