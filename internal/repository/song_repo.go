package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"

	"bollywoodle/internal/database"
	"bollywoodle/internal/models"
)

const songColumns = `id, title, artist, soundcloud_id, embed_url, is_daily_song, created_at`

// SongRepository handles song database operations
type SongRepository struct {
	db *database.DB
}

// NewSongRepository creates a new song repository
func NewSongRepository(db *database.DB) *SongRepository {
	return &SongRepository{db: db}
}

// FetchRandomSong picks a uniformly random song
func (r *SongRepository) FetchRandomSong(ctx context.Context) (*models.Song, error) {
	count, err := r.CountSongs(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("no songs found: %w", models.ErrNotFound)
	}

	query := `SELECT ` + songColumns + ` FROM songs ORDER BY id LIMIT 1 OFFSET ?`
	song, err := scanSong(r.db.QueryRowContext(ctx, query, rand.Intn(count)))
	if errors.Is(err, sql.ErrNoRows) {
		// A concurrent delete shrank the table between the count and the fetch
		return nil, fmt.Errorf("no songs found: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, storageError("fetch random song", err)
	}
	return song, nil
}

// FetchDailySong returns the song flagged as today's song
func (r *SongRepository) FetchDailySong(ctx context.Context) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE is_daily_song = ? ORDER BY id LIMIT 1`
	song, err := scanSong(r.db.QueryRowContext(ctx, query, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no daily song configured: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, storageError("fetch daily song", err)
	}
	return song, nil
}

// FetchAllTitles returns every title and artist, the guess suggestion list
func (r *SongRepository) FetchAllTitles(ctx context.Context) ([]models.SongTitle, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT title, artist FROM songs ORDER BY title, artist`)
	if err != nil {
		return nil, storageError("fetch titles", err)
	}
	defer rows.Close()

	titles := []models.SongTitle{}
	for rows.Next() {
		var t models.SongTitle
		if err := rows.Scan(&t.Title, &t.Artist); err != nil {
			return nil, storageError("scan title", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("fetch titles", err)
	}
	return titles, nil
}

// GetSongByID retrieves a song by ID
func (r *SongRepository) GetSongByID(ctx context.Context, id int64) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE id = ?`
	song, err := scanSong(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("song %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, storageError("get song", err)
	}
	return song, nil
}

// GetSongByTrackID retrieves a song by its SoundCloud track id
func (r *SongRepository) GetSongByTrackID(ctx context.Context, trackID string) (*models.Song, error) {
	query := `SELECT ` + songColumns + ` FROM songs WHERE soundcloud_id = ?`
	song, err := scanSong(r.db.QueryRowContext(ctx, query, trackID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", trackID, models.ErrNotFound)
	}
	if err != nil {
		return nil, storageError("get song by track", err)
	}
	return song, nil
}

// ListSongs returns all songs ordered by ID
func (r *SongRepository) ListSongs(ctx context.Context) ([]models.Song, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+songColumns+` FROM songs ORDER BY id`)
	if err != nil {
		return nil, storageError("list songs", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, storageError("scan song", err)
		}
		songs = append(songs, *song)
	}
	return songs, rows.Err()
}

// CountSongs returns the number of songs in the catalog
func (r *SongRepository) CountSongs(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`).Scan(&count); err != nil {
		return 0, storageError("count songs", err)
	}
	return count, nil
}

// CreateSong inserts a song and returns it with its new ID
func (r *SongRepository) CreateSong(ctx context.Context, song models.Song) (*models.Song, error) {
	query := `
		INSERT INTO songs (title, artist, soundcloud_id, embed_url, is_daily_song)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, song.Title, song.Artist, song.TrackID, song.EmbedURL, song.IsDailySong)
	if err != nil {
		return nil, storageError("create song", err)
	}
	return r.GetSongByID(ctx, id)
}

// SetDailySong flags exactly one song as the daily song
func (r *SongRepository) SetDailySong(ctx context.Context, id int64) error {
	if _, err := r.GetSongByID(ctx, id); err != nil {
		return err
	}

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE songs SET is_daily_song = ? WHERE is_daily_song = ?`, false, true); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE songs SET is_daily_song = ? WHERE id = ?`, true, id)
		return err
	})
	if err != nil {
		return storageError("set daily song", err)
	}
	return nil
}

// DeleteSong removes a song and its guesses
func (r *SongRepository) DeleteSong(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return storageError("delete song", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("song %d: %w", id, models.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(row rowScanner) (*models.Song, error) {
	song := &models.Song{}
	var createdAt sql.NullTime
	err := row.Scan(
		&song.ID,
		&song.Title,
		&song.Artist,
		&song.TrackID,
		&song.EmbedURL,
		&song.IsDailySong,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		song.CreatedAt = createdAt.Time
	}
	return song, nil
}

func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorage, err)
}
