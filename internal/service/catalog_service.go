package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"bollywoodle/internal/models"
	"bollywoodle/internal/player"
	"bollywoodle/internal/repository"
	"bollywoodle/internal/validation"
)

// CatalogVersion is written into every export
const CatalogVersion = "1.0"

// CatalogFile is the import and export document
type CatalogFile struct {
	Version    string        `json:"version" yaml:"version"`
	ExportedAt time.Time     `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Songs      []CatalogSong `json:"songs" yaml:"songs"`
}

// CatalogSong is one song entry of a catalog file
type CatalogSong struct {
	Title    string `json:"title" yaml:"title"`
	Artist   string `json:"artist" yaml:"artist"`
	TrackID  string `json:"soundcloud_id" yaml:"soundcloud_id"`
	EmbedURL string `json:"embed_url,omitempty" yaml:"embed_url,omitempty"`
	Daily    bool   `json:"is_daily_song,omitempty" yaml:"is_daily_song,omitempty"`
}

// ImportResult counts what an import did
type ImportResult struct {
	Created int
	Skipped int
	Daily   *models.Song
}

// CatalogService manages the song catalog
type CatalogService struct {
	songs   *repository.SongRepository
	guesses *repository.GuessRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(songs *repository.SongRepository, guesses *repository.GuessRepository) *CatalogService {
	return &CatalogService{songs: songs, guesses: guesses}
}

// Format is a catalog file encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from a file extension, defaulting to YAML
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ImportFile loads songs from a YAML or JSON file
func (s *CatalogService) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	log.Printf("Starting catalog import from %s...", path)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.Import(ctx, file, FormatForPath(path))
}

// Import adds every song in r that is not already in the catalog. Songs
// are matched by track id. The last entry flagged daily becomes the daily
// song.
func (s *CatalogService) Import(ctx context.Context, r io.Reader, format Format) (*ImportResult, error) {
	catalog, err := decodeCatalog(r, format)
	if err != nil {
		return nil, err
	}

	for i, entry := range catalog.Songs {
		if err := validation.ValidateSong(entry.song()); err != nil {
			return nil, fmt.Errorf("song %d (%q): %w", i+1, entry.Title, err)
		}
	}

	result := &ImportResult{}
	var daily *models.Song
	for _, entry := range catalog.Songs {
		song := entry.song()
		existing, err := s.songs.GetSongByTrackID(ctx, song.TrackID)
		switch {
		case err == nil:
			result.Skipped++
		case errors.Is(err, models.ErrNotFound):
			if song.EmbedURL == "" {
				song.EmbedURL = player.WidgetURL(song.TrackID)
			}
			song.IsDailySong = false
			existing, err = s.songs.CreateSong(ctx, song)
			if err != nil {
				return result, fmt.Errorf("failed to import %q: %w", song.Title, err)
			}
			result.Created++
		default:
			return result, err
		}
		if entry.Daily {
			daily = existing
		}
	}

	if daily != nil {
		if err := s.songs.SetDailySong(ctx, daily.ID); err != nil {
			return result, fmt.Errorf("failed to set daily song: %w", err)
		}
		daily.IsDailySong = true
		result.Daily = daily
	}

	log.Printf("Catalog import completed: %d created, %d skipped", result.Created, result.Skipped)
	return result, nil
}

func decodeCatalog(r io.Reader, format Format) (*CatalogFile, error) {
	var catalog CatalogFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&catalog); err != nil {
			return nil, fmt.Errorf("failed to decode catalog: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&catalog); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	return &catalog, nil
}

func (e CatalogSong) song() models.Song {
	return validation.NormalizeSong(models.Song{
		Title:    e.Title,
		Artist:   e.Artist,
		TrackID:  e.TrackID,
		EmbedURL: e.EmbedURL,
	})
}

// ExportFile writes the catalog to path, encoded by its extension
func (s *CatalogService) ExportFile(ctx context.Context, path string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	n, err := s.Export(ctx, file, FormatForPath(path))
	if err != nil {
		return n, err
	}
	log.Printf("Catalog exported successfully to %s (%d songs)", path, n)
	return n, nil
}

// Export writes every song to w and returns how many were written
func (s *CatalogService) Export(ctx context.Context, w io.Writer, format Format) (int, error) {
	songs, err := s.songs.ListSongs(ctx)
	if err != nil {
		return 0, err
	}

	catalog := CatalogFile{Version: CatalogVersion, ExportedAt: time.Now().UTC(), Songs: make([]CatalogSong, 0, len(songs))}
	for _, song := range songs {
		catalog.Songs = append(catalog.Songs, CatalogSong{
			Title:    song.Title,
			Artist:   song.Artist,
			TrackID:  song.TrackID,
			EmbedURL: song.EmbedURL,
			Daily:    song.IsDailySong,
		})
	}

	switch format {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(catalog); err != nil {
			return 0, fmt.Errorf("failed to encode catalog: %w", err)
		}
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(catalog); err != nil {
			return 0, fmt.Errorf("failed to encode catalog: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return 0, fmt.Errorf("failed to encode catalog: %w", err)
		}
	default:
		return 0, fmt.Errorf("unsupported catalog format %q", format)
	}
	return len(songs), nil
}

// ListSongs returns the whole catalog
func (s *CatalogService) ListSongs(ctx context.Context) ([]models.Song, error) {
	return s.songs.ListSongs(ctx)
}

// AddSong validates and adds a single song
func (s *CatalogService) AddSong(ctx context.Context, song models.Song) (*models.Song, error) {
	song = validation.NormalizeSong(song)
	if err := validation.ValidateSong(song); err != nil {
		return nil, err
	}
	if song.EmbedURL == "" {
		song.EmbedURL = player.WidgetURL(song.TrackID)
	}
	daily := song.IsDailySong
	song.IsDailySong = false

	created, err := s.songs.CreateSong(ctx, song)
	if err != nil {
		return nil, err
	}
	if daily {
		if err := s.songs.SetDailySong(ctx, created.ID); err != nil {
			return nil, err
		}
		created.IsDailySong = true
	}
	return created, nil
}

// SetDailySong makes the song with the given id the daily song
func (s *CatalogService) SetDailySong(ctx context.Context, id int64) (*models.Song, error) {
	if err := s.songs.SetDailySong(ctx, id); err != nil {
		return nil, err
	}
	return s.songs.GetSongByID(ctx, id)
}

// RemoveSong deletes a song and its recorded guesses
func (s *CatalogService) RemoveSong(ctx context.Context, id int64) error {
	return s.songs.DeleteSong(ctx, id)
}

// Stats returns per-song guess statistics
func (s *CatalogService) Stats(ctx context.Context) ([]models.SongStats, error) {
	return s.guesses.GetSongStats(ctx)
}

// SongGuesses returns every recorded guess for one song, oldest first
func (s *CatalogService) SongGuesses(ctx context.Context, id int64) ([]models.Guess, error) {
	if _, err := s.songs.GetSongByID(ctx, id); err != nil {
		return nil, err
	}
	return s.guesses.GetSongGuesses(ctx, id)
}
