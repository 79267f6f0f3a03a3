package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"bollywoodle/internal/models"
)

const maxTextLength = 200

var trackIDRegex = regexp.MustCompile(`^[0-9]{1,20}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateTitle checks a song title
func ValidateTitle(title string) error {
	return validateText("title", title)
}

// ValidateArtist checks an artist name
func ValidateArtist(artist string) error {
	return validateText("artist", artist)
}

func validateText(field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if len(value) > maxTextLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, maxTextLength)}
	}
	return nil
}

// ValidateTrackID checks a SoundCloud track id, which is numeric
func ValidateTrackID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ValidationError{Field: "soundcloud_id", Message: "track id is required"}
	}
	if !trackIDRegex.MatchString(id) {
		return ValidationError{Field: "soundcloud_id", Message: "track id must be numeric"}
	}
	return nil
}

// ValidateEmbedURL checks an optional embed URL
func ValidateEmbedURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: "embed_url", Message: "embed url must be an http(s) URL"}
	}
	return nil
}

// ValidateSong checks every field of a catalog entry
func ValidateSong(song models.Song) error {
	checks := []error{
		ValidateTitle(song.Title),
		ValidateArtist(song.Artist),
		ValidateTrackID(song.TrackID),
		ValidateEmbedURL(song.EmbedURL),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// NormalizeSong trims whitespace from every text field
func NormalizeSong(song models.Song) models.Song {
	song.Title = strings.TrimSpace(song.Title)
	song.Artist = strings.TrimSpace(song.Artist)
	song.TrackID = strings.TrimSpace(song.TrackID)
	song.EmbedURL = strings.TrimSpace(song.EmbedURL)
	return song
}
