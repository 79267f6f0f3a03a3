package game

import "errors"

var (
	// ErrLedgerClosed is returned when appending to a won or full ledger
	ErrLedgerClosed = errors.New("ledger closed")
	// ErrInvalidSchedule is returned for an empty schedule, a non-positive
	// segment or a schedule too short for the mode's attempt limit
	ErrInvalidSchedule = errors.New("invalid segment schedule")
	// ErrDeviceUnavailable is returned by playback controls when the audio device failed to initialize
	ErrDeviceUnavailable = errors.New("playback device unavailable")
	// ErrLoadFailure means the song or the title list could not be fetched
	ErrLoadFailure = errors.New("failed to load song")
	// ErrNoData means the fetch succeeded but there was no song to play
	ErrNoData = errors.New("no song available")
	// ErrRecordFailure means a guess could not be stored
	ErrRecordFailure = errors.New("failed to record guess")
)
