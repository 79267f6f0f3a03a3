package handlers

const (
	ErrInvalidFormData       = "Invalid form data"
	ErrNoPlayer              = "No game in progress"
	ErrUnknownMode           = "Unknown game mode"
	ErrGuessRejected         = "Pick a title from the suggestions"
	ErrGameOver              = "Game is over"
	ErrTooManyRequests       = "Too many requests, slow down"
	ErrPlaybackUnavailable   = "Playback unavailable"
	ErrInternalServerError   = "Internal server error"
	ErrInternalServerErrorUC = "Internal Server Error"

	// titleQueryLimit caps the suggestions returned per request
	titleQueryLimit = 10
)
