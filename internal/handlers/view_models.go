package handlers

import (
	"bollywoodle/internal/game"
	"bollywoodle/internal/player"
)

// GamePageData is rendered by game.tmpl
type GamePageData struct {
	Title       string
	Mode        string
	Daily       bool
	MaxAttempts int
	Segments    []int
	Countdown   int
}

// GameResponse is the JSON body of every game endpoint. Commands are the
// widget instructions the page must apply, in order.
type GameResponse struct {
	game.View
	SkipText     string           `json:"skip_label"`
	AttemptsLeft int              `json:"remaining_attempts"`
	WidgetURL    string           `json:"widget_url,omitempty"`
	Commands     []player.Command `json:"commands"`
}

func newGameResponse(v game.View, notices []game.Notice, commands []player.Command) GameResponse {
	v.Notices = notices
	if commands == nil {
		commands = []player.Command{}
	}
	resp := GameResponse{
		View:         v,
		SkipText:     v.SkipLabel(),
		AttemptsLeft: v.RemainingAttempts(),
		Commands:     commands,
	}
	if v.TrackID != "" {
		resp.WidgetURL = player.WidgetURL(v.TrackID)
	}
	return resp
}
