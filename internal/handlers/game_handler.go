package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bollywoodle/internal/game"
	"bollywoodle/internal/player"
	"bollywoodle/internal/security"
	"bollywoodle/internal/service"
)

const sseKeepAlive = 15 * time.Second

// GameHandler handles game page and API requests
type GameHandler struct {
	games     *service.GameService
	tokens    *security.PlayerTokens
	templates *template.Template
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *service.GameService, tokens *security.PlayerTokens, templates *template.Template) *GameHandler {
	return &GameHandler{
		games:     games,
		tokens:    tokens,
		templates: templates,
	}
}

// ShowClassic renders the classic game page
func (h *GameHandler) ShowClassic(w http.ResponseWriter, r *http.Request) {
	h.renderGame(w, "classic", "Bollywoodle")
}

// ShowDaily renders the daily song page
func (h *GameHandler) ShowDaily(w http.ResponseWriter, r *http.Request) {
	h.renderGame(w, "daily", "Bollywoodle - Song of the Day")
}

func (h *GameHandler) renderGame(w http.ResponseWriter, modeName, title string) {
	mode, ok := h.games.Mode(modeName)
	if !ok {
		http.Error(w, ErrUnknownMode, http.StatusNotFound)
		return
	}

	data := GamePageData{
		Title:       title,
		Mode:        mode.Name,
		Daily:       mode.Daily,
		MaxAttempts: mode.MaxAttempts,
		Segments:    mode.Schedule,
		Countdown:   mode.CountdownSeconds,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "game.tmpl", data); err != nil {
		log.Printf("renderGame: template error: %v", err)
		http.Error(w, ErrInternalServerErrorUC, http.StatusInternalServerError)
	}
}

// StartGame starts or restarts the player's game in the requested mode.
// Players without a valid cookie get a new identity.
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	modeName := r.PathValue("mode")

	playerID := ""
	if cookie, err := r.Cookie(security.PlayerCookieName); err == nil {
		if id, err := h.tokens.Parse(cookie.Value); err == nil {
			playerID = id
		}
	}
	if playerID == "" {
		playerID = security.GenerateSessionID()
		log.Printf("StartGame: new player %s", playerID)
	}

	token, expires, err := h.tokens.Issue(playerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "StartGame: issue token", err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, security.PlayerCookieName, token, expires))

	sess, err := h.games.StartGame(r.Context(), playerID, modeName)
	if errors.Is(err, service.ErrUnknownMode) {
		http.Error(w, ErrUnknownMode, http.StatusNotFound)
		return
	}
	if sess == nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "StartGame: create session", err)
		return
	}
	if err != nil {
		// The view carries the error state for the page to show
		log.Printf("StartGame: load for player %s failed: %v", playerID, err)
	}

	respondWithJSON(w, loadStatus(err), h.snapshot(sess))
}

// loadStatus maps a failed song load to the status sent with the error view
func loadStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, game.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// GetGame returns the player's current view
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondWithSession(w, sess)
}

// SubmitGuess submits the title the player picked from the suggestions
func (h *GameHandler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "SubmitGuess: parse form", err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if !sess.Controller.SubmitGuess(title) {
		http.Error(w, ErrGuessRejected, http.StatusUnprocessableEntity)
		return
	}
	h.respondWithSession(w, sess)
}

// Skip spends an attempt to unlock more of the clip
func (h *GameHandler) Skip(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if !sess.Controller.Skip() {
		respondWithError(w, http.StatusConflict, ErrGameOver, "", nil)
		return
	}
	h.respondWithSession(w, sess)
}

// Reveal gives up and shows the answer
func (h *GameHandler) Reveal(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Controller.Reveal()
	h.respondWithSession(w, sess)
}

// TogglePlay plays the unlocked clip from the top, or stops it
func (h *GameHandler) TogglePlay(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Controller.TogglePlay(); err != nil {
		respondWithError(w, http.StatusConflict, ErrPlaybackUnavailable, "TogglePlay", err)
		return
	}
	h.respondWithSession(w, sess)
}

// ReportPosition receives the widget's playback position
func (h *GameHandler) ReportPosition(w http.ResponseWriter, r *http.Request) {
	playerID := GetPlayerFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "ReportPosition: parse form", err)
		return
	}
	seconds, err := strconv.ParseFloat(r.FormValue("seconds"), 64)
	if err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	h.deviceEvent(w, playerID, player.Event{Type: player.EventProgress, Position: seconds})
}

// DeviceEvent receives widget lifecycle events
func (h *GameHandler) DeviceEvent(w http.ResponseWriter, r *http.Request) {
	playerID := GetPlayerFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "DeviceEvent: parse form", err)
		return
	}

	switch event := r.FormValue("event"); event {
	case player.EventPlay, player.EventPause, player.EventReady, player.EventError:
		h.deviceEvent(w, playerID, player.Event{Type: event})
	default:
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
	}
}

func (h *GameHandler) deviceEvent(w http.ResponseWriter, playerID string, ev player.Event) {
	err := h.games.HandleDeviceEvent(playerID, ev)
	switch {
	case errors.Is(err, service.ErrNoSession):
		http.Error(w, ErrNoPlayer, http.StatusNotFound)
		return
	case errors.Is(err, game.ErrDeviceUnavailable), errors.Is(err, player.ErrDeviceClosed):
		http.Error(w, ErrPlaybackUnavailable, http.StatusConflict)
		return
	case err != nil:
		respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "deviceEvent", err)
		return
	}

	sess, err := h.games.Session(playerID)
	if err != nil {
		http.Error(w, ErrNoPlayer, http.StatusNotFound)
		return
	}
	h.respondWithSession(w, sess)
}

// ToggleCountdown pauses or resumes the countdown to the next song
func (h *GameHandler) ToggleCountdown(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Controller.ToggleCountdown()
	h.respondWithSession(w, sess)
}

// NewGame restarts the player's game with a fresh song in the same mode
func (h *GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	err := sess.Controller.NewGame(r.Context())
	if err != nil {
		log.Printf("NewGame: load for player %s failed: %v", sess.PlayerID, err)
	}
	respondWithJSON(w, loadStatus(err), h.snapshot(sess))
}

// Leave ends the player's game and forgets their identity
func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.games.EndGame(GetPlayerFromContext(r.Context()))
	http.SetCookie(w, security.CreateDeleteCookie(r, security.PlayerCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// Titles returns suggestions for a partial title
func (h *GameHandler) Titles(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	suggestions := service.SuggestTitles(sess.Controller.Titles(), r.URL.Query().Get("q"), titleQueryLimit)
	respondWithJSON(w, http.StatusOK, suggestions)
}

// Events streams the player's view every time it changes
func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	flusher, err := setupSSE(w)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Events", err)
		return
	}
	// The stream outlives the server's write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("Events: clear write deadline: %v", err)
	}

	updates, cancel := sess.Controller.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	h.sendView(w, flusher, sess)
	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-updates:
			if !ok {
				// Session replaced or closed; the page reconnects
				return
			}
			h.sendView(w, flusher, sess)
		case <-keepAlive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func (h *GameHandler) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	sess, err := h.games.Session(GetPlayerFromContext(r.Context()))
	if err != nil {
		http.Error(w, ErrNoPlayer, http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

func (h *GameHandler) snapshot(sess *service.Session) GameResponse {
	commands := h.games.DrainCommands(sess.PlayerID)
	return newGameResponse(sess.Controller.View(), sess.Controller.DrainNotices(), commands)
}

func (h *GameHandler) respondWithSession(w http.ResponseWriter, sess *service.Session) {
	respondWithJSON(w, http.StatusOK, h.snapshot(sess))
}

func (h *GameHandler) sendView(w http.ResponseWriter, flusher http.Flusher, sess *service.Session) {
	sendEvent(w, flusher, h.snapshot(sess))
}

func setupSSE(w http.ResponseWriter) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return flusher, nil
}

func sendEvent(w http.ResponseWriter, flusher http.Flusher, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		log.Println("SSE marshal error:", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
	flusher.Flush()
}
