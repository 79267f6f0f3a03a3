package handlers

import "net/http"

// RegisterRoutes wires the game pages and API onto mux
func RegisterRoutes(mux *http.ServeMux, h *GameHandler, m *Middleware) {
	// Pages
	mux.HandleFunc("GET /{$}", h.ShowClassic)
	mux.HandleFunc("GET /play", h.ShowDaily)
	mux.HandleFunc("GET /healthz", Healthz)

	// Game API
	mux.HandleFunc("POST /api/game/{mode}/start", h.StartGame)
	mux.HandleFunc("GET /api/game", m.RequirePlayer(h.GetGame))
	mux.HandleFunc("DELETE /api/game", m.RequirePlayer(h.Leave))
	mux.HandleFunc("POST /api/game/guess", m.RequirePlayer(m.RateLimit(h.SubmitGuess)))
	mux.HandleFunc("POST /api/game/skip", m.RequirePlayer(m.RateLimit(h.Skip)))
	mux.HandleFunc("POST /api/game/reveal", m.RequirePlayer(h.Reveal))
	mux.HandleFunc("POST /api/game/toggle-play", m.RequirePlayer(h.TogglePlay))
	mux.HandleFunc("POST /api/game/position", m.RequirePlayer(h.ReportPosition))
	mux.HandleFunc("POST /api/game/device", m.RequirePlayer(h.DeviceEvent))
	mux.HandleFunc("POST /api/game/countdown/toggle", m.RequirePlayer(h.ToggleCountdown))
	mux.HandleFunc("POST /api/game/new", m.RequirePlayer(h.NewGame))
	mux.HandleFunc("GET /api/game/events", m.RequirePlayer(h.Events))
	mux.HandleFunc("GET /api/titles", m.RequirePlayer(h.Titles))
}
