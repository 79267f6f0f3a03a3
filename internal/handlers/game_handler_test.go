package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bollywoodle/internal/game"
	"bollywoodle/internal/models"
	"bollywoodle/internal/player"
	"bollywoodle/internal/security"
	"bollywoodle/internal/service"
)

type memoryRepository struct {
	mu       sync.Mutex
	records  []models.GuessRecord
	dailyErr error
}

func (r *memoryRepository) FetchRandomSong(ctx context.Context) (*models.Song, error) {
	return &models.Song{ID: 1, Title: "Kesariya", Artist: "Arijit Singh", TrackID: "1001"}, nil
}

func (r *memoryRepository) FetchDailySong(ctx context.Context) (*models.Song, error) {
	if r.dailyErr != nil {
		return nil, r.dailyErr
	}
	return &models.Song{ID: 2, Title: "Tum Hi Ho", Artist: "Arijit Singh", TrackID: "1002", IsDailySong: true}, nil
}

func (r *memoryRepository) FetchAllTitles(ctx context.Context) ([]models.SongTitle, error) {
	return []models.SongTitle{
		{Title: "Kesariya", Artist: "Arijit Singh"},
		{Title: "Tum Hi Ho", Artist: "Arijit Singh"},
		{Title: "Kal Ho Naa Ho", Artist: "Sonu Nigam"},
	}, nil
}

func (r *memoryRepository) RecordGuess(ctx context.Context, rec models.GuessRecord) (*models.Guess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return &models.Guess{ID: int64(len(r.records))}, nil
}

type testServer struct {
	*httptest.Server
	client *http.Client
	games  *service.GameService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithRepo(t, &memoryRepository{})
}

func newTestServerWithRepo(t *testing.T, repo *memoryRepository) *testServer {
	t.Helper()

	classic := game.ClassicMode
	classic.CountdownSeconds = 5
	daily := game.DailyMode(30)
	games := service.NewGameService(repo, []game.Mode{classic, daily}, time.Second, time.Hour)

	tokens, err := security.NewPlayerTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewPlayerTokens() error = %v", err)
	}
	limiter := security.NewRateLimiter(1000, 1000)

	tmpl := template.Must(template.New("game.tmpl").Parse(`{{.Title}}|{{.Mode}}|{{.MaxAttempts}}`))

	mux := http.NewServeMux()
	RegisterRoutes(mux, NewGameHandler(games, tokens, tmpl), NewMiddleware(tokens, limiter))

	srv := httptest.NewServer(Recovery(mux))
	t.Cleanup(func() {
		srv.Close()
		games.Close()
		limiter.Stop()
	})

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &testServer{Server: srv, client: &http.Client{Jar: jar}, games: games}
}

func (s *testServer) post(t *testing.T, path string, form url.Values) (*http.Response, GameResponse) {
	t.Helper()
	resp, err := s.client.PostForm(s.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return decodeGame(t, resp)
}

func (s *testServer) get(t *testing.T, path string) (*http.Response, GameResponse) {
	t.Helper()
	resp, err := s.client.Get(s.URL + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	return decodeGame(t, resp)
}

func decodeGame(t *testing.T, resp *http.Response) (*http.Response, GameResponse) {
	t.Helper()
	defer resp.Body.Close()

	var body GameResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, body
}

func TestStartGameSetsCookieAndReturnsView(t *testing.T) {
	srv := newTestServer(t)

	resp, body := srv.post(t, "/api/game/classic/start", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == security.PlayerCookieName && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("player cookie not set")
	}

	if body.State != game.StateReady || body.Mode != "classic" {
		t.Errorf("view = %+v", body.View)
	}
	if body.SkipText != "SKIP (+1s)" || body.AttemptsLeft != 6 {
		t.Errorf("skip = %q remaining = %d", body.SkipText, body.AttemptsLeft)
	}
	widget, err := url.Parse(body.WidgetURL)
	if err != nil || widget.Query().Get("url") != "https://api.soundcloud.com/tracks/1001" {
		t.Errorf("widget url = %q", body.WidgetURL)
	}
	if body.Answer != nil {
		t.Error("answer exposed before the game ended")
	}
}

func TestStartGameUnknownMode(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := srv.post(t, "/api/game/arcade/start", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGameEndpointsRequirePlayer(t *testing.T) {
	srv := newTestServer(t)

	paths := []string{"/api/game/guess", "/api/game/skip", "/api/game/reveal", "/api/game/new"}
	for _, path := range paths {
		resp, _ := srv.post(t, path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("POST %s status = %d, want 401", path, resp.StatusCode)
		}
	}

	resp, _ := srv.get(t, "/api/game")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /api/game status = %d, want 401", resp.StatusCode)
	}
}

func TestGuessFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.post(t, "/api/game/classic/start", nil)

	resp, _ := srv.post(t, "/api/game/guess", url.Values{"title": {"Kesar"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unselected title status = %d, want 422", resp.StatusCode)
	}

	resp, body := srv.post(t, "/api/game/guess", url.Values{"title": {"Tum Hi Ho"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("guess status = %d", resp.StatusCode)
	}
	if body.State != game.StateActive || len(body.Attempts) != 1 || body.Attempts[0].Correct {
		t.Fatalf("after wrong guess = %+v", body.View)
	}
	if len(body.Notices) != 1 || body.Notices[0].Kind != game.NoticeIncorrect {
		t.Errorf("notices = %+v", body.Notices)
	}
	if body.Unlocked != 2 {
		t.Errorf("unlocked = %d, want 2", body.Unlocked)
	}

	_, body = srv.post(t, "/api/game/skip", nil)
	if len(body.Attempts) != 2 || body.Attempts[1].Kind != game.KindSkip {
		t.Fatalf("after skip = %+v", body.Attempts)
	}

	_, body = srv.post(t, "/api/game/guess", url.Values{"title": {"kesariya"}})
	if body.State != game.StateWon || body.Outcome != game.OutcomeWon {
		t.Fatalf("after correct guess = %+v", body.View)
	}
	if body.Answer == nil || body.Answer.Title != "Kesariya" {
		t.Errorf("answer = %+v", body.Answer)
	}
	if !body.Countdown.Running || body.Countdown.Remaining != 5 {
		t.Errorf("countdown = %+v", body.Countdown)
	}

	resp, err := srv.client.PostForm(srv.URL+"/api/game/skip", nil)
	if err != nil {
		t.Fatalf("POST skip error = %v", err)
	}
	msg, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("skip after game over status = %d, want 409", resp.StatusCode)
	}
	if strings.TrimSpace(string(msg)) != ErrGameOver {
		t.Errorf("skip after game over body = %q, want %q", msg, ErrGameOver)
	}

	_, body = srv.post(t, "/api/game/countdown/toggle", nil)
	if !body.Countdown.Paused {
		t.Error("countdown not paused")
	}

	_, body = srv.post(t, "/api/game/new", nil)
	if body.State != game.StateReady || len(body.Attempts) != 0 {
		t.Errorf("new game = %+v", body.View)
	}
}

func TestRevealEndsGame(t *testing.T) {
	srv := newTestServer(t)
	srv.post(t, "/api/game/classic/start", nil)

	_, body := srv.post(t, "/api/game/reveal", nil)
	if body.State != game.StateLost || body.Answer == nil {
		t.Errorf("reveal = %+v", body.View)
	}
}

func TestPlaybackCommands(t *testing.T) {
	srv := newTestServer(t)
	srv.post(t, "/api/game/classic/start", nil)

	resp, body := srv.post(t, "/api/game/toggle-play", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle-play status = %d", resp.StatusCode)
	}
	want := []string{player.ActionSeek, player.ActionPlay}
	if len(body.Commands) != len(want) {
		t.Fatalf("commands = %+v", body.Commands)
	}
	for i, cmd := range body.Commands {
		if cmd.Action != want[i] {
			t.Errorf("command %d = %q, want %q", i, cmd.Action, want[i])
		}
	}

	srv.post(t, "/api/game/device", url.Values{"event": {"play"}})
	_, body = srv.post(t, "/api/game/position", url.Values{"seconds": {"1.2"}})
	if body.Playback.Playing {
		t.Error("still playing past the boundary")
	}
	if len(body.Commands) != 1 || body.Commands[0].Action != player.ActionPause {
		t.Errorf("commands = %+v, want a pause", body.Commands)
	}

	resp, _ = srv.post(t, "/api/game/position", url.Values{"seconds": {"abc"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad position status = %d", resp.StatusCode)
	}
	resp, _ = srv.post(t, "/api/game/device", url.Values{"event": {"rewind"}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad event status = %d", resp.StatusCode)
	}

	_, body = srv.post(t, "/api/game/device", url.Values{"event": {"error"}})
	if body.Playback.Available {
		t.Error("playback available after widget error")
	}
	resp, _ = srv.post(t, "/api/game/toggle-play", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("toggle-play after error status = %d, want 409", resp.StatusCode)
	}
}

func TestTitlesSuggestions(t *testing.T) {
	srv := newTestServer(t)
	srv.post(t, "/api/game/classic/start", nil)

	resp, err := srv.client.Get(srv.URL + "/api/titles?q=HO")
	if err != nil {
		t.Fatalf("GET /api/titles error = %v", err)
	}
	defer resp.Body.Close()

	var titles []models.SongTitle
	if err := json.NewDecoder(resp.Body).Decode(&titles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(titles) != 2 {
		t.Errorf("titles = %+v", titles)
	}
}

func TestDailyModeIsUnbounded(t *testing.T) {
	srv := newTestServer(t)

	_, body := srv.post(t, "/api/game/daily/start", nil)
	if body.Mode != "daily" || body.AttemptsLeft != -1 || body.Unlocked != 30 {
		t.Fatalf("daily view = %+v", body)
	}
	for i := 0; i < 8; i++ {
		srv.post(t, "/api/game/skip", nil)
	}
	_, body = srv.get(t, "/api/game")
	if body.State != game.StateActive || len(body.Attempts) != 8 {
		t.Errorf("daily after skips = %+v", body.View)
	}
}

func TestEventsStreamsViews(t *testing.T) {
	srv := newTestServer(t)
	srv.post(t, "/api/game/classic/start", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/game/events", nil)
	resp, err := srv.client.Do(req)
	if err != nil {
		t.Fatalf("GET events error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	events := make(chan GameResponse, 4)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var v GameResponse
			if json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &v) != nil {
				continue
			}
			select {
			case events <- v:
			case <-ctx.Done():
				return
			}
		}
	}()

	first := waitEvent(t, events)
	if first.State != game.StateReady {
		t.Fatalf("first event state = %q", first.State)
	}

	srv.post(t, "/api/game/reveal", nil)
	for {
		v := waitEvent(t, events)
		if v.State == game.StateLost {
			break
		}
	}
}

func waitEvent(t *testing.T, events <-chan GameResponse) GameResponse {
	t.Helper()
	select {
	case v := <-events:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return GameResponse{}
	}
}

func TestPages(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{path: "/", status: http.StatusOK, contains: "Bollywoodle|classic|6"},
		{path: "/play", status: http.StatusOK, contains: "|daily|0"},
		{path: "/missing", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := srv.client.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s error = %v", tt.path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.contains == "" {
				return
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body = %q, want %q", body, tt.contains)
			}
		})
	}
}

func TestInvalidCookieIsRejected(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/game", nil)
	req.AddCookie(&http.Cookie{Name: security.PlayerCookieName, Value: "forged"})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestRateLimitRejects(t *testing.T) {
	limiter := security.NewRateLimiter(0.001, 1)
	defer limiter.Stop()
	m := NewMiddleware(nil, limiter)

	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for i, want := range []int{http.StatusNoContent, http.StatusTooManyRequests} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/game/guess", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler(rec, req)
		if rec.Code != want {
			t.Errorf("request %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestRecoveryHandlesPanic(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealthzAndStartupPage(t *testing.T) {
	startupStatus = newStartupStatus()
	t.Cleanup(func() { startupStatus = newStartupStatus() })

	guarded := RequireReady(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "Bollywoodle") {
		t.Errorf("startup page status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz while starting = %d", rec.Code)
	}

	CompleteStep(StepDatabase)
	if startupStatus.Progress != 20 {
		t.Errorf("progress = %d, want 20", startupStatus.Progress)
	}
	MarkReady()

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("ready status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz when ready = %d", rec.Code)
	}
}

func TestStartGameLoadFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "no daily song", err: models.ErrNotFound, status: http.StatusNotFound},
		{name: "storage down", err: errors.New("connection refused"), status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServerWithRepo(t, &memoryRepository{dailyErr: tt.err})

			resp, body := srv.post(t, "/api/game/daily/start", nil)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if body.State != game.StateError || body.Error == "" {
				t.Errorf("view = %+v, want error state", body.View)
			}

			// The session exists, so the player can retry
			resp, _ = srv.post(t, "/api/game/new", nil)
			if resp.StatusCode != tt.status {
				t.Errorf("new game status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestLeaveEndsGame(t *testing.T) {
	srv := newTestServer(t)
	srv.post(t, "/api/game/classic/start", nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/game", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := srv.client.Do(req)
	if err != nil {
		t.Fatalf("DELETE /api/game error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if n := srv.games.Stats().ActiveSessions; n != 0 {
		t.Errorf("active sessions = %d, want 0", n)
	}

	// The cookie is gone, so the player must start again
	resp, _ = srv.get(t, "/api/game")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /api/game after leave status = %d, want 401", resp.StatusCode)
	}
}
