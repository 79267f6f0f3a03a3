package handlers

import (
	"context"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"bollywoodle/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// PlayerContextKey holds the player id taken from the signed cookie
const PlayerContextKey ContextKey = "player"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.PlayerTokens
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(tokens *security.PlayerTokens, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		tokens:  tokens,
		limiter: limiter,
	}
}

// RequirePlayer rejects requests without a valid player cookie
func (m *Middleware) RequirePlayer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := m.playerFromRequest(r)
		if !ok {
			http.SetCookie(w, security.CreateDeleteCookie(r, security.PlayerCookieName))
			http.Error(w, ErrNoPlayer, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), PlayerContextKey, playerID)
		next(w, r.WithContext(ctx))
	}
}

func (m *Middleware) playerFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(security.PlayerCookieName)
	if err != nil {
		return "", false
	}
	playerID, err := m.tokens.Parse(cookie.Value)
	if err != nil {
		return "", false
	}
	return playerID, true
}

// RateLimit throttles requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := security.GetClientIP(r)
		if !m.limiter.Allow(ip) {
			log.Printf("RateLimit: rejected %s %s from %s", r.Method, r.URL.Path, ip)
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// Recovery turns a handler panic into a 500 response
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC: %v\n%s", err, debug.Stack())
				http.Error(w, ErrInternalServerErrorUC, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// GetPlayerFromContext retrieves the player id from the request context
func GetPlayerFromContext(ctx context.Context) string {
	playerID, _ := ctx.Value(PlayerContextKey).(string)
	return playerID
}
