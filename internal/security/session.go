package security

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// PlayerCookieName holds the signed player token
const PlayerCookieName = "bollywoodle_player"

const playerIssuer = "bollywoodle"

// ErrInvalidToken is returned when a player token fails verification
var ErrInvalidToken = errors.New("invalid player token")

// GenerateSessionID creates a new UUID for session identification
func GenerateSessionID() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateSessionCookie creates a session cookie with proper security flags
// The Secure flag is automatically set based on the request scheme (HTTPS detection)
func CreateSessionCookie(r *http.Request, name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateDeleteCookie creates a cookie for deletion with proper security flags
func CreateDeleteCookie(r *http.Request, name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// PlayerTokens signs and verifies the anonymous player identity carried in
// the player cookie. The token subject is the player's session ID.
type PlayerTokens struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewPlayerTokens creates a token issuer. The secret must not be empty.
func NewPlayerTokens(secret string, lifetime time.Duration) (*PlayerTokens, error) {
	if secret == "" {
		return nil, errors.New("player token secret is required")
	}
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &PlayerTokens{secret: []byte(secret), lifetime: lifetime, now: time.Now}, nil
}

// Lifetime is how long issued tokens stay valid
func (p *PlayerTokens) Lifetime() time.Duration { return p.lifetime }

// Issue returns a signed token for sessionID and its expiry
func (p *PlayerTokens) Issue(sessionID string) (string, time.Time, error) {
	now := p.now()
	expires := now.Add(p.lifetime)
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    playerIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign player token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies a token and returns its session ID
func (p *PlayerTokens) Parse(token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(playerIssuer),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)

	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
