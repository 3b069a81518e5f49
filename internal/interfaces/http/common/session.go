package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned when the request carries neither a session cookie nor a bearer token.
var ErrNoSession = errors.New("no session")

// SessionConfig configures the signed session token.
type SessionConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Secure bool
}

// Sessions issues and verifies HS256 session tokens stored in an HttpOnly cookie.
type Sessions struct {
	cfg SessionConfig
	now func() time.Time
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func NewSessions(cfg SessionConfig) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	return &Sessions{cfg: cfg, now: time.Now}
}

// Issue signs a token for userID and sets it as the session cookie. The token is also returned
// so API clients can send it as a bearer token.
func (s *Sessions) Issue(w http.ResponseWriter, userID string) (string, error) {
	now := s.now()
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.TTL / time.Second),
	})
	return token, nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// UserID returns the subject of the request's session token.
func (s *Sessions) UserID(r *http.Request) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		if cookie, err := r.Cookie(SessionCookieName); err == nil {
			raw = cookie.Value
		}
	}
	if raw == "" {
		return "", ErrNoSession
	}
	return s.parse(raw)
}

func (s *Sessions) parse(raw string) (string, error) {
	claims := &sessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid session token")
	}
	if claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) string {
	const bearerPrefix = "Bearer "
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
}
