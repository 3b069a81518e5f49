package common

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

// Flashes groups one-shot messages by kind.
type Flashes map[string][]string

// Add appends messages under kind.
func (f Flashes) Add(kind string, msgs ...string) Flashes {
	for _, msg := range msgs {
		if strings.TrimSpace(msg) != "" {
			f[kind] = append(f[kind], msg)
		}
	}
	return f
}

// FlashStore keeps flashes in an HMAC-signed cookie that is cleared by the next read.
type FlashStore struct {
	secret []byte
	secure bool
}

func NewFlashStore(secret []byte, secure bool) *FlashStore {
	return &FlashStore{secret: secret, secure: secure}
}

// Set replaces any pending flashes with flashes.
func (s *FlashStore) Set(w http.ResponseWriter, flashes Flashes) {
	if len(flashes) == 0 {
		return
	}
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    s.sign(raw),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Consume returns the pending flashes and expires the cookie. Tampered cookies are discarded.
func (s *FlashStore) Consume(w http.ResponseWriter, r *http.Request) Flashes {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return Flashes{}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	raw, ok := s.parse(cookie.Value)
	if !ok {
		return Flashes{}
	}
	flashes := Flashes{}
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return Flashes{}
	}
	return flashes
}

func (s *FlashStore) sign(raw []byte) string {
	payload := "d=" + base64.RawURLEncoding.EncodeToString(raw)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return payload + "&sig=" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *FlashStore) parse(value string) ([]byte, bool) {
	payload, sig, ok := strings.Cut(value, "&sig=")
	if !ok || !strings.HasPrefix(payload, "d=") {
		return nil, false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return nil, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(payload, "d="))
	if err != nil {
		return nil, false
	}
	return raw, true
}
