package common

const (
	// MaxRequestBody limits JSON request bodies for form submissions.
	MaxRequestBody = 1 << 20
	// FlashCookieName is the one-shot flash message cookie.
	FlashCookieName = "flash"
	// SessionCookieName carries the signed session token.
	SessionCookieName = "session"
)
