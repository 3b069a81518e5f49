package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")

	_, err := fromViper(newViper())
	assert.ErrorIs(t, err, ErrMissingSessionSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := fromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "delicious", cfg.MongoDatabase)
	assert.Equal(t, 4, cfg.StoresPerPage)
	assert.Equal(t, 10000.0, cfg.NearMaxDistance)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, []byte("s3cret"), cfg.SessionSecret)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.Mail.Host)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("STORES_PER_PAGE", "6")
	t.Setenv("RESET_TOKEN_TTL", "30m")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("PUBLIC_BASE_URL", "https://delicious.example/")
	t.Setenv("SESSION_COOKIE_SECURE", "true")
	t.Setenv("MAIL_HOST", "smtp.example")
	t.Setenv("MAIL_PORT", "2525")

	cfg, err := fromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.StoresPerPage)
	assert.Equal(t, 30*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "https://delicious.example", cfg.PublicBaseURL)
	assert.True(t, cfg.SessionCookieSecure)
	assert.Equal(t, "smtp.example", cfg.Mail.Host)
	assert.Equal(t, 2525, cfg.Mail.Port)
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"x"}, parseList("  ", []string{"x"}))
	assert.Equal(t, []string{"x"}, parseList(" , ", []string{"x"}))
	assert.Equal(t, []string{"a", "b"}, parseList("a,b", nil))
}
