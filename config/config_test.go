package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PORT", DefaultPort)
	t.Setenv("ISSUE_DAILY_LIMIT", "not-a-number")
	t.Setenv("JWT_TTL", "bogus")
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.True(t, cfg.DemoMode())
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, DefaultDevJWTSecret, cfg.JWT.Secret)
	assert.Equal(t, DefaultJWTTTL, cfg.JWT.TTL)
	assert.Equal(t, DefaultIssueLimit, cfg.IssueLimiter.DailyLimit)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "3600")
	t.Setenv("DB_TIMEOUT", "5s")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ISSUE_DAILY_LIMIT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.DemoMode())
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 3, cfg.IssueLimiter.DailyLimit)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("production", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel), "verbose enables debug")

	logger, err = NewLogger("development", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
