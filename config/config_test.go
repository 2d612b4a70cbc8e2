package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 1, cfg.TicketCreateLimit)
	assert.Equal(t, 5*time.Minute, cfg.TicketCooldown)
	assert.Equal(t, 3, cfg.MaxActiveTickets)
	assert.Equal(t, 5, cfg.FileUploadLimit)
	assert.Equal(t, 10*time.Minute, cfg.FileUploadWindow)
	assert.Equal(t, 10*time.Second, cfg.CloseGrace)
	assert.Equal(t, 5*time.Minute, cfg.AutoCloseDelay)
	assert.Equal(t, "memory", cfg.RateLimitBackend)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_ACTIVE_TICKETS", "5")
	t.Setenv("TICKET_COOLDOWN", "10m")
	t.Setenv("ENABLE_METRICS", "false")

	cfg := Load()
	assert.Equal(t, 5, cfg.MaxActiveTickets)
	assert.Equal(t, 10*time.Minute, cfg.TicketCooldown)
	assert.False(t, cfg.EnableMetrics)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	require.Error(t, cfg.Validate(), "missing required variables must fail validation")

	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("DISCORD_APP_ID", "app")
	t.Setenv("GUILD_ID", "guild")
	t.Setenv("DATABASE_URL", "postgres://localhost/salesbot")

	cfg = Load()
	require.NoError(t, cfg.Validate())

	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	cfg = Load()
	require.Error(t, cfg.Validate(), "redis backend without REDIS_URL must fail")

	t.Setenv("REDIS_URL", "redis://localhost:6379")
	cfg = Load()
	require.NoError(t, cfg.Validate())
}
