package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")
	t.Setenv("RELAY_COOLDOWN", "")

	cfg := New()

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Contains(t, cfg.DB.DSN, "dbname=anonpair")
	assert.Equal(t, DefaultRelayCooldown, cfg.Relay.Cooldown)
	assert.Equal(t, DefaultPremiumDuration, cfg.Premium.Duration)
	require.NoError(t, cfg.Validate())
}

func TestNew_MySQLDSN(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "db")

	cfg := New()

	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "user:password@tcp(db:3306)/anonpair?parseTime=true&charset=utf8mb4&loc=UTC", cfg.DB.DSN)
}

func TestNew_ParsesAdminsAndDurations(t *testing.T) {
	t.Setenv("ADMIN_IDS", "10, 20,bad,,30")
	t.Setenv("ADMIN_GROUP_ID", "-100123")
	t.Setenv("RELAY_COOLDOWN", "2s")
	t.Setenv("PREMIUM_SWEEP_INTERVAL", "not-a-duration")

	cfg := New()

	assert.Equal(t, []int64{10, 20, 30}, cfg.Bot.AdminIDs)
	assert.Equal(t, int64(-100123), cfg.Bot.AdminGroupID)
	assert.Equal(t, 2*time.Second, cfg.Relay.Cooldown)
	assert.Equal(t, DefaultPremiumSweepInterval, cfg.Premium.SweepInterval)
	assert.True(t, cfg.IsAdmin(20))
	assert.False(t, cfg.IsAdmin(40))
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Driver = "postgres"
	cfg.Relay.Cooldown = time.Second
	assert.Error(t, cfg.Validate(), "missing token")

	cfg.Bot.Token = "t"
	cfg.DB.Driver = "oracle"
	assert.Error(t, cfg.Validate())

	cfg.DB.Driver = "sqlite"
	assert.NoError(t, cfg.Validate())
}
