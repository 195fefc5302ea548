package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 120, cfg.Precreate.MaxRangeDays)
	assert.Equal(t, 7, cfg.Precreate.DaysBehind)
	assert.Equal(t, 28, cfg.Precreate.DaysAhead)
	assert.Equal(t, "15 2 * * *", cfg.Precreate.CronSchedule)
	assert.Equal(t, 2*time.Minute, cfg.Reconciliation.CacheTTL)
	assert.Equal(t, time.UTC, cfg.Sessions.Location())
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("PRECREATE_MAX_RANGE_DAYS", 0)
	v.Set("RECONCILIATION_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://admin.example.com, ,https://tutor.example.com ")
	v.Set("SESSIONS_TIMEZONE", "Australia/Adelaide")

	cfg := fromViper(v)
	assert.Equal(t, 120, cfg.Precreate.MaxRangeDays)
	assert.Equal(t, 2*time.Minute, cfg.Reconciliation.CacheTTL)
	assert.Equal(t, []string{"https://admin.example.com", "https://tutor.example.com"}, cfg.CORS.AllowedOrigins)

	loc := cfg.Sessions.Location()
	require.NotNil(t, loc)
	assert.Equal(t, "Australia/Adelaide", loc.String())
}

func TestSessionsLocationFallback(t *testing.T) {
	cfg := SessionsConfig{Timezone: "Mars/Olympus_Mons"}
	assert.Equal(t, time.UTC, cfg.Location())
}
