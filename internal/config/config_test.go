package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFresh(t *testing.T) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg := loadFresh(t)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "3e0fe9", cfg.Tracking.DefaultTarget)
	assert.Equal(t, 3*time.Second, cfg.Tracking.ScrapeInterval)
	assert.Equal(t, 45*time.Second, cfg.Tracking.ReadTimeout)
	assert.Equal(t, 3, cfg.Tracking.TimeoutThreshold)
	assert.Equal(t, 10*time.Second, cfg.Tracking.SessionCloseTimeout)
	assert.Equal(t, 5000, cfg.Storage.LogCap)
	assert.Equal(t, 14, cfg.History.LookbackDays)
	assert.Equal(t, 30*time.Second, cfg.History.RateLimitBackoff)
	assert.Equal(t, 2*time.Second, cfg.History.RequestDelay)
	assert.Equal(t, 24*time.Hour, cfg.Geocode.CacheTTL)
	assert.Equal(t, 1000, cfg.Geocode.CacheSize)
	assert.Equal(t, 3, cfg.Geocode.Precision)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Keycloak.Enabled())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLIGHTWATCH_DETECTION__ALTITUDE_THRESHOLD", "250")
	t.Setenv("FLIGHTWATCH_TRACKING__DEFAULT_TARGET", "abc123")

	cfg := loadFresh(t)

	assert.Equal(t, 250.0, cfg.Detection.AltitudeThreshold)
	assert.Equal(t, "abc123", cfg.Tracking.DefaultTarget)
}

func TestValidateConfig(t *testing.T) {
	cfg := loadFresh(t)

	bad := *cfg
	bad.Places.MatchRadiusM = 0
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Tracking.TargetURLTemplate = "https://example.com/"
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Database.Enabled = true
	assert.Error(t, validateConfig(&bad))

	bad = *cfg
	bad.Keycloak.URL = "https://auth.example.com"
	assert.Error(t, validateConfig(&bad))
}

func TestLiveReplaceNotifies(t *testing.T) {
	cfg := loadFresh(t)
	live := NewLive(cfg)

	var gotOld, gotNew *Config
	live.OnChange(func(old, updated *Config) {
		gotOld, gotNew = old, updated
	})

	next := *cfg
	next.Places.MatchRadiusM = 200
	require.NoError(t, live.Replace(&next))

	assert.Same(t, cfg, gotOld)
	assert.Same(t, &next, gotNew)
	assert.Equal(t, 200.0, live.Current().Places.MatchRadiusM)
}

func TestLiveReplaceRejectsInvalid(t *testing.T) {
	cfg := loadFresh(t)
	live := NewLive(cfg)

	called := false
	live.OnChange(func(old, updated *Config) { called = true })

	next := *cfg
	next.Detection.OfflineTimeout = 0
	assert.Error(t, live.Replace(&next))
	assert.False(t, called)
	assert.Same(t, cfg, live.Current())
}
