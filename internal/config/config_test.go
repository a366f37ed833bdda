package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7012, cfg.App.Port)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 14, cfg.Engine.MaxSegments)
	assert.Equal(t, 30, cfg.Engine.TechDefaults().BufferMinutes)
	assert.Equal(t, -50.0, cfg.Engine.Weights().CrewShortfall)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("API_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENGINE_DISTANCE_TIMEOUT", "750ms")
	t.Setenv("ENGINE_DEFAULT_MAX_JOBS", "6")
	t.Setenv("ENGINE_CREW_SHORTFALL_WEIGHT", "-80")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.CORS.Origins)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.DistanceTimeout)
	assert.Equal(t, 6, cfg.Engine.TechDefaults().MaxJobsPerDay)
	assert.Equal(t, -80.0, cfg.Engine.Weights().CrewShortfall)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("ENGINE_SCORING_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)
}
