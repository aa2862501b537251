package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tour-routing-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "STORE", "DB_PATH", "DATABASE_URL", "SEED_PATH", "DISTANCE_PROVIDER",
	"ORS_API_KEY", "DISTANCE_CACHE", "REDIS_ADDR", "EVENTS", "LOG_LEVEL",
	"LOG_FORMAT", "POLICY_PATH", "PUBLIC_BASE_URL", "ESTIMATOR_TIMEOUT",
	"ESTIMATOR_CONCURRENCY", "DISPATCH_CONCURRENCY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "sqlite", c.Store)
	assert.Equal(t, "data/app.db", c.DBPath)
	assert.Equal(t, "haversine", c.DistanceProvider)
	assert.Equal(t, "none", c.DistanceCache)
	assert.Equal(t, "log", c.Events)
	assert.Equal(t, 10*time.Second, c.EstimatorTimeout)
	assert.Equal(t, 5, c.EstimatorConcurrency)
	assert.Equal(t, 1, c.DispatchConcurrency)

	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPolicy(), p)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("STORE", "Memory")
	t.Setenv("DISTANCE_PROVIDER", "ors")
	t.Setenv("ORS_API_KEY", "secret")
	t.Setenv("DISTANCE_CACHE", "redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("ESTIMATOR_TIMEOUT", "2500ms")
	t.Setenv("DISPATCH_CONCURRENCY", "4")

	c, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", c.Port)
	assert.Equal(t, "memory", c.Store)
	assert.Equal(t, "ors", c.DistanceProvider)
	assert.Equal(t, "redis", c.DistanceCache)
	assert.Equal(t, "cache:6379", c.RedisAddr)
	assert.Equal(t, 2500*time.Millisecond, c.EstimatorTimeout)
	assert.Equal(t, 4, c.DispatchConcurrency)
}

func TestFromEnvRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE": "mongo"}},
		{"ors without key", map[string]string{"DISTANCE_PROVIDER": "ors"}},
		{"postgres cache without url", map[string]string{"DISTANCE_CACHE": "postgres"}},
		{"sqlite cache on memory store", map[string]string{"DISTANCE_CACHE": "sqlite", "STORE": "memory"}},
		{"bad duration", map[string]string{"ESTIMATOR_TIMEOUT": "soon"}},
		{"bad integer", map[string]string{"ESTIMATOR_CONCURRENCY": "many"}},
		{"zero concurrency", map[string]string{"DISPATCH_CONCURRENCY": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_response_rate: 0.8
reminder_delay: 24h
default_arrival: 17h30m
invitation_batch_size: 25
setup_checklist:
  - Sweep the porch
`), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	want := domain.DefaultPolicy()
	want.MinResponseRate = 0.8
	want.ReminderDelay = 24 * time.Hour
	want.DefaultArrival = 17*time.Hour + 30*time.Minute
	want.InvitationBatchSize = 25
	want.SetupChecklist = []string{"Sweep the porch"}
	assert.Equal(t, want, p)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPolicy(), p)

	_, err = ParsePolicy([]byte("min_response_rate: 1.5\n"))
	assert.True(t, domain.IsValidation(err))

	_, err = ParsePolicy([]byte("default_arrival: 9h\n"))
	assert.True(t, domain.IsValidation(err))

	_, err = ParsePolicy([]byte("max_response_rate: 0.5\n"))
	assert.Error(t, err)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedPolicyMatchesDefaults(t *testing.T) {
	p, err := LoadPolicy(filepath.Join("..", "..", "configs", "policy.yaml"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPolicy(), p)
}
