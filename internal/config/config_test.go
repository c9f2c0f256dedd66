package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaultsWhenEnvUnset(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 8, cfg.Service.PoolSize)
	assert.Equal(t, 1000, cfg.Service.QueueCapacity)
	assert.False(t, cfg.Service.AllowMultipleTasksPerClient)
	assert.Equal(t, 4, cfg.Performance.MaxSimultaneousThreads)
	assert.Equal(t, 5*time.Second, cfg.Performance.WatchdogInterval)
	assert.Equal(t, 10*time.Minute, cfg.Performance.TaskAbsoluteTimeout)
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("CUTOPT_POOL_SIZE", "16")
	t.Setenv("CUTOPT_MAX_SIMULTANEOUS_THREADS", "2")
	t.Setenv("CUTOPT_LOG_PRETTY", "true")

	cfg := Load()
	assert.Equal(t, 16, cfg.Service.PoolSize)
	assert.Equal(t, 2, cfg.Performance.MaxSimultaneousThreads)
	assert.True(t, cfg.Log.Pretty)
}

func TestWithOverridesOnlyAppliesNonZeroFields(t *testing.T) {
	base := PerformanceThresholds{MaxSimultaneousThreads: 4, ThreadCheckInterval: time.Second}
	merged := base.WithOverrides(PerformanceThresholds{MaxSimultaneousThreads: 2})
	assert.Equal(t, 2, merged.MaxSimultaneousThreads)
	assert.Equal(t, time.Second, merged.ThreadCheckInterval)
}
