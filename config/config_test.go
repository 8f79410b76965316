package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 28015, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.DialTimeout)
	assert.NotNil(t, cfg.Log)
}

func TestEffectiveWorkerPoolSizeAutoScales(t *testing.T) {
	cfg := Default()
	cfg.WorkerPoolSize = 0
	assert.Equal(t, runtime.NumCPU(), cfg.EffectiveWorkerPoolSize())

	cfg.WorkerPoolSize = 4
	assert.Equal(t, 4, cfg.EffectiveWorkerPoolSize())
}

func TestEffectiveLogFallsBackToDiscard(t *testing.T) {
	cfg := Config{}
	assert.NotNil(t, cfg.EffectiveLog())
}
