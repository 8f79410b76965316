// Package config loads Connection settings from a .env file and/or
// environment variables, for callers that want to configure a driver
// instance without wiring a Config literal by hand.
//
// Grounded on bunbase/pkg/config: the same viper-backed .env-plus-prefixed-
// env-vars loader, adapted to this driver's own Config shape.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kartikbazzad/bunbase/docql/internal/logger"
)

// Config holds everything needed to dial and operate a Connection.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	AuthKey string `mapstructure:"auth_key"`
	// Database names the default database new queries run against when a
	// query doesn't specify one of its own via Db(name).
	Database string `mapstructure:"database"`

	// DialTimeout bounds the initial TCP connect + handshake.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// Timeout is the default wait_for_response timeout used when a query is
	// run without an explicit per-call timeout. Zero means wait forever.
	Timeout time.Duration `mapstructure:"timeout"`

	// WorkerPoolSize bounds the ants.Pool the reader loop uses to deliver
	// responses into the token cache. 0 means auto-scale to
	// runtime.NumCPU(), matching docdb's SchedulerConfig.WorkerCount convention.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`

	// Log receives diagnostic output; nil means logger.Discard().
	Log *logger.Logger `mapstructure:"-"`
}

// Default returns a Config with the driver's baseline defaults: the
// standard port, no auth key, unbounded timeout, auto-scaled worker pool,
// and discarded logging.
func Default() Config {
	return Config{
		Host:           "localhost",
		Port:           28015,
		DialTimeout:    10 * time.Second,
		WorkerPoolSize: 0,
		Log:            logger.Discard(),
	}
}

// EffectiveWorkerPoolSize returns WorkerPoolSize, resolving the 0 "auto"
// sentinel to runtime.NumCPU().
func (c Config) EffectiveWorkerPoolSize() int {
	if c.WorkerPoolSize > 0 {
		return c.WorkerPoolSize
	}
	return runtime.NumCPU()
}

// EffectiveLog returns Log, falling back to a discarding logger when nil.
func (c Config) EffectiveLog() *logger.Logger {
	if c.Log == nil {
		return logger.Discard()
	}
	return c.Log
}

// Load starts from Default(), overlays a .env file in the working
// directory (if present), then overlays any environment variable whose
// name starts with prefix (e.g. "DOCQL_"). DOCQL_DIAL_TIMEOUT and
// DOCQL_TIMEOUT are parsed as Go duration strings ("5s", "500ms").
//
// Load never sets Log; callers wire logging explicitly after loading.
func Load(prefix string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(".env")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("docql/config: reading .env: %w", err)
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		key, value, found := strings.Cut(envStr, "=")
		if !found || !strings.HasPrefix(key, prefixUpper) {
			continue
		}
		// Config is flat, so (unlike bunbase/pkg/config's nested structs)
		// underscores stay underscores instead of becoming dotted paths:
		// DOCQL_DIAL_TIMEOUT -> "dial_timeout", matching the mapstructure tag.
		propKey := strings.ToLower(strings.TrimPrefix(key, prefixUpper))
		propKey = strings.TrimPrefix(propKey, "_")
		v.Set(propKey, value)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("docql/config: unmarshal: %w", err)
	}
	return cfg, nil
}
