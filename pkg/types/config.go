package types

import (
	"errors"
	"time"
)

// Config holds backend selection and canvas tuning parameters.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// UserID identifies the local user for create operations and audit
	// entries. Empty means unauthenticated.
	UserID string `json:"user_id" yaml:"user_id"`

	// FlushIntervalSec is the period of the autosave flush loop in seconds.
	// Zero selects the default.
	FlushIntervalSec int `json:"flush_interval" yaml:"flush_interval"`

	// RetryDelaySec is the delay before a failed autosave flush is retried,
	// in seconds. Zero selects the default.
	RetryDelaySec int `json:"retry_delay" yaml:"retry_delay"`

	// RetryLimit caps consecutive failed flush retries. Zero means retry
	// indefinitely.
	RetryLimit int `json:"retry_limit" yaml:"retry_limit"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Autosave timing defaults.
const (
	DefaultFlushInterval = 30 * time.Second
	DefaultRetryDelay    = 5 * time.Second
)

// Config validation errors.
var (
	ErrBackendEmpty        = errors.New("backend must not be empty")
	ErrBackendUnknown      = errors.New("unknown backend")
	ErrFlushIntervalNeg    = errors.New("flush interval must not be negative")
	ErrRetryDelayNegative  = errors.New("retry delay must not be negative")
	ErrRetryLimitNegative  = errors.New("retry limit must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.FlushIntervalSec < 0 {
		return ErrFlushIntervalNeg
	}
	if c.RetryDelaySec < 0 {
		return ErrRetryDelayNegative
	}
	if c.RetryLimit < 0 {
		return ErrRetryLimitNegative
	}
	return nil
}

// FlushInterval returns the configured flush interval, or the default when
// unset.
func (c Config) FlushInterval() time.Duration {
	if c.FlushIntervalSec == 0 {
		return DefaultFlushInterval
	}
	return time.Duration(c.FlushIntervalSec) * time.Second
}

// RetryDelay returns the configured retry delay, or the default when unset.
func (c Config) RetryDelay() time.Duration {
	if c.RetryDelaySec == 0 {
		return DefaultRetryDelay
	}
	return time.Duration(c.RetryDelaySec) * time.Second
}
