// Package sqlite provides the public factory for the SQLite canvas backend,
// keeping the implementation internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/internal/sqlite"
	"github.com/driftmetrics/canvas/pkg/types"
)

// Backend is the attachable SQLite persistence backend.
type Backend interface {
	types.Backend

	// Attach opens the database described by config. Must be called before
	// any other operation.
	Attach(config types.Config) error
}

// NewBackend creates an unattached SQLite backend. A nil logger is replaced
// with a no-op logger.
//
// Example:
//
//	backend := sqlite.NewBackend(logger)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".canvas",
//	})
//	defer backend.Close()
func NewBackend(logger *zap.Logger) Backend {
	return sqlite.NewBackend(logger)
}
