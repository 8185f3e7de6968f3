// Package sqlite implements the canvas persistence Backend on a local SQLite
// database. It stands in for the hosted service the canvas stores would talk
// to in production; the stores only ever see the types.Backend interface.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/driftmetrics/canvas/pkg/types"
)

// Compile-time interface check.
var _ types.Backend = (*Backend)(nil)

// Backend persists canvases, cards, relationships, and groups in a SQLite
// database under the configured data directory.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	cfg      types.Config
	db       *sql.DB
	log      *zap.Logger
}

// NewBackend creates an unattached backend. Call Attach with a Config before
// use. A nil logger is replaced with a no-op logger.
func NewBackend(logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{log: logger}
}

// Attach validates the config, creates the data directory if needed, opens
// the database, and applies the schema. Returns an error if already
// attached.
func (b *Backend) Attach(cfg types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return fmt.Errorf("backend already attached: %w", types.ErrInvalidData)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "canvas.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.cfg = cfg
	b.attached = true
	b.log.Info("sqlite backend attached", zap.String("path", dbPath))
	return nil
}

// Close releases the database. Idempotent: closing a detached backend
// succeeds.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return nil
	}
	b.attached = false
	err := b.db.Close()
	b.db = nil
	return err
}

// conn returns the open database handle, or ErrCanvasClosed when detached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrCanvasClosed
	}
	return b.db, nil
}

// toJSON encodes v for storage in a TEXT column. Nil slices encode as [].
func toJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding field: %w", err)
	}
	return string(raw), nil
}

// fromJSON decodes a TEXT column into out. Empty text is left as the zero
// value.
func fromJSON(text string, out any) error {
	if text == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decoding field: %w", err)
	}
	return nil
}

// timeText formats a timestamp for storage.
func timeText(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a stored timestamp, tolerating second precision.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
