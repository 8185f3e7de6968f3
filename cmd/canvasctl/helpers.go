// Shared helpers for canvasctl commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/canvas"
	"github.com/driftmetrics/canvas/pkg/sqlite"
	"github.com/driftmetrics/canvas/pkg/types"
)

// canvasConfig assembles the effective types.Config from flags, config.yaml,
// and defaults.
func canvasConfig() (types.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		Backend: defaultBackend,
		DataDir: dataDir,
		UserID:  configUser,
	}
	if cfgViper != nil {
		if b := cfgViper.GetString(cfgKeyBackend); b != "" {
			cfg.Backend = b
		}
		cfg.FlushIntervalSec = cfgViper.GetInt(cfgKeyFlushInterval)
		cfg.RetryDelaySec = cfgViper.GetInt(cfgKeyRetryDelay)
		cfg.RetryLimit = cfgViper.GetInt(cfgKeyRetryLimit)
	}
	return cfg, cfg.Validate()
}

// cliLogger builds the logger for a command run: development output with
// --verbose, silent otherwise.
func cliLogger() *zap.Logger {
	if !flagVerbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// newCanvas attaches the backend and constructs the Canvas. The caller must
// invoke the returned cleanup.
func newCanvas() (*canvas.Canvas, func(), error) {
	cfg, err := canvasConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := cliLogger()

	backend := sqlite.NewBackend(logger)
	if err := backend.Attach(cfg); err != nil {
		return nil, nil, fmt.Errorf("attach backend: %w", err)
	}

	c := canvas.New(backend, canvas.StaticIdentity(cfg.UserID), cfg, logger)
	cleanup := func() {
		c.Close()
		_ = backend.Close()
	}
	return c, cleanup, nil
}

// openCanvas attaches the backend and opens the canvas named by --canvas.
func openCanvas(ctx context.Context) (*canvas.Canvas, func(), error) {
	if flagCanvas == "" {
		return nil, nil, fmt.Errorf("--canvas is required")
	}
	c, cleanup, err := newCanvas()
	if err != nil {
		return nil, nil, err
	}
	if err := c.Open(ctx, flagCanvas); err != nil {
		cleanup()
		return nil, nil, err
	}
	return c, cleanup, nil
}

// printResult renders v as JSON when --json is set, or via the fallback
// formatter otherwise.
func printResult(v any, fallback func()) error {
	if !flagJSON {
		fallback()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// splitList parses a comma-separated flag value, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitFloats parses a comma-separated list of numbers.
func splitFloats(s string) ([]float64, error) {
	parts := splitList(s)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		out = append(out, f)
	}
	return out, nil
}
