// Package canvas implements the canvas core: the in-memory metric graph, the
// node/edge/group stores with optimistic local mutation and backend
// persistence, the autosave coordinator for deferred position/content writes,
// and the dimension slicer.
package canvas

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/types"
)

// Version of the canvas core.
const Version = "0.4.0"

// Canvas owns the single active CanvasProject and composes the stores that
// operate on it. All reads and local mutations are served from memory;
// persisted operations write through the Backend first and mirror into
// memory on success. One mutex serializes access to the shared project
// state; backend round-trips happen outside the lock so in-flight persists
// never block local mutation.
type Canvas struct {
	mu       sync.Mutex
	backend  types.Backend
	identity types.Identity
	cfg      types.Config
	log      *zap.Logger

	project       *types.CanvasProject
	selectedNodes map[string]struct{}
	selectedEdges map[string]struct{}
	lastErr       error

	nodes    NodeStore
	edges    EdgeStore
	groups   GroupStore
	autosave *Autosave
}

// New constructs a Canvas bound to the given backend and identity provider.
// A nil logger is replaced with a no-op logger. No canvas is open until
// Open is called.
func New(backend types.Backend, identity types.Identity, cfg types.Config, logger *zap.Logger) *Canvas {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Canvas{
		backend:       backend,
		identity:      identity,
		cfg:           cfg,
		log:           logger,
		selectedNodes: make(map[string]struct{}),
		selectedEdges: make(map[string]struct{}),
	}
	c.nodes = NodeStore{c: c}
	c.edges = EdgeStore{c: c}
	c.groups = GroupStore{c: c}
	c.autosave = newAutosave(c)
	return c
}

// Nodes returns the node store.
func (c *Canvas) Nodes() *NodeStore { return &c.nodes }

// Edges returns the edge store.
func (c *Canvas) Edges() *EdgeStore { return &c.edges }

// Groups returns the group store.
func (c *Canvas) Groups() *GroupStore { return &c.groups }

// Autosave returns the pending-change coordinator.
func (c *Canvas) Autosave() *Autosave { return c.autosave }

// Open loads the canvas with the given id wholesale into memory, replacing
// any previously open canvas. Selection and pending autosave state from the
// previous canvas are discarded.
func (c *Canvas) Open(ctx context.Context, canvasID string) error {
	project, err := c.backend.GetProject(ctx, canvasID)
	if err != nil {
		return fmt.Errorf("open canvas %s: %w", canvasID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.project = project
	c.selectedNodes = make(map[string]struct{})
	c.selectedEdges = make(map[string]struct{})
	c.lastErr = nil
	c.autosave.reset()
	c.log.Info("canvas opened",
		zap.String("canvas_id", project.ID),
		zap.Int("nodes", len(project.Nodes)),
		zap.Int("edges", len(project.Edges)),
		zap.Int("groups", len(project.Groups)))
	return nil
}

// Close clears the active canvas and all derived state. Pending autosave
// changes are dropped; callers that care should flush first.
func (c *Canvas) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project != nil {
		c.log.Info("canvas closed", zap.String("canvas_id", c.project.ID))
	}
	c.project = nil
	c.selectedNodes = make(map[string]struct{})
	c.selectedEdges = make(map[string]struct{})
	c.lastErr = nil
	c.autosave.reset()
}

// Project returns the active canvas project, or nil when no canvas is open.
// The returned pointer is the live in-memory state, not a copy.
func (c *Canvas) Project() *types.CanvasProject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// CreateCanvas creates a new empty canvas through the backend. The new
// canvas is not opened automatically.
func (c *Canvas) CreateCanvas(ctx context.Context, name, description string) (*types.CanvasProject, error) {
	userID, err := c.userID(ctx)
	if err != nil {
		return nil, err
	}
	project := &types.CanvasProject{
		Name:        name,
		Description: description,
		Settings:    types.DefaultSettings(),
		Viewport:    types.Viewport{Zoom: 1},
	}
	created, err := c.backend.CreateProject(ctx, project, userID)
	if err != nil {
		return nil, c.fail(&types.PersistenceError{Op: "create canvas", Err: err})
	}
	return created, nil
}

// ListCanvases returns all canvases visible through the backend.
func (c *Canvas) ListCanvases(ctx context.Context) ([]*types.CanvasProject, error) {
	return c.backend.ListProjects(ctx)
}

// DeleteCanvas deletes a canvas through the backend. If the deleted canvas
// is the open one, it is closed.
func (c *Canvas) DeleteCanvas(ctx context.Context, id string) error {
	if err := c.backend.DeleteProject(ctx, id); err != nil {
		return c.fail(&types.PersistenceError{Op: "delete canvas", ID: id, Err: err})
	}
	c.mu.Lock()
	open := c.project != nil && c.project.ID == id
	c.mu.Unlock()
	if open {
		c.Close()
	}
	return nil
}

// UpdateSettings persists the new settings and mirrors them into memory.
func (c *Canvas) UpdateSettings(ctx context.Context, s types.CanvasSettings) error {
	return c.persistProjectUpdate(ctx, types.ProjectUpdate{Settings: &s})
}

// SetDateRange persists the new date range and mirrors it into memory.
func (c *Canvas) SetDateRange(ctx context.Context, dr types.DateRange) error {
	return c.persistProjectUpdate(ctx, types.ProjectUpdate{DateRange: &dr})
}

// SetViewport records the viewport in memory only. Pan and zoom happen far
// too often to round-trip; the viewport is persisted with the next settings
// or date-range update.
func (c *Canvas) SetViewport(v types.Viewport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return types.ErrCanvasClosed
	}
	c.project.Viewport = v
	return nil
}

// LastError returns the most recent persisted-operation failure, or nil.
// It is cleared by the next successful persisted operation and by Open and
// Close. UI layers poll it to correct optimistic assumptions.
func (c *Canvas) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// persistProjectUpdate writes a project update through the backend and
// mirrors it into the open project.
func (c *Canvas) persistProjectUpdate(ctx context.Context, upd types.ProjectUpdate) error {
	c.mu.Lock()
	if c.project == nil {
		c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	id := c.project.ID
	// Persist the current viewport alongside any explicit update so local
	// pan/zoom state survives reloads.
	if upd.Viewport == nil {
		v := c.project.Viewport
		upd.Viewport = &v
	}
	c.mu.Unlock()

	if err := c.backend.UpdateProject(ctx, id, upd); err != nil {
		return c.fail(&types.PersistenceError{Op: "update canvas", ID: id, Err: err})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project != nil && c.project.ID == id {
		upd.Apply(c.project)
		c.project.UpdatedAt = time.Now().UTC()
	}
	c.lastErr = nil
	return nil
}

// userID resolves the current authenticated user, required before any
// create operation.
func (c *Canvas) userID(ctx context.Context) (string, error) {
	if c.identity == nil {
		return "", types.ErrNotAuthenticated
	}
	id, err := c.identity.CurrentUserID(ctx)
	if err != nil || id == "" {
		return "", types.ErrNotAuthenticated
	}
	return id, nil
}

// fail records err as the last persisted-operation failure and returns it.
func (c *Canvas) fail(err error) error {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
	c.log.Warn("persist failed", zap.Error(err))
	return err
}

// clearErr resets the error flag after a successful persisted operation.
func (c *Canvas) clearErr() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
}

// StaticIdentity returns an Identity that always yields the given user id.
// An empty id behaves as unauthenticated.
func StaticIdentity(userID string) types.Identity {
	return staticIdentity(userID)
}

type staticIdentity string

func (s staticIdentity) CurrentUserID(context.Context) (string, error) {
	if s == "" {
		return "", types.ErrNotAuthenticated
	}
	return string(s), nil
}
