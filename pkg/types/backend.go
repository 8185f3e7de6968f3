package types

import (
	"context"
	"errors"
	"fmt"
)

// Backend is the persistence collaborator the canvas stores write through.
// Implementations talk to whatever actually holds the rows (the bundled
// SQLite backend, or a hosted service); the stores only assume these
// operations. Create operations assign the entity id and timestamps when the
// id is empty and return the stored entity.
type Backend interface {
	// Canvas lifecycle.
	CreateProject(ctx context.Context, p *CanvasProject, userID string) (*CanvasProject, error)
	GetProject(ctx context.Context, id string) (*CanvasProject, error)
	ListProjects(ctx context.Context) ([]*CanvasProject, error)
	UpdateProject(ctx context.Context, id string, upd ProjectUpdate) error
	DeleteProject(ctx context.Context, id string) error

	// Metric cards.
	CreateCard(ctx context.Context, card *MetricCard, canvasID, userID string) (*MetricCard, error)
	UpdateCard(ctx context.Context, id string, upd CardUpdate) error
	DeleteCard(ctx context.Context, id string) error

	// Relationships. UpdateRelationship persists the field update together
	// with the audit entries the edge store derived from it.
	CreateRelationship(ctx context.Context, rel *Relationship, canvasID, userID string) (*Relationship, error)
	UpdateRelationship(ctx context.Context, id string, upd RelationshipUpdate, history []HistoryEntry) error
	DeleteRelationship(ctx context.Context, id string) error

	// Groups.
	CreateGroup(ctx context.Context, g *GroupNode, canvasID, userID string) (*GroupNode, error)
	UpdateGroup(ctx context.Context, id string, upd GroupUpdate) error
	DeleteGroup(ctx context.Context, id string) error

	// Close releases backend resources. Idempotent.
	Close() error
}

// Identity yields the current authenticated user. Create operations require
// a user and fail with ErrNotAuthenticated when none is available.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// Entity and lifecycle errors.
var (
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidID        = errors.New("invalid entity ID")
	ErrInvalidData      = errors.New("invalid entity data")
	ErrNotAuthenticated = errors.New("no authenticated user")
	ErrCanvasClosed     = errors.New("no canvas is open")
)

// Validation errors raised before any state mutation or I/O.
var (
	ErrSelfReference   = errors.New("relationship source and target must differ")
	ErrTooFewNodes     = errors.New("grouping requires at least two nodes")
	ErrNoDimensions    = errors.New("at least one dimension is required")
	ErrPercentageCount = errors.New("percentages must match dimensions")
	ErrPercentageSum   = errors.New("percentages must sum to 100")
)

// PersistenceError wraps a backend failure. Memory is left unchanged when a
// single-entity operation fails with one of these; the autosave flush catches
// them per item and retries instead of propagating.
type PersistenceError struct {
	Op  string // operation that failed, e.g. "create card"
	ID  string // entity id, empty on create
	Err error  // underlying backend error
}

func (e *PersistenceError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is (or wraps) a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
