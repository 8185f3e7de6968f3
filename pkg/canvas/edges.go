package canvas

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/types"
)

// EdgeStore manages relationships between cards. Every update that changes
// weight, confidence, type, or evidence appends audit entries to the
// relationship's history in the same memory transaction as the field change.
type EdgeStore struct {
	c *Canvas
}

// CreateEdge persists a new relationship and appends it to the open canvas
// on success. Both endpoints must exist in the open canvas and must differ;
// self-loops are rejected. Requires an authenticated user.
func (s *EdgeStore) CreateEdge(ctx context.Context, rel *types.Relationship) (*types.Relationship, error) {
	userID, err := s.c.userID(ctx)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, types.ErrInvalidData
	}
	if rel.SourceID == rel.TargetID {
		return nil, types.ErrSelfReference
	}
	if !types.ValidRelationType(rel.Type) {
		return nil, fmt.Errorf("relationship type %q: %w", rel.Type, types.ErrInvalidData)
	}
	if rel.Confidence != "" && !types.ValidConfidence(rel.Confidence) {
		return nil, fmt.Errorf("confidence %q: %w", rel.Confidence, types.ErrInvalidData)
	}

	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return nil, types.ErrCanvasClosed
	}
	canvasID := s.c.project.ID
	if s.c.project.NodeByID(rel.SourceID) == nil {
		s.c.mu.Unlock()
		return nil, fmt.Errorf("source card %s: %w", rel.SourceID, types.ErrNotFound)
	}
	if s.c.project.NodeByID(rel.TargetID) == nil {
		s.c.mu.Unlock()
		return nil, fmt.Errorf("target card %s: %w", rel.TargetID, types.ErrNotFound)
	}
	s.c.mu.Unlock()

	created, err := s.c.backend.CreateRelationship(ctx, rel, canvasID, userID)
	if err != nil {
		return nil, s.c.fail(&types.PersistenceError{Op: "create relationship", Err: err})
	}

	s.c.mu.Lock()
	if s.c.project != nil && s.c.project.ID == canvasID {
		s.c.project.Edges = append(s.c.project.Edges, created)
	}
	s.c.lastErr = nil
	s.c.mu.Unlock()
	s.c.log.Debug("relationship created",
		zap.String("rel_id", created.ID),
		zap.String("source", created.SourceID),
		zap.String("target", created.TargetID))
	return created, nil
}

// PersistEdgeUpdate derives audit entries from the update, writes both
// through the backend, then mirrors update and history into memory as one
// transition. Failure leaves memory untouched.
func (s *EdgeStore) PersistEdgeUpdate(ctx context.Context, id string, upd types.RelationshipUpdate) error {
	userID, _ := s.currentUser(ctx)

	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	edge := s.c.project.EdgeByID(id)
	if edge == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	entries := historyFor(edge, upd, userID)
	s.c.mu.Unlock()

	if err := s.c.backend.UpdateRelationship(ctx, id, upd, entries); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "update relationship", ID: id, Err: err})
	}

	s.c.mu.Lock()
	if s.c.project != nil {
		if edge := s.c.project.EdgeByID(id); edge != nil {
			edge.History = append(edge.History, entries...)
			upd.Apply(edge)
			edge.UpdatedAt = time.Now().UTC()
		}
	}
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// PersistEdgeDelete deletes the backend row, then removes the relationship
// from memory.
func (s *EdgeStore) PersistEdgeDelete(ctx context.Context, id string) error {
	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	if s.c.project.EdgeByID(id) == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	s.c.mu.Unlock()

	if err := s.c.backend.DeleteRelationship(ctx, id); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "delete relationship", ID: id, Err: err})
	}

	s.c.mu.Lock()
	s.removeEdgeLocked(id)
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// AddEdge inserts a relationship into memory without touching the backend.
// Self-loops are rejected; dangling endpoints are tolerated, as realtime
// fan-in may deliver an edge before its cards.
func (s *EdgeStore) AddEdge(rel *types.Relationship) error {
	if rel == nil || rel.ID == "" {
		return types.ErrInvalidID
	}
	if rel.SourceID == rel.TargetID {
		return types.ErrSelfReference
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.EdgeByID(rel.ID) != nil {
		return fmt.Errorf("relationship %s already present: %w", rel.ID, types.ErrInvalidData)
	}
	s.c.project.Edges = append(s.c.project.Edges, rel)
	return nil
}

// UpdateEdge applies a partial update in memory, appending the derived audit
// entries in the same transition, without touching the backend.
func (s *EdgeStore) UpdateEdge(id string, upd types.RelationshipUpdate) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	edge := s.c.project.EdgeByID(id)
	if edge == nil {
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	entries := historyFor(edge, upd, "")
	edge.History = append(edge.History, entries...)
	upd.Apply(edge)
	edge.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteEdge removes a relationship from memory without touching the
// backend.
func (s *EdgeStore) DeleteEdge(id string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.EdgeByID(id) == nil {
		return fmt.Errorf("relationship %s: %w", id, types.ErrNotFound)
	}
	s.removeEdgeLocked(id)
	return nil
}

// removeEdgeLocked removes the relationship and its selection entry. Caller
// holds the canvas lock.
func (s *EdgeStore) removeEdgeLocked(id string) {
	p := s.c.project
	for i, e := range p.Edges {
		if e.ID == id {
			p.Edges = append(p.Edges[:i], p.Edges[i+1:]...)
			break
		}
	}
	delete(s.c.selectedEdges, id)
}

// SelectEdge adds a relationship to the edge selection. Idempotent.
func (s *EdgeStore) SelectEdge(id string) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.selectedEdges[id] = struct{}{}
}

// DeselectEdge removes a relationship from the edge selection.
func (s *EdgeStore) DeselectEdge(id string) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	delete(s.c.selectedEdges, id)
}

// ClearSelection empties the edge selection.
func (s *EdgeStore) ClearSelection() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.selectedEdges = make(map[string]struct{})
}

// SelectedEdges returns the currently selected relationships in canvas
// order.
func (s *EdgeStore) SelectedEdges() []*types.Relationship {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	var out []*types.Relationship
	for _, e := range s.c.project.Edges {
		if _, ok := s.c.selectedEdges[e.ID]; ok {
			out = append(out, e)
		}
	}
	return out
}

// EdgeByID returns the relationship with the given id, or nil.
func (s *EdgeStore) EdgeByID(id string) *types.Relationship {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	return s.c.project.EdgeByID(id)
}

// EdgesBetweenNodes returns all relationships connecting the two cards in
// either direction. Storage is directed; this lookup is not.
func (s *EdgeStore) EdgesBetweenNodes(a, b string) []*types.Relationship {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	var out []*types.Relationship
	for _, e := range s.c.project.Edges {
		if (e.SourceID == a && e.TargetID == b) || (e.SourceID == b && e.TargetID == a) {
			out = append(out, e)
		}
	}
	return out
}

// historyFor derives the audit entries an update would produce against the
// current state of the edge. Only weight, confidence, type, and evidence
// changes are recorded; an update that sets a field to its current value
// produces no entry.
func historyFor(edge *types.Relationship, upd types.RelationshipUpdate, userID string) []types.HistoryEntry {
	now := time.Now().UTC()
	var entries []types.HistoryEntry
	add := func(changeType string, oldV, newV any, desc string) {
		entries = append(entries, types.HistoryEntry{
			ID:          uuid.NewString(),
			Timestamp:   now,
			ChangeType:  changeType,
			OldValue:    oldV,
			NewValue:    newV,
			Description: desc,
			UserID:      userID,
		})
	}

	if upd.Weight != nil && (edge.Weight == nil || *edge.Weight != *upd.Weight) {
		var oldV any
		if edge.Weight != nil {
			oldV = *edge.Weight
		}
		add(types.ChangeStrength, oldV, *upd.Weight, "Relationship strength changed")
	}
	if upd.Confidence != nil && edge.Confidence != *upd.Confidence {
		add(types.ChangeConfidence, edge.Confidence, *upd.Confidence, "Confidence level changed")
	}
	if upd.Type != nil && edge.Type != *upd.Type {
		add(types.ChangeType, edge.Type, *upd.Type, "Relationship type changed")
	}
	if upd.Evidence != nil && !reflect.DeepEqual(edge.Evidence, *upd.Evidence) {
		add(types.ChangeEvidence, len(edge.Evidence), len(*upd.Evidence),
			fmt.Sprintf("Evidence updated (%d items)", len(*upd.Evidence)))
	}
	return entries
}

// currentUser resolves the user id for audit entries; unlike creates, edge
// updates proceed without one.
func (s *EdgeStore) currentUser(ctx context.Context) (string, error) {
	if s.c.identity == nil {
		return "", types.ErrNotAuthenticated
	}
	return s.c.identity.CurrentUserID(ctx)
}
