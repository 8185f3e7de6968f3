package canvas

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/types"
)

// Offset and title suffix applied when duplicating a card.
const (
	duplicateOffset      = 50
	duplicateTitleSuffix = " (Copy)"
)

// NodeStore manages metric cards: persisted CRUD, optimistic local mutation,
// and selection. Local mutators (AddNode, UpdateNode, DeleteNode,
// DuplicateNode) change memory immediately and are used for realtime fan-in
// from other collaborators or pre-persistence scaffolding; the persisted
// variants write through the backend first and mirror on success.
type NodeStore struct {
	c *Canvas
}

// CreateNode persists a new card through the backend and appends it to the
// open canvas on success. The backend assigns the id and timestamps when the
// draft's id is empty. Requires an authenticated user. On failure memory is
// left unchanged and the error flag is set.
func (s *NodeStore) CreateNode(ctx context.Context, card *types.MetricCard) (*types.MetricCard, error) {
	userID, err := s.c.userID(ctx)
	if err != nil {
		return nil, err
	}
	if card == nil || card.Title == "" {
		return nil, fmt.Errorf("card title: %w", types.ErrInvalidData)
	}
	if card.Category != "" && !types.ValidCategory(card.Category) {
		return nil, fmt.Errorf("card category %q: %w", card.Category, types.ErrInvalidData)
	}

	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return nil, types.ErrCanvasClosed
	}
	canvasID := s.c.project.ID
	s.c.mu.Unlock()

	created, err := s.c.backend.CreateCard(ctx, card, canvasID, userID)
	if err != nil {
		return nil, s.c.fail(&types.PersistenceError{Op: "create card", Err: err})
	}

	s.c.mu.Lock()
	if s.c.project != nil && s.c.project.ID == canvasID {
		s.c.project.Nodes = append(s.c.project.Nodes, created)
	}
	s.c.lastErr = nil
	s.c.mu.Unlock()
	s.c.log.Debug("card created", zap.String("card_id", created.ID))
	return created, nil
}

// PersistNodeUpdate writes a partial update through the backend, then
// mirrors it into memory with a refreshed UpdatedAt. Failure leaves memory
// untouched.
func (s *NodeStore) PersistNodeUpdate(ctx context.Context, id string, upd types.CardUpdate) error {
	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	if s.c.project.NodeByID(id) == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("card %s: %w", id, types.ErrNotFound)
	}
	s.c.mu.Unlock()

	if err := s.c.backend.UpdateCard(ctx, id, upd); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "update card", ID: id, Err: err})
	}

	s.c.mu.Lock()
	if s.c.project != nil {
		if node := s.c.project.NodeByID(id); node != nil {
			upd.Apply(node)
			node.UpdatedAt = time.Now().UTC()
		}
	}
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// PersistNodeDelete deletes the backend row, then removes the card and any
// relationships referencing it from memory.
func (s *NodeStore) PersistNodeDelete(ctx context.Context, id string) error {
	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	if s.c.project.NodeByID(id) == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("card %s: %w", id, types.ErrNotFound)
	}
	s.c.mu.Unlock()

	if err := s.c.backend.DeleteCard(ctx, id); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "delete card", ID: id, Err: err})
	}

	s.c.mu.Lock()
	s.removeNodeLocked(id)
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// AddNode inserts a card into memory without touching the backend.
func (s *NodeStore) AddNode(card *types.MetricCard) error {
	if card == nil || card.ID == "" {
		return types.ErrInvalidID
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.NodeByID(card.ID) != nil {
		return fmt.Errorf("card %s already present: %w", card.ID, types.ErrInvalidData)
	}
	s.c.project.Nodes = append(s.c.project.Nodes, card)
	return nil
}

// UpdateNode applies a partial update in memory without touching the
// backend.
func (s *NodeStore) UpdateNode(id string, upd types.CardUpdate) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	node := s.c.project.NodeByID(id)
	if node == nil {
		return fmt.Errorf("card %s: %w", id, types.ErrNotFound)
	}
	upd.Apply(node)
	node.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteNode removes a card and its relationships from memory without
// touching the backend.
func (s *NodeStore) DeleteNode(id string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.NodeByID(id) == nil {
		return fmt.Errorf("card %s: %w", id, types.ErrNotFound)
	}
	s.removeNodeLocked(id)
	return nil
}

// DuplicateNode clones a card in memory with a new id, an offset position,
// and a " (Copy)" title suffix. The clone is local-only until persisted.
func (s *NodeStore) DuplicateNode(id string) (*types.MetricCard, error) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil, types.ErrCanvasClosed
	}
	node := s.c.project.NodeByID(id)
	if node == nil {
		return nil, fmt.Errorf("card %s: %w", id, types.ErrNotFound)
	}
	clone := node.Clone()
	clone.ID = uuid.NewString()
	clone.Title = node.Title + duplicateTitleSuffix
	clone.Position.X += duplicateOffset
	clone.Position.Y += duplicateOffset
	clone.ParentID = ""
	now := time.Now().UTC()
	clone.CreatedAt = now
	clone.UpdatedAt = now
	s.c.project.Nodes = append(s.c.project.Nodes, clone)
	return clone, nil
}

// UpdateNodePosition moves a card in memory immediately and registers the
// card with the autosave coordinator instead of persisting synchronously,
// keeping drags smooth.
func (s *NodeStore) UpdateNodePosition(id string, pos types.Position) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	node := s.c.project.NodeByID(id)
	if node == nil {
		return fmt.Errorf("card %s: %w", id, types.ErrNotFound)
	}
	node.Position = pos
	node.UpdatedAt = time.Now().UTC()
	s.c.autosave.addLocked(id)
	return nil
}

// removeNodeLocked removes the card, cascades to relationships touching it,
// and scrubs it from any group's member set. Caller holds the canvas lock.
func (s *NodeStore) removeNodeLocked(id string) {
	p := s.c.project
	for i, n := range p.Nodes {
		if n.ID == id {
			p.Nodes = append(p.Nodes[:i], p.Nodes[i+1:]...)
			break
		}
	}
	kept := p.Edges[:0]
	for _, e := range p.Edges {
		if !e.Touches(id) {
			kept = append(kept, e)
		}
	}
	p.Edges = kept
	for _, g := range p.Groups {
		g.RemoveNode(id)
	}
	delete(s.c.selectedNodes, id)
	s.c.autosave.removeLocked(id)
}

// SelectNodes replaces the selection with the given card ids.
func (s *NodeStore) SelectNodes(ids []string) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.selectedNodes = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.c.selectedNodes[id] = struct{}{}
	}
}

// SelectNode adds a card to the selection. Idempotent.
func (s *NodeStore) SelectNode(id string) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.selectedNodes[id] = struct{}{}
}

// DeselectNode removes a card from the selection.
func (s *NodeStore) DeselectNode(id string) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	delete(s.c.selectedNodes, id)
}

// DeselectNodes removes the given cards from the selection.
func (s *NodeStore) DeselectNodes(ids []string) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	for _, id := range ids {
		delete(s.c.selectedNodes, id)
	}
}

// ClearSelection empties the node selection.
func (s *NodeStore) ClearSelection() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	s.c.selectedNodes = make(map[string]struct{})
}

// SelectedNodes returns the currently selected cards in canvas order.
func (s *NodeStore) SelectedNodes() []*types.MetricCard {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	var out []*types.MetricCard
	for _, n := range s.c.project.Nodes {
		if _, ok := s.c.selectedNodes[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// NodeByID returns the card with the given id, or nil.
func (s *NodeStore) NodeByID(id string) *types.MetricCard {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	return s.c.project.NodeByID(id)
}

// NodesByCategory returns all cards with the given category.
func (s *NodeStore) NodesByCategory(category string) []*types.MetricCard {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	var out []*types.MetricCard
	for _, n := range s.c.project.Nodes {
		if n.Category == category {
			out = append(out, n)
		}
	}
	return out
}

// ConnectedNodes returns the cards linked to the given card by any
// relationship, in either direction.
func (s *NodeStore) ConnectedNodes(id string) []*types.MetricCard {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []*types.MetricCard
	for _, e := range s.c.project.Edges {
		var other string
		switch {
		case e.SourceID == id:
			other = e.TargetID
		case e.TargetID == id:
			other = e.SourceID
		default:
			continue
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		if n := s.c.project.NodeByID(other); n != nil {
			out = append(out, n)
		}
	}
	return out
}
