package canvas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/types"
)

// Bounding-box constants for grouping. Cards are measured with a fixed
// footprint regardless of rendered size, and the box is padded on each side.
const (
	nodeFootprintWidth  = 160.0
	nodeFootprintHeight = 100.0
	groupPadding        = 40.0
)

// GroupStore manages visual groupings of cards. Membership is kept
// bidirectional: the group's NodeIDs set and each member card's ParentID are
// updated together.
type GroupStore struct {
	c *Canvas
}

// CreateGroup persists a new group and appends it to the open canvas on
// success. Requires an authenticated user. Member cards named in NodeIDs get
// their ParentID set when the group lands.
func (s *GroupStore) CreateGroup(ctx context.Context, g *types.GroupNode) (*types.GroupNode, error) {
	userID, err := s.c.userID(ctx)
	if err != nil {
		return nil, err
	}
	if g == nil || g.Name == "" {
		return nil, fmt.Errorf("group name: %w", types.ErrInvalidData)
	}

	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return nil, types.ErrCanvasClosed
	}
	canvasID := s.c.project.ID
	s.c.mu.Unlock()

	created, err := s.c.backend.CreateGroup(ctx, g, canvasID, userID)
	if err != nil {
		return nil, s.c.fail(&types.PersistenceError{Op: "create group", Err: err})
	}

	s.c.mu.Lock()
	if s.c.project != nil && s.c.project.ID == canvasID {
		s.c.project.Groups = append(s.c.project.Groups, created)
		for _, id := range created.NodeIDs {
			if n := s.c.project.NodeByID(id); n != nil {
				n.ParentID = created.ID
			}
		}
	}
	s.c.lastErr = nil
	s.c.mu.Unlock()
	s.c.log.Debug("group created", zap.String("group_id", created.ID), zap.Int("members", len(created.NodeIDs)))
	return created, nil
}

// PersistGroupUpdate writes a partial update through the backend, then
// mirrors it into memory. When the update replaces NodeIDs, member cards'
// ParentID references are re-synced.
func (s *GroupStore) PersistGroupUpdate(ctx context.Context, id string, upd types.GroupUpdate) error {
	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	if s.c.project.GroupByID(id) == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	s.c.mu.Unlock()

	if err := s.c.backend.UpdateGroup(ctx, id, upd); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "update group", ID: id, Err: err})
	}

	s.c.mu.Lock()
	s.applyGroupUpdateLocked(id, upd)
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// PersistGroupDelete deletes the backend row, then removes the group from
// memory. Member cards are ungrouped, not deleted.
func (s *GroupStore) PersistGroupDelete(ctx context.Context, id string) error {
	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	if s.c.project.GroupByID(id) == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	s.c.mu.Unlock()

	if err := s.c.backend.DeleteGroup(ctx, id); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "delete group", ID: id, Err: err})
	}

	s.c.mu.Lock()
	s.removeGroupLocked(id)
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// AddGroup inserts a group into memory without touching the backend and
// syncs member ParentID references.
func (s *GroupStore) AddGroup(g *types.GroupNode) error {
	if g == nil || g.ID == "" {
		return types.ErrInvalidID
	}
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.GroupByID(g.ID) != nil {
		return fmt.Errorf("group %s already present: %w", g.ID, types.ErrInvalidData)
	}
	s.c.project.Groups = append(s.c.project.Groups, g)
	for _, id := range g.NodeIDs {
		if n := s.c.project.NodeByID(id); n != nil {
			n.ParentID = g.ID
		}
	}
	return nil
}

// UpdateGroup applies a partial update in memory without touching the
// backend.
func (s *GroupStore) UpdateGroup(id string, upd types.GroupUpdate) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.GroupByID(id) == nil {
		return fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	s.applyGroupUpdateLocked(id, upd)
	return nil
}

// DeleteGroup removes a group from memory without touching the backend,
// ungrouping its members.
func (s *GroupStore) DeleteGroup(id string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	if s.c.project.GroupByID(id) == nil {
		return fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	s.removeGroupLocked(id)
	return nil
}

// AddNodesToGroup adds cards to the group's member set, persisting the new
// membership and updating both sides of the membership relation in memory.
func (s *GroupStore) AddNodesToGroup(ctx context.Context, groupID string, nodeIDs []string) error {
	return s.persistMembership(ctx, groupID, nodeIDs, true)
}

// RemoveNodesFromGroup removes cards from the group's member set, persisting
// the new membership and clearing the cards' ParentID.
func (s *GroupStore) RemoveNodesFromGroup(ctx context.Context, groupID string, nodeIDs []string) error {
	return s.persistMembership(ctx, groupID, nodeIDs, false)
}

func (s *GroupStore) persistMembership(ctx context.Context, groupID string, nodeIDs []string, add bool) error {
	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return types.ErrCanvasClosed
	}
	g := s.c.project.GroupByID(groupID)
	if g == nil {
		s.c.mu.Unlock()
		return fmt.Errorf("group %s: %w", groupID, types.ErrNotFound)
	}
	next := g.Clone()
	for _, id := range nodeIDs {
		if add {
			next.AddNode(id)
		} else {
			next.RemoveNode(id)
		}
	}
	members := append([]string(nil), next.NodeIDs...)
	s.c.mu.Unlock()

	upd := types.GroupUpdate{NodeIDs: &members}
	if err := s.c.backend.UpdateGroup(ctx, groupID, upd); err != nil {
		return s.c.fail(&types.PersistenceError{Op: "update group", ID: groupID, Err: err})
	}

	s.c.mu.Lock()
	s.applyGroupUpdateLocked(groupID, upd)
	s.c.lastErr = nil
	s.c.mu.Unlock()
	return nil
}

// GroupSelectedNodes creates a group around the given cards. At least two
// cards are required. The group's box is the axis-aligned bounding box over
// the cards' positions with the fixed footprint, padded by groupPadding on
// each side; the name is derived from the first two card titles. Returns the
// new group's id.
func (s *GroupStore) GroupSelectedNodes(ctx context.Context, nodeIDs []string) (string, error) {
	if len(nodeIDs) < 2 {
		return "", types.ErrTooFewNodes
	}

	s.c.mu.Lock()
	if s.c.project == nil {
		s.c.mu.Unlock()
		return "", types.ErrCanvasClosed
	}
	cards := make([]*types.MetricCard, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		n := s.c.project.NodeByID(id)
		if n == nil {
			s.c.mu.Unlock()
			return "", fmt.Errorf("card %s: %w", id, types.ErrNotFound)
		}
		cards = append(cards, n)
	}

	minX, minY := cards[0].Position.X, cards[0].Position.Y
	maxX, maxY := minX+nodeFootprintWidth, minY+nodeFootprintHeight
	for _, n := range cards[1:] {
		if n.Position.X < minX {
			minX = n.Position.X
		}
		if n.Position.Y < minY {
			minY = n.Position.Y
		}
		if r := n.Position.X + nodeFootprintWidth; r > maxX {
			maxX = r
		}
		if b := n.Position.Y + nodeFootprintHeight; b > maxY {
			maxY = b
		}
	}
	name := fmt.Sprintf("%s & %s", cards[0].Title, cards[1].Title)
	s.c.mu.Unlock()

	g := &types.GroupNode{
		ID:       uuid.NewString(),
		Name:     name,
		NodeIDs:  append([]string(nil), nodeIDs...),
		Position: types.Position{X: minX - groupPadding, Y: minY - groupPadding},
		Size: types.Size{
			Width:  maxX - minX + 2*groupPadding,
			Height: maxY - minY + 2*groupPadding,
		},
	}
	created, err := s.CreateGroup(ctx, g)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// UngroupSelectedGroups deletes each group, ungrouping its members. Failures
// are collected; groups that fail to delete stay in place.
func (s *GroupStore) UngroupSelectedGroups(ctx context.Context, groupIDs []string) error {
	var errs []error
	for _, id := range groupIDs {
		if err := s.PersistGroupDelete(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ToggleGroupCollapse flips the group's collapse state in memory. The caller
// decides whether to persist.
func (s *GroupStore) ToggleGroupCollapse(id string) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	g := s.c.project.GroupByID(id)
	if g == nil {
		return fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	g.IsCollapsed = !g.IsCollapsed
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateGroupSize resizes the group in memory. The caller decides whether to
// persist.
func (s *GroupStore) UpdateGroupSize(id string, size types.Size) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return types.ErrCanvasClosed
	}
	g := s.c.project.GroupByID(id)
	if g == nil {
		return fmt.Errorf("group %s: %w", id, types.ErrNotFound)
	}
	g.Size = size
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// GroupByID returns the group with the given id, or nil.
func (s *GroupStore) GroupByID(id string) *types.GroupNode {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()
	if s.c.project == nil {
		return nil
	}
	return s.c.project.GroupByID(id)
}

// applyGroupUpdateLocked mirrors a group update into memory and re-syncs
// member ParentID references when membership changed. Caller holds the
// canvas lock.
func (s *GroupStore) applyGroupUpdateLocked(id string, upd types.GroupUpdate) {
	if s.c.project == nil {
		return
	}
	g := s.c.project.GroupByID(id)
	if g == nil {
		return
	}
	var before []string
	if upd.NodeIDs != nil {
		before = append([]string(nil), g.NodeIDs...)
	}
	upd.Apply(g)
	g.UpdatedAt = time.Now().UTC()
	if upd.NodeIDs == nil {
		return
	}
	for _, oldID := range before {
		if !g.HasNode(oldID) {
			if n := s.c.project.NodeByID(oldID); n != nil && n.ParentID == g.ID {
				n.ParentID = ""
			}
		}
	}
	for _, newID := range g.NodeIDs {
		if n := s.c.project.NodeByID(newID); n != nil {
			n.ParentID = g.ID
		}
	}
}

// removeGroupLocked removes the group and clears members' ParentID. Caller
// holds the canvas lock.
func (s *GroupStore) removeGroupLocked(id string) {
	p := s.c.project
	for i, g := range p.Groups {
		if g.ID == id {
			p.Groups = append(p.Groups[:i], p.Groups[i+1:]...)
			break
		}
	}
	for _, n := range p.Nodes {
		if n.ParentID == id {
			n.ParentID = ""
		}
	}
}
