package types

import "time"

// GroupNode is a visual grouping of cards on the canvas. Membership is
// bidirectional: every id in NodeIDs corresponds to a card whose ParentID is
// this group's ID. The group store maintains that invariant on add, remove,
// and delete.
type GroupNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NodeIDs     []string  `json:"node_ids"`
	Position    Position  `json:"position"`
	Size        Size      `json:"size"`
	IsCollapsed bool      `json:"is_collapsed"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the group.
func (g *GroupNode) Clone() *GroupNode {
	clone := *g
	clone.NodeIDs = append([]string(nil), g.NodeIDs...)
	return &clone
}

// HasNode reports whether the card id is a member of the group.
func (g *GroupNode) HasNode(cardID string) bool {
	for _, id := range g.NodeIDs {
		if id == cardID {
			return true
		}
	}
	return false
}

// AddNode adds the card id to the member set if not already present.
func (g *GroupNode) AddNode(cardID string) {
	if !g.HasNode(cardID) {
		g.NodeIDs = append(g.NodeIDs, cardID)
	}
}

// RemoveNode removes the card id from the member set. Removing an id that is
// not a member is a no-op.
func (g *GroupNode) RemoveNode(cardID string) {
	for i, id := range g.NodeIDs {
		if id == cardID {
			g.NodeIDs = append(g.NodeIDs[:i], g.NodeIDs[i+1:]...)
			return
		}
	}
}

// GroupUpdate is a partial update of a GroupNode. Nil fields are left
// unchanged.
type GroupUpdate struct {
	Name        *string   `json:"name,omitempty"`
	NodeIDs     *[]string `json:"node_ids,omitempty"`
	Position    *Position `json:"position,omitempty"`
	Size        *Size     `json:"size,omitempty"`
	IsCollapsed *bool     `json:"is_collapsed,omitempty"`
	Color       *string   `json:"color,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// Apply copies the update's set fields onto the group.
func (u GroupUpdate) Apply(g *GroupNode) {
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.NodeIDs != nil {
		g.NodeIDs = append([]string(nil), *u.NodeIDs...)
	}
	if u.Position != nil {
		g.Position = *u.Position
	}
	if u.Size != nil {
		g.Size = *u.Size
	}
	if u.IsCollapsed != nil {
		g.IsCollapsed = *u.IsCollapsed
	}
	if u.Color != nil {
		g.Color = *u.Color
	}
	if u.Description != nil {
		g.Description = *u.Description
	}
}
