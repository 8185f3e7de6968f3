package types

import "time"

// Position is a point in canvas coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in canvas units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Viewport is the visible region of the canvas: pan offset plus zoom factor.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// DateRange bounds the metric data shown on the canvas. Values are period
// labels matching MetricValue.Period; empty strings mean unbounded.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CanvasSettings holds per-canvas display preferences.
type CanvasSettings struct {
	ShowGrid   bool    `json:"show_grid"`
	SnapToGrid bool    `json:"snap_to_grid"`
	GridSize   float64 `json:"grid_size"`
	AutoLayout bool    `json:"auto_layout"`
}

// DefaultSettings returns the settings applied to a newly created canvas.
func DefaultSettings() CanvasSettings {
	return CanvasSettings{
		ShowGrid:   true,
		SnapToGrid: false,
		GridSize:   20,
	}
}

// CanvasProject is the aggregate root: one canvas with its cards,
// relationships, and groups. It is loaded wholesale into memory on open,
// mutated in memory first, and cleared wholesale on close.
type CanvasProject struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Tags          []string        `json:"tags"`
	Collaborators []string        `json:"collaborators"`
	Nodes         []*MetricCard   `json:"nodes"`
	Edges         []*Relationship `json:"edges"`
	Groups        []*GroupNode    `json:"groups"`
	Settings      CanvasSettings  `json:"settings"`
	Viewport      Viewport        `json:"viewport"`
	DateRange     DateRange       `json:"date_range"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NodeByID returns the card with the given id, or nil if absent.
func (p *CanvasProject) NodeByID(id string) *MetricCard {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// EdgeByID returns the relationship with the given id, or nil if absent.
func (p *CanvasProject) EdgeByID(id string) *Relationship {
	for _, e := range p.Edges {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// GroupByID returns the group with the given id, or nil if absent.
func (p *CanvasProject) GroupByID(id string) *GroupNode {
	for _, g := range p.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// ProjectUpdate is a partial update of a CanvasProject's own fields. Nil
// fields are left unchanged. Nodes, edges, and groups are persisted through
// their own operations, never through a project update.
type ProjectUpdate struct {
	Name          *string         `json:"name,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Tags          *[]string       `json:"tags,omitempty"`
	Collaborators *[]string       `json:"collaborators,omitempty"`
	Settings      *CanvasSettings `json:"settings,omitempty"`
	Viewport      *Viewport       `json:"viewport,omitempty"`
	DateRange     *DateRange      `json:"date_range,omitempty"`
}

// Apply copies the update's set fields onto the project.
func (u ProjectUpdate) Apply(p *CanvasProject) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Tags != nil {
		p.Tags = append([]string(nil), *u.Tags...)
	}
	if u.Collaborators != nil {
		p.Collaborators = append([]string(nil), *u.Collaborators...)
	}
	if u.Settings != nil {
		p.Settings = *u.Settings
	}
	if u.Viewport != nil {
		p.Viewport = *u.Viewport
	}
	if u.DateRange != nil {
		p.DateRange = *u.DateRange
	}
}
