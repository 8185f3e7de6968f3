package types

import "time"

// Card categories. Category determines which sub-categories are meaningful
// and whether the card carries metric data.
const (
	CategoryCoreValue       = "Core/Value"
	CategoryDataMetric      = "Data/Metric"
	CategoryWorkAction      = "Work/Action"
	CategoryIdeasHypothesis = "Ideas/Hypothesis"
	CategoryMetadata        = "Metadata"
)

// validCategories is the set of recognized card categories.
var validCategories = map[string]bool{
	CategoryCoreValue:       true,
	CategoryDataMetric:      true,
	CategoryWorkAction:      true,
	CategoryIdeasHypothesis: true,
	CategoryMetadata:        true,
}

// ValidCategory reports whether category is a recognized card category.
func ValidCategory(category string) bool {
	return validCategories[category]
}

// subCategoriesByCategory maps each category to its allowed sub-categories.
// An empty sub-category is always allowed.
var subCategoriesByCategory = map[string][]string{
	CategoryCoreValue:       {"Journey Step", "Value Chain", "Critical Path"},
	CategoryDataMetric:      {"Input Metric", "Output Metric", "Diagnostic Metric", "North Star Metric"},
	CategoryWorkAction:      {"Experiment", "Initiative", "BAU", "Scope"},
	CategoryIdeasHypothesis: {"Factor", "Opportunity", "Risk"},
	CategoryMetadata:        {"Group", "Subflow", "Reference"},
}

// ValidSubCategory reports whether sub is an allowed sub-category for the
// given category. The empty sub-category is valid for every category.
func ValidSubCategory(category, sub string) bool {
	if sub == "" {
		return true
	}
	for _, s := range subCategoriesByCategory[category] {
		if s == sub {
			return true
		}
	}
	return false
}

// Causal factor labels attachable to a card.
const (
	FactorComponentDrift = "Component Drift"
	FactorTemporalDrift  = "Temporal Drift"
	FactorInfluenceDrift = "Influence Drift"
	FactorDimensionDrift = "Dimension Drift"
	FactorComplexCause   = "Complex Causation"
)

// Canonical dimension labels. Cards may carry additional free-form dimension
// labels introduced by slicing; these are the ones offered by default.
const (
	DimensionTime     = "Time"
	DimensionRegion   = "Region"
	DimensionSegment  = "Customer Segment"
	DimensionProduct  = "Product"
	DimensionChannel  = "Channel"
)

// Card data source types.
const (
	SourceManual     = "Manual"
	SourceCalculated = "Calculated"
	SourceRandom     = "Random"
)

// validSourceTypes is the set of recognized source types.
var validSourceTypes = map[string]bool{
	SourceManual:     true,
	SourceCalculated: true,
	SourceRandom:     true,
}

// ValidSourceType reports whether st is a recognized source type.
func ValidSourceType(st string) bool {
	return validSourceTypes[st]
}

// Trend direction of a metric value point.
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// MetricValue is one point of a card's time series. Trend is set by the
// producer of the point and is never derived from Value.
type MetricValue struct {
	Period        string  `json:"period"`
	Value         float64 `json:"value"`
	ChangePercent float64 `json:"change_percent"`
	Trend         string  `json:"trend"`
}

// MetricCard is a node on the canvas: one business metric, action, or idea.
// Position is always defined. Data and Formula are semantically unused unless
// Category is Data/Metric.
type MetricCard struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	SubCategory   string        `json:"sub_category"`
	Tags          []string      `json:"tags"`
	CausalFactors []string      `json:"causal_factors"`
	Dimensions    []string      `json:"dimensions"`
	Position      Position      `json:"position"`
	Data          []MetricValue `json:"data,omitempty"`
	SourceType    string        `json:"source_type"`
	Formula       string        `json:"formula,omitempty"`
	Owner         string        `json:"owner,omitempty"`
	Assignees     []string      `json:"assignees"`
	ParentID      string        `json:"parent_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Clone returns a deep copy of the card. Slices are copied; the clone shares
// no mutable state with the original.
func (c *MetricCard) Clone() *MetricCard {
	clone := *c
	clone.Tags = append([]string(nil), c.Tags...)
	clone.CausalFactors = append([]string(nil), c.CausalFactors...)
	clone.Dimensions = append([]string(nil), c.Dimensions...)
	clone.Data = append([]MetricValue(nil), c.Data...)
	clone.Assignees = append([]string(nil), c.Assignees...)
	return &clone
}

// HasTag reports whether the card carries the given tag.
func (c *MetricCard) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag to the card's tag set if not already present.
func (c *MetricCard) AddTag(tag string) {
	if !c.HasTag(tag) {
		c.Tags = append(c.Tags, tag)
	}
}

// CardUpdate is a partial update of a MetricCard. Nil fields are left
// unchanged; pointer-to-slice fields distinguish "unchanged" (nil pointer)
// from "replace with this value, possibly empty" (non-nil pointer).
type CardUpdate struct {
	Title         *string        `json:"title,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Category      *string        `json:"category,omitempty"`
	SubCategory   *string        `json:"sub_category,omitempty"`
	Tags          *[]string      `json:"tags,omitempty"`
	CausalFactors *[]string      `json:"causal_factors,omitempty"`
	Dimensions    *[]string      `json:"dimensions,omitempty"`
	Position      *Position      `json:"position,omitempty"`
	Data          *[]MetricValue `json:"data,omitempty"`
	SourceType    *string        `json:"source_type,omitempty"`
	Formula       *string        `json:"formula,omitempty"`
	Owner         *string        `json:"owner,omitempty"`
	Assignees     *[]string      `json:"assignees,omitempty"`
	ParentID      *string        `json:"parent_id,omitempty"`
}

// Apply copies the update's set fields onto the card. The card's UpdatedAt
// is not touched; callers refresh it when the update is accepted.
func (u CardUpdate) Apply(c *MetricCard) {
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.Description != nil {
		c.Description = *u.Description
	}
	if u.Category != nil {
		c.Category = *u.Category
	}
	if u.SubCategory != nil {
		c.SubCategory = *u.SubCategory
	}
	if u.Tags != nil {
		c.Tags = append([]string(nil), *u.Tags...)
	}
	if u.CausalFactors != nil {
		c.CausalFactors = append([]string(nil), *u.CausalFactors...)
	}
	if u.Dimensions != nil {
		c.Dimensions = append([]string(nil), *u.Dimensions...)
	}
	if u.Position != nil {
		c.Position = *u.Position
	}
	if u.Data != nil {
		c.Data = append([]MetricValue(nil), *u.Data...)
	}
	if u.SourceType != nil {
		c.SourceType = *u.SourceType
	}
	if u.Formula != nil {
		c.Formula = *u.Formula
	}
	if u.Owner != nil {
		c.Owner = *u.Owner
	}
	if u.Assignees != nil {
		c.Assignees = append([]string(nil), *u.Assignees...)
	}
	if u.ParentID != nil {
		c.ParentID = *u.ParentID
	}
}

// Snapshot returns a CardUpdate covering the card's full mutable field set.
// The autosave flush uses it to persist the current in-memory state of a card.
func (c *MetricCard) Snapshot() CardUpdate {
	clone := c.Clone()
	return CardUpdate{
		Title:         &clone.Title,
		Description:   &clone.Description,
		Category:      &clone.Category,
		SubCategory:   &clone.SubCategory,
		Tags:          &clone.Tags,
		CausalFactors: &clone.CausalFactors,
		Dimensions:    &clone.Dimensions,
		Position:      &clone.Position,
		Data:          &clone.Data,
		SourceType:    &clone.SourceType,
		Formula:       &clone.Formula,
		Assignees:     &clone.Assignees,
	}
}
