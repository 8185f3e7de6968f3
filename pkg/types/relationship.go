package types

import "time"

// Relationship type constants. Direction is source → target.
const (
	RelationDeterministic = "Deterministic"
	RelationProbabilistic = "Probabilistic"
	RelationCausal        = "Causal"
	RelationCompositional = "Compositional"
)

// validRelationTypes is the set of recognized relationship types.
var validRelationTypes = map[string]bool{
	RelationDeterministic: true,
	RelationProbabilistic: true,
	RelationCausal:        true,
	RelationCompositional: true,
}

// ValidRelationType reports whether t is a recognized relationship type.
func ValidRelationType(t string) bool {
	return validRelationTypes[t]
}

// Confidence levels for a relationship.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// validConfidences is the set of recognized confidence levels.
var validConfidences = map[string]bool{
	ConfidenceHigh:   true,
	ConfidenceMedium: true,
	ConfidenceLow:    true,
}

// ValidConfidence reports whether c is a recognized confidence level.
func ValidConfidence(c string) bool {
	return validConfidences[c]
}

// History change types recorded on a relationship's audit trail.
const (
	ChangeStrength   = "strength"
	ChangeConfidence = "confidence"
	ChangeType       = "type"
	ChangeEvidence   = "evidence"
)

// HistoryEntry is one record of the append-only audit trail kept on a
// relationship. Entries are never mutated or deleted.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ChangeType  string    `json:"change_type"`
	OldValue    any       `json:"old_value"`
	NewValue    any       `json:"new_value"`
	Description string    `json:"description"`
	UserID      string    `json:"user_id"`
}

// Relationship is a directed typed edge between two metric cards.
// Weight, when set, is intended to lie in [0, 1].
type Relationship struct {
	ID         string         `json:"id"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       string         `json:"type"`
	Confidence string         `json:"confidence"`
	Weight     *float64       `json:"weight,omitempty"`
	Evidence   []EvidenceItem `json:"evidence"`
	History    []HistoryEntry `json:"history"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the relationship.
func (r *Relationship) Clone() *Relationship {
	clone := *r
	if r.Weight != nil {
		w := *r.Weight
		clone.Weight = &w
	}
	clone.Evidence = append([]EvidenceItem(nil), r.Evidence...)
	clone.History = append([]HistoryEntry(nil), r.History...)
	return &clone
}

// Touches reports whether the relationship references the given card id as
// either endpoint.
func (r *Relationship) Touches(cardID string) bool {
	return r.SourceID == cardID || r.TargetID == cardID
}

// RelationshipUpdate is a partial update of a Relationship. Nil fields are
// left unchanged. Evidence follows the pointer-to-slice convention of
// CardUpdate: a non-nil pointer replaces the whole evidence list.
type RelationshipUpdate struct {
	Type       *string         `json:"type,omitempty"`
	Confidence *string         `json:"confidence,omitempty"`
	Weight     *float64        `json:"weight,omitempty"`
	Evidence   *[]EvidenceItem `json:"evidence,omitempty"`
}

// Apply copies the update's set fields onto the relationship. History is not
// touched here; the edge store appends audit entries separately.
func (u RelationshipUpdate) Apply(r *Relationship) {
	if u.Type != nil {
		r.Type = *u.Type
	}
	if u.Confidence != nil {
		r.Confidence = *u.Confidence
	}
	if u.Weight != nil {
		w := *u.Weight
		r.Weight = &w
	}
	if u.Evidence != nil {
		r.Evidence = append([]EvidenceItem(nil), *u.Evidence...)
	}
}
