package types

// Evidence item types.
const (
	EvidenceExperiment    = "Experiment"
	EvidenceAnalysis      = "Analysis"
	EvidenceNotebook      = "Notebook"
	EvidenceExternal      = "External Research"
	EvidenceUserInterview = "User Interview"
)

// EvidenceItem documents support for a relationship: an experiment, analysis,
// or piece of research backing the claimed link between two cards.
type EvidenceItem struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Type               string `json:"type"`
	Date               string `json:"date"`
	Owner              string `json:"owner"`
	Link               string `json:"link,omitempty"`
	Hypothesis         string `json:"hypothesis,omitempty"`
	ImpactOnConfidence string `json:"impact_on_confidence,omitempty"`
	Summary            string `json:"summary"`
}
