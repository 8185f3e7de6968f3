package canvas

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/types"
)

// History options for slicing a metric by dimensions.
const (
	// HistoryManual leaves the children's series empty for the user to fill.
	HistoryManual = "manual"
	// HistoryForfeit leaves the children empty and archives the parent's
	// series.
	HistoryForfeit = "forfeit"
	// HistoryProportional splits the parent's series across the children by
	// the given percentages.
	HistoryProportional = "proportional"
)

// Slice layout: children are laid out in a row centered under the parent.
const (
	sliceChildPitch = 350.0
	sliceChildDrop  = 200.0
)

// percentTolerance is the floating-point slack allowed when checking that
// proportional percentages sum to 100.
const percentTolerance = 0.001

// SliceResult holds the artifacts of a dimension slice for the caller to
// insert as one state transition: the new child cards, the compositional
// relationships wiring them to the parent, and the rewritten parent.
type SliceResult struct {
	Children      []*types.MetricCard
	Relationships []*types.Relationship
	Parent        *types.MetricCard
}

// SliceByDimensions decomposes a metric card into one child card per
// dimension. Children inherit the parent's category, sub-category,
// dimensions, and assignees; each gains the dimension as a tag and, for the
// proportional option, the parent's series scaled by its percentage. Each
// child is wired back to the parent with a Compositional relationship, and
// the parent's formula is rewritten to the sum of its children.
//
// The function is pure: it reads the project, performs no I/O, and returns
// copies. The parent must exist; for the proportional option the percentages
// must match the dimensions one-to-one and sum to 100 within tolerance.
func SliceByDimensions(project *types.CanvasProject, parentID string, dimensions []string, historyOption string, percentages []float64) (*SliceResult, error) {
	if len(dimensions) == 0 {
		return nil, types.ErrNoDimensions
	}
	if historyOption == HistoryProportional {
		if len(percentages) != len(dimensions) {
			return nil, types.ErrPercentageCount
		}
		var sum float64
		for _, p := range percentages {
			sum += p
		}
		if math.Abs(sum-100) > percentTolerance {
			return nil, fmt.Errorf("%w (got %.3f)", types.ErrPercentageSum, sum)
		}
	}
	parent := project.NodeByID(parentID)
	if parent == nil {
		return nil, fmt.Errorf("card %s: %w", parentID, types.ErrNotFound)
	}

	now := time.Now().UTC()
	result := &SliceResult{
		Children:      make([]*types.MetricCard, 0, len(dimensions)),
		Relationships: make([]*types.Relationship, 0, len(dimensions)),
	}
	formulaTerms := make([]string, 0, len(dimensions))

	for i, dim := range dimensions {
		child := parent.Clone()
		child.ID = uuid.NewString()
		child.Title = fmt.Sprintf("%s (%s)", parent.Title, dim)
		child.ParentID = ""
		child.SourceType = types.SourceManual
		child.Formula = ""
		child.CreatedAt = now
		child.UpdatedAt = now
		child.AddTag(dim)
		child.Position = types.Position{
			X: parent.Position.X + float64(i-len(dimensions)/2)*sliceChildPitch,
			Y: parent.Position.Y + sliceChildDrop,
		}

		weight := 1.0
		switch historyOption {
		case HistoryProportional:
			pct := percentages[i]
			weight = pct / 100
			child.Data = make([]types.MetricValue, len(parent.Data))
			for j, point := range parent.Data {
				scaled := point
				scaled.Value = point.Value * pct / 100
				// ChangePercent is carried through unchanged: period-over-
				// period change is scale-invariant under a uniform split.
				child.Data[j] = scaled
			}
			child.Description = fmt.Sprintf(
				"%q segment of %q, carrying %.1f%% of its history.",
				dim, parent.Title, pct)
		default:
			child.Data = nil
			child.Description = fmt.Sprintf("%q segment of %q.", dim, parent.Title)
		}

		rel := &types.Relationship{
			ID:         uuid.NewString(),
			SourceID:   child.ID,
			TargetID:   parent.ID,
			Type:       types.RelationCompositional,
			Confidence: types.ConfidenceHigh,
			Weight:     &weight,
			Evidence: []types.EvidenceItem{{
				ID:      uuid.NewString(),
				Title:   fmt.Sprintf("Decomposition of %q by %q", parent.Title, dim),
				Type:    types.EvidenceAnalysis,
				Date:    now.Format("2006-01-02"),
				Summary: fmt.Sprintf("Created automatically when %q was sliced by dimension %q.", parent.Title, dim),
			}},
			CreatedAt: now,
			UpdatedAt: now,
		}

		result.Children = append(result.Children, child)
		result.Relationships = append(result.Relationships, rel)
		formulaTerms = append(formulaTerms, fmt.Sprintf("[%s].value", child.ID))
	}

	updated := parent.Clone()
	updated.Formula = strings.Join(formulaTerms, " + ")
	updated.SourceType = types.SourceCalculated
	updated.Description = strings.TrimSpace(fmt.Sprintf(
		"%s\n\nDecomposed by %s on %s; now calculated from its segments.",
		updated.Description, strings.Join(dimensions, ", "), now.Format("2006-01-02")))
	if historyOption == HistoryForfeit {
		updated.Data = nil
	}
	updated.UpdatedAt = now
	result.Parent = updated

	return result, nil
}

// SliceMetric runs SliceByDimensions against the open canvas and applies the
// result: children and relationships are inserted and the parent rewritten
// as one locked state transition, then each artifact is persisted through
// the backend. Memory keeps the applied slice even if persistence partially
// fails; failures are reported as an aggregate error for the caller.
func (c *Canvas) SliceMetric(ctx context.Context, parentID string, dimensions []string, historyOption string, percentages []float64) (*SliceResult, error) {
	userID, err := c.userID(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.project == nil {
		c.mu.Unlock()
		return nil, types.ErrCanvasClosed
	}
	canvasID := c.project.ID
	result, err := SliceByDimensions(c.project, parentID, dimensions, historyOption, percentages)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	// One state transition: insert children and relationships, rewrite the
	// parent in place.
	c.project.Nodes = append(c.project.Nodes, result.Children...)
	c.project.Edges = append(c.project.Edges, result.Relationships...)
	if parent := c.project.NodeByID(parentID); parent != nil {
		*parent = *result.Parent
	}
	c.mu.Unlock()

	var errs []error
	for _, child := range result.Children {
		if _, err := c.backend.CreateCard(ctx, child, canvasID, userID); err != nil {
			errs = append(errs, &types.PersistenceError{Op: "create card", ID: child.ID, Err: err})
		}
	}
	for _, rel := range result.Relationships {
		if _, err := c.backend.CreateRelationship(ctx, rel, canvasID, userID); err != nil {
			errs = append(errs, &types.PersistenceError{Op: "create relationship", ID: rel.ID, Err: err})
		}
	}
	if err := c.backend.UpdateCard(ctx, parentID, result.Parent.Snapshot()); err != nil {
		errs = append(errs, &types.PersistenceError{Op: "update card", ID: parentID, Err: err})
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.log.Warn("slice persisted partially", zap.String("parent", parentID), zap.Error(err))
		return result, c.fail(err)
	}
	c.clearErr()
	c.log.Info("metric sliced",
		zap.String("parent", parentID),
		zap.Strings("dimensions", dimensions),
		zap.String("history", historyOption))
	return result, nil
}
