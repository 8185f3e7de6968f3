package canvas

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmetrics/canvas/pkg/types"
)

// sliceProject builds a canvas with a single revenue metric carrying a
// two-point series.
func sliceProject() *types.CanvasProject {
	p := testProject()
	p.Nodes[0].Title = "MRR"
	p.Nodes[0].Position = types.Position{X: 1000, Y: 100}
	p.Nodes[0].Data = []types.MetricValue{
		{Period: "2026-01", Value: 1000, ChangePercent: 0, Trend: types.TrendNeutral},
		{Period: "2026-02", Value: 1100, ChangePercent: 10, Trend: types.TrendUp},
	}
	return p
}

func TestSliceByDimensionsValidation(t *testing.T) {
	project := sliceProject()
	tests := []struct {
		name       string
		parentID   string
		dimensions []string
		history    string
		percents   []float64
		wantErr    error
	}{
		{
			name:     "no dimensions",
			parentID: cardAlphaID,
			history:  HistoryManual,
			wantErr:  types.ErrNoDimensions,
		},
		{
			name:       "percentage count mismatch",
			parentID:   cardAlphaID,
			dimensions: []string{"US", "EU"},
			history:    HistoryProportional,
			percents:   []float64{100},
			wantErr:    types.ErrPercentageCount,
		},
		{
			name:       "percentages sum below 100",
			parentID:   cardAlphaID,
			dimensions: []string{"US", "EU"},
			history:    HistoryProportional,
			percents:   []float64{60, 37},
			wantErr:    types.ErrPercentageSum,
		},
		{
			name:       "percentages sum above 100",
			parentID:   cardAlphaID,
			dimensions: []string{"US", "EU"},
			history:    HistoryProportional,
			percents:   []float64{60, 43},
			wantErr:    types.ErrPercentageSum,
		},
		{
			name:       "missing parent",
			parentID:   "missing",
			dimensions: []string{"US"},
			history:    HistoryManual,
			wantErr:    types.ErrNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(project.Nodes)
			_, err := SliceByDimensions(project, tt.parentID, tt.dimensions, tt.history, tt.percents)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Len(t, project.Nodes, before, "a rejected slice must not touch the project")
		})
	}
}

func TestSliceByDimensionsProportional(t *testing.T) {
	project := sliceProject()
	result, err := SliceByDimensions(project, cardAlphaID, []string{"US", "EU"}, HistoryProportional, []float64{60, 40})
	require.NoError(t, err)
	require.Len(t, result.Children, 2)
	require.Len(t, result.Relationships, 2)

	us, eu := result.Children[0], result.Children[1]
	assert.Equal(t, "MRR (US)", us.Title)
	assert.Equal(t, "MRR (EU)", eu.Title)
	assert.True(t, us.HasTag("US"))
	assert.True(t, eu.HasTag("EU"))
	assert.Equal(t, types.SourceManual, us.SourceType)

	// Values split 60/40 and each period sums back to the parent's value.
	require.Len(t, us.Data, 2)
	assert.InDelta(t, 600, us.Data[0].Value, 1e-9)
	assert.InDelta(t, 400, eu.Data[0].Value, 1e-9)
	for i, parentPoint := range project.NodeByID(cardAlphaID).Data {
		assert.InDelta(t, parentPoint.Value, us.Data[i].Value+eu.Data[i].Value, 1e-9,
			"period %s must conserve the parent's value", parentPoint.Period)
	}

	// Period-over-period change is scale-invariant under a uniform split.
	assert.Equal(t, 10.0, us.Data[1].ChangePercent)
	assert.Equal(t, types.TrendUp, us.Data[1].Trend)

	// Compositional child -> parent wiring with percentage weights.
	for i, rel := range result.Relationships {
		assert.Equal(t, result.Children[i].ID, rel.SourceID)
		assert.Equal(t, cardAlphaID, rel.TargetID)
		assert.Equal(t, types.RelationCompositional, rel.Type)
		assert.Equal(t, types.ConfidenceHigh, rel.Confidence)
		require.Len(t, rel.Evidence, 1)
		assert.Equal(t, types.EvidenceAnalysis, rel.Evidence[0].Type)
	}
	require.NotNil(t, result.Relationships[0].Weight)
	assert.InDelta(t, 0.6, *result.Relationships[0].Weight, 1e-9)
	assert.InDelta(t, 0.4, *result.Relationships[1].Weight, 1e-9)

	// Parent becomes calculated from its segments.
	wantFormula := fmt.Sprintf("[%s].value + [%s].value", us.ID, eu.ID)
	assert.Equal(t, wantFormula, result.Parent.Formula)
	assert.Equal(t, types.SourceCalculated, result.Parent.SourceType)
	assert.Len(t, result.Parent.Data, 2, "proportional slicing keeps the parent's series")
}

func TestSliceByDimensionsManual(t *testing.T) {
	project := sliceProject()
	result, err := SliceByDimensions(project, cardAlphaID, []string{"US", "EU", "APAC"}, HistoryManual, nil)
	require.NoError(t, err)
	require.Len(t, result.Children, 3)
	for _, child := range result.Children {
		assert.Empty(t, child.Data)
	}
	for _, rel := range result.Relationships {
		require.NotNil(t, rel.Weight)
		assert.Equal(t, 1.0, *rel.Weight)
	}
	assert.Len(t, result.Parent.Data, 2)
}

func TestSliceByDimensionsForfeit(t *testing.T) {
	project := sliceProject()
	result, err := SliceByDimensions(project, cardAlphaID, []string{"US", "EU"}, HistoryForfeit, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Parent.Data, "forfeit archives the parent's series")
	for _, child := range result.Children {
		assert.Empty(t, child.Data)
	}
}

func TestSliceByDimensionsLayout(t *testing.T) {
	project := sliceProject()
	result, err := SliceByDimensions(project, cardAlphaID, []string{"US", "EU"}, HistoryManual, nil)
	require.NoError(t, err)

	parent := project.NodeByID(cardAlphaID)
	// Two children centered under the parent, one pitch apart, one drop down.
	assert.Equal(t, parent.Position.X-sliceChildPitch, result.Children[0].Position.X)
	assert.Equal(t, parent.Position.X, result.Children[1].Position.X)
	for _, child := range result.Children {
		assert.Equal(t, parent.Position.Y+sliceChildDrop, child.Position.Y)
	}
}

func TestSliceByDimensionsIsPure(t *testing.T) {
	project := sliceProject()
	nodesBefore, edgesBefore := len(project.Nodes), len(project.Edges)
	parentData := len(project.NodeByID(cardAlphaID).Data)

	_, err := SliceByDimensions(project, cardAlphaID, []string{"US", "EU"}, HistoryForfeit, nil)
	require.NoError(t, err)
	assert.Len(t, project.Nodes, nodesBefore)
	assert.Len(t, project.Edges, edgesBefore)
	assert.Len(t, project.NodeByID(cardAlphaID).Data, parentData,
		"the slicer returns copies and never mutates the project")
}

func TestSliceMetric(t *testing.T) {
	fb := newFakeBackend(sliceProject())
	c := newTestCanvas(t, fb)

	result, err := c.SliceMetric(context.Background(), cardAlphaID, []string{"US", "EU"}, HistoryProportional, []float64{60, 40})
	require.NoError(t, err)

	// Applied to memory as one transition.
	p := c.Project()
	assert.Len(t, p.Nodes, 5)
	assert.Len(t, p.Edges, 3)
	parent := p.NodeByID(cardAlphaID)
	assert.Equal(t, types.SourceCalculated, parent.SourceType)
	assert.True(t, strings.Contains(parent.Formula, result.Children[0].ID))

	// Persisted: two card creates, two relationship creates, one parent update.
	assert.Equal(t, 2, fb.callCount("create-card"))
	assert.Equal(t, 2, fb.callCount("create-relationship"))
	require.Len(t, fb.cardUpdates[cardAlphaID], 1)
	assert.NoError(t, c.LastError())
}

func TestSliceMetricPartialPersistFailure(t *testing.T) {
	fb := newFakeBackend(sliceProject())
	c := newTestCanvas(t, fb)
	fb.failOps["create-relationship"] = errFor("create-relationship")

	result, err := c.SliceMetric(context.Background(), cardAlphaID, []string{"US", "EU"}, HistoryManual, nil)
	require.Error(t, err)
	assert.True(t, types.IsPersistence(err))
	require.NotNil(t, result)

	// Memory keeps the applied slice; the error flag records the failure.
	assert.Len(t, c.Project().Nodes, 5)
	assert.Error(t, c.LastError())
}

func TestSliceMetricRequiresUser(t *testing.T) {
	fb := newFakeBackend(sliceProject())
	c := New(fb, StaticIdentity(""), types.Config{Backend: types.BackendSQLite}, nil)
	require.NoError(t, c.Open(context.Background(), testCanvasID))
	defer c.Close()

	_, err := c.SliceMetric(context.Background(), cardAlphaID, []string{"US"}, HistoryManual, nil)
	require.ErrorIs(t, err, types.ErrNotAuthenticated)
}
