package canvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmetrics/canvas/pkg/types"
)

func TestCreateNode(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	card := &types.MetricCard{Title: "Churn", Category: types.CategoryDataMetric}
	created, err := c.Nodes().CreateNode(context.Background(), card)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, 1, fb.callCount("create-card"))
	assert.Same(t, created, c.Nodes().NodeByID(created.ID))
	assert.NoError(t, c.LastError())
}

func TestCreateNodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		card    *types.MetricCard
		wantErr error
	}{
		{
			name:    "nil card",
			card:    nil,
			wantErr: types.ErrInvalidData,
		},
		{
			name:    "empty title",
			card:    &types.MetricCard{},
			wantErr: types.ErrInvalidData,
		},
		{
			name:    "unknown category",
			card:    &types.MetricCard{Title: "x", Category: "Bogus"},
			wantErr: types.ErrInvalidData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(testProject())
			c := newTestCanvas(t, fb)
			_, err := c.Nodes().CreateNode(context.Background(), tt.card)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, fb.callCount("create-card"), "validation must reject before any backend call")
		})
	}
}

func TestCreateNodeRequiresUser(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := New(fb, StaticIdentity(""), types.Config{Backend: types.BackendSQLite}, nil)
	require.NoError(t, c.Open(context.Background(), testCanvasID))
	defer c.Close()

	_, err := c.Nodes().CreateNode(context.Background(), &types.MetricCard{Title: "x"})
	require.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestCreateNodeBackendFailure(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)
	fb.failOps["create-card"] = errFor("create-card")

	before := len(c.Project().Nodes)
	_, err := c.Nodes().CreateNode(context.Background(), &types.MetricCard{Title: "x"})
	require.Error(t, err)
	assert.True(t, types.IsPersistence(err))
	assert.Len(t, c.Project().Nodes, before, "memory must stay unchanged on persist failure")
	assert.Error(t, c.LastError())
}

func TestPersistNodeUpdate(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	title := "Alpha v2"
	err := c.Nodes().PersistNodeUpdate(context.Background(), cardAlphaID, types.CardUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Alpha v2", c.Nodes().NodeByID(cardAlphaID).Title)
	require.Len(t, fb.cardUpdates[cardAlphaID], 1)
}

func TestPersistNodeUpdateFailureLeavesMemory(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)
	fb.failIDs[cardAlphaID] = errFor("update-card")

	title := "Alpha v2"
	err := c.Nodes().PersistNodeUpdate(context.Background(), cardAlphaID, types.CardUpdate{Title: &title})
	require.Error(t, err)
	assert.Equal(t, "Alpha", c.Nodes().NodeByID(cardAlphaID).Title)
	assert.Error(t, c.LastError())
}

func TestPersistNodeUpdateNotFound(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	title := "x"
	err := c.Nodes().PersistNodeUpdate(context.Background(), "missing", types.CardUpdate{Title: &title})
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Zero(t, fb.callCount("update-card"))
}

func TestPersistNodeDeleteCascades(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	// Put alpha in a group and in the selection; give it a pending change.
	g := &types.GroupNode{Name: "g", NodeIDs: []string{cardAlphaID, cardBetaID}}
	created, err := c.Groups().CreateGroup(context.Background(), g)
	require.NoError(t, err)
	c.Nodes().SelectNode(cardAlphaID)
	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 5, Y: 5}))

	require.NoError(t, c.Nodes().PersistNodeDelete(context.Background(), cardAlphaID))

	p := c.Project()
	assert.Nil(t, p.NodeByID(cardAlphaID))
	assert.Nil(t, p.EdgeByID(edgeAB), "relationships touching the card must go with it")
	assert.False(t, p.GroupByID(created.ID).HasNode(cardAlphaID))
	assert.Empty(t, c.Nodes().SelectedNodes())
	assert.NotContains(t, c.Autosave().Pending(), cardAlphaID)
}

func TestDeleteNodeLocalOnly(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	require.NoError(t, c.Nodes().DeleteNode(cardGammaID))
	assert.Nil(t, c.Nodes().NodeByID(cardGammaID))
	assert.Zero(t, fb.callCount("delete-card"))
}

func TestDuplicateNode(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)
	orig := c.Nodes().NodeByID(cardBetaID)

	clone, err := c.Nodes().DuplicateNode(cardBetaID)
	require.NoError(t, err)
	assert.NotEqual(t, orig.ID, clone.ID)
	assert.Equal(t, "Beta (Copy)", clone.Title)
	assert.Equal(t, orig.Position.X+duplicateOffset, clone.Position.X)
	assert.Equal(t, orig.Position.Y+duplicateOffset, clone.Position.Y)
	assert.Empty(t, clone.ParentID)
	assert.Zero(t, fb.callCount("create-card"), "duplicate is local until explicitly persisted")
	assert.Same(t, clone, c.Nodes().NodeByID(clone.ID))
}

func TestUpdateNodePositionRegistersAutosave(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 42, Y: 7}))
	assert.Equal(t, types.Position{X: 42, Y: 7}, c.Nodes().NodeByID(cardAlphaID).Position)
	assert.Contains(t, c.Autosave().Pending(), cardAlphaID)
	assert.Zero(t, fb.callCount("update-card"), "position moves must not persist synchronously")
}

func TestNodeSelection(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	c.Nodes().SelectNode(cardAlphaID)
	c.Nodes().SelectNode(cardAlphaID)
	require.Len(t, c.Nodes().SelectedNodes(), 1)

	c.Nodes().SelectNodes([]string{cardBetaID, cardGammaID})
	sel := c.Nodes().SelectedNodes()
	require.Len(t, sel, 2)
	assert.Equal(t, cardBetaID, sel[0].ID, "selection is reported in canvas order")
	assert.Equal(t, cardGammaID, sel[1].ID)

	c.Nodes().DeselectNode(cardBetaID)
	require.Len(t, c.Nodes().SelectedNodes(), 1)

	c.Nodes().ClearSelection()
	assert.Empty(t, c.Nodes().SelectedNodes())
}

func TestNodesByCategory(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	metrics := c.Nodes().NodesByCategory(types.CategoryDataMetric)
	require.Len(t, metrics, 2)
	assert.Len(t, c.Nodes().NodesByCategory(types.CategoryIdeasHypothesis), 0)
}

func TestConnectedNodes(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	// Second edge between the same pair must not duplicate the neighbor.
	require.NoError(t, c.Edges().AddEdge(&types.Relationship{
		ID:       "dup-edge",
		SourceID: cardBetaID,
		TargetID: cardAlphaID,
		Type:     types.RelationCausal,
	}))

	neighbors := c.Nodes().ConnectedNodes(cardAlphaID)
	require.Len(t, neighbors, 1)
	assert.Equal(t, cardBetaID, neighbors[0].ID)
	assert.Empty(t, c.Nodes().ConnectedNodes(cardGammaID))
}
