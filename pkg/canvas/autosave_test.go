package canvas

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftmetrics/canvas/pkg/types"
)

func TestSaveAllEmptyIsNoop(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	require.NoError(t, c.Autosave().SaveAll(context.Background()))
	assert.Zero(t, fb.callCount("update-card"))
	assert.True(t, c.Autosave().Status().LastSaved.IsZero())
}

func TestSaveAllFlushesPending(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 10, Y: 20}))
	require.NoError(t, c.Autosave().SaveAll(context.Background()))

	require.Len(t, fb.cardUpdates[cardAlphaID], 1)
	upd := fb.cardUpdates[cardAlphaID][0]
	require.NotNil(t, upd.Position)
	assert.Equal(t, types.Position{X: 10, Y: 20}, *upd.Position)

	status := c.Autosave().Status()
	assert.Zero(t, status.Pending)
	assert.False(t, status.Saving)
	assert.False(t, status.LastSaved.IsZero())
}

func TestSaveAllPartialFailure(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)
	fb.failIDs[cardBetaID] = errFor("update-card")

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 1, Y: 1}))
	require.NoError(t, c.Nodes().UpdateNodePosition(cardBetaID, types.Position{X: 2, Y: 2}))

	err := c.Autosave().SaveAll(context.Background())
	require.Error(t, err)
	assert.True(t, types.IsPersistence(err))

	// Exactly the failed card stays pending; the success still moves
	// LastSaved forward.
	pending := c.Autosave().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, cardBetaID, pending[0])
	assert.False(t, c.Autosave().Status().LastSaved.IsZero())
}

func TestSaveAllAllFailuresKeepLastSavedZero(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)
	fb.failOps["update-card"] = errFor("update-card")

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 1, Y: 1}))
	require.Error(t, c.Autosave().SaveAll(context.Background()))
	assert.True(t, c.Autosave().Status().LastSaved.IsZero())
	assert.Contains(t, c.Autosave().Pending(), cardAlphaID)
}

func TestSaveAllDropsTransientIDs(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	c.Autosave().AddPendingChange("tmp_draft_card")
	require.NoError(t, c.Autosave().SaveAll(context.Background()))
	assert.Zero(t, fb.callCount("update-card"), "ids that are not UUIDs cannot exist at the backend")
	assert.Empty(t, c.Autosave().Pending())
}

func TestSaveAllKeepsIDChangedDuringFlight(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 1, Y: 1}))
	fb.onUpdateCard = func(id string) {
		// A new change lands while the flush is writing the old state.
		fb.onUpdateCard = nil
		require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 99, Y: 99}))
	}

	require.NoError(t, c.Autosave().SaveAll(context.Background()))
	assert.Contains(t, c.Autosave().Pending(), cardAlphaID,
		"a change made during the flush must survive it")

	require.NoError(t, c.Autosave().SaveAll(context.Background()))
	assert.Empty(t, c.Autosave().Pending())
	updates := fb.cardUpdates[cardAlphaID]
	require.Len(t, updates, 2)
	assert.Equal(t, types.Position{X: 99, Y: 99}, *updates[1].Position)
}

func TestSaveAllRetryScheduling(t *testing.T) {
	fb := newFakeBackend(testProject())
	fb.failOps["update-card"] = errFor("update-card")

	// Unlimited retries: a failed flush arms the retry timer.
	c := New(fb, StaticIdentity(testUserID), types.Config{Backend: types.BackendSQLite, RetryDelaySec: 60}, nil)
	require.NoError(t, c.Open(context.Background(), testCanvasID))
	defer c.Close()

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 1, Y: 1}))
	require.Error(t, c.Autosave().SaveAll(context.Background()))
	c.mu.Lock()
	armed := c.autosave.retryTimer != nil
	c.mu.Unlock()
	assert.True(t, armed)
}

func TestSaveAllRetryLimitHoldsChanges(t *testing.T) {
	fb := newFakeBackend(testProject())
	fb.failOps["update-card"] = errFor("update-card")

	c := New(fb, StaticIdentity(testUserID), types.Config{Backend: types.BackendSQLite, RetryLimit: 1}, nil)
	require.NoError(t, c.Open(context.Background(), testCanvasID))
	defer c.Close()

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 1, Y: 1}))
	require.Error(t, c.Autosave().SaveAll(context.Background()))

	c.mu.Lock()
	armed := c.autosave.retryTimer != nil
	c.mu.Unlock()
	assert.False(t, armed, "retry budget exhausted, the pending change is held")
	assert.Contains(t, c.Autosave().Pending(), cardAlphaID)

	// A fresh local change re-arms the budget.
	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 2, Y: 2}))
	delete(fb.failOps, "update-card")
	require.NoError(t, c.Autosave().SaveAll(context.Background()))
	assert.Empty(t, c.Autosave().Pending())
}

func TestAutosaveResetOnClose(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	require.NoError(t, c.Nodes().UpdateNodePosition(cardAlphaID, types.Position{X: 1, Y: 1}))
	c.Close()
	assert.Empty(t, c.Autosave().Pending())
	assert.True(t, c.Autosave().Status().LastSaved.IsZero())
}

func TestRemovePendingChange(t *testing.T) {
	fb := newFakeBackend(testProject())
	c := newTestCanvas(t, fb)

	c.Autosave().AddPendingChange(cardAlphaID)
	c.Autosave().RemovePendingChange(cardAlphaID)
	assert.Empty(t, c.Autosave().Pending())
	require.NoError(t, c.Autosave().SaveAll(context.Background()))
	assert.Zero(t, fb.callCount("update-card"))
}
