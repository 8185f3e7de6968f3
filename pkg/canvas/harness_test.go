package canvas

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/driftmetrics/canvas/pkg/types"
)

// Fixed entity ids used across tests. Card ids are canonical UUIDs so the
// autosave flush treats them as persisted entities.
const (
	testCanvasID = "0b54a7be-9c61-4f6a-8a6b-2f1f6f0f9a01"
	cardAlphaID  = "11111111-1111-4111-8111-111111111111"
	cardBetaID   = "22222222-2222-4222-8222-222222222222"
	cardGammaID  = "33333333-3333-4333-8333-333333333333"
	edgeAB       = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	testUserID   = "user-1"
)

// fakeBackend is an in-memory types.Backend with call recording and failure
// injection. Failures are keyed by operation name, optionally narrowed to a
// single entity id.
type fakeBackend struct {
	mu      sync.Mutex
	project *types.CanvasProject

	failOps map[string]error // op name -> error for every id
	failIDs map[string]error // entity id -> error

	calls        []string
	cardUpdates  map[string][]types.CardUpdate
	relHistories map[string][]types.HistoryEntry
	groupUpdates map[string][]types.GroupUpdate

	// onUpdateCard, when set, runs during UpdateCard before the result is
	// decided. Tests use it to mutate state while a flush is in flight.
	onUpdateCard func(id string)
}

func newFakeBackend(project *types.CanvasProject) *fakeBackend {
	return &fakeBackend{
		project:      project,
		failOps:      make(map[string]error),
		failIDs:      make(map[string]error),
		cardUpdates:  make(map[string][]types.CardUpdate),
		relHistories: make(map[string][]types.HistoryEntry),
		groupUpdates: make(map[string][]types.GroupUpdate),
	}
}

func (f *fakeBackend) record(op, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+" "+id)
	if err, ok := f.failIDs[id]; ok {
		return err
	}
	if err, ok := f.failOps[op]; ok {
		return err
	}
	return nil
}

func (f *fakeBackend) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(op) && c[:len(op)] == op {
			n++
		}
	}
	return n
}

func (f *fakeBackend) CreateProject(ctx context.Context, p *types.CanvasProject, userID string) (*types.CanvasProject, error) {
	if err := f.record("create-project", p.Name); err != nil {
		return nil, err
	}
	created := *p
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

func (f *fakeBackend) GetProject(ctx context.Context, id string) (*types.CanvasProject, error) {
	if err := f.record("get-project", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.project == nil || f.project.ID != id {
		return nil, types.ErrNotFound
	}
	return f.project, nil
}

func (f *fakeBackend) ListProjects(ctx context.Context) ([]*types.CanvasProject, error) {
	if err := f.record("list-projects", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.project == nil {
		return nil, nil
	}
	return []*types.CanvasProject{f.project}, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, id string, upd types.ProjectUpdate) error {
	return f.record("update-project", id)
}

func (f *fakeBackend) DeleteProject(ctx context.Context, id string) error {
	return f.record("delete-project", id)
}

func (f *fakeBackend) CreateCard(ctx context.Context, card *types.MetricCard, canvasID, userID string) (*types.MetricCard, error) {
	if err := f.record("create-card", card.ID); err != nil {
		return nil, err
	}
	created := card.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	return created, nil
}

func (f *fakeBackend) UpdateCard(ctx context.Context, id string, upd types.CardUpdate) error {
	if f.onUpdateCard != nil {
		f.onUpdateCard(id)
	}
	if err := f.record("update-card", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cardUpdates[id] = append(f.cardUpdates[id], upd)
	return nil
}

func (f *fakeBackend) DeleteCard(ctx context.Context, id string) error {
	return f.record("delete-card", id)
}

func (f *fakeBackend) CreateRelationship(ctx context.Context, rel *types.Relationship, canvasID, userID string) (*types.Relationship, error) {
	if err := f.record("create-relationship", rel.ID); err != nil {
		return nil, err
	}
	created := rel.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	return created, nil
}

func (f *fakeBackend) UpdateRelationship(ctx context.Context, id string, upd types.RelationshipUpdate, history []types.HistoryEntry) error {
	if err := f.record("update-relationship", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relHistories[id] = append(f.relHistories[id], history...)
	return nil
}

func (f *fakeBackend) DeleteRelationship(ctx context.Context, id string) error {
	return f.record("delete-relationship", id)
}

func (f *fakeBackend) CreateGroup(ctx context.Context, g *types.GroupNode, canvasID, userID string) (*types.GroupNode, error) {
	if err := f.record("create-group", g.ID); err != nil {
		return nil, err
	}
	created := g.Clone()
	if created.ID == "" {
		created.ID = uuid.NewString()
	}
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	return created, nil
}

func (f *fakeBackend) UpdateGroup(ctx context.Context, id string, upd types.GroupUpdate) error {
	if err := f.record("update-group", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupUpdates[id] = append(f.groupUpdates[id], upd)
	return nil
}

func (f *fakeBackend) DeleteGroup(ctx context.Context, id string) error {
	return f.record("delete-group", id)
}

func (f *fakeBackend) Close() error { return nil }

// testProject builds a canvas with three cards and one edge alpha -> beta.
func testProject() *types.CanvasProject {
	now := time.Now().UTC()
	weight := 0.5
	return &types.CanvasProject{
		ID:       testCanvasID,
		Name:     "test canvas",
		Settings: types.DefaultSettings(),
		Viewport: types.Viewport{Zoom: 1},
		Nodes: []*types.MetricCard{
			{
				ID:         cardAlphaID,
				Title:      "Alpha",
				Category:   types.CategoryDataMetric,
				Position:   types.Position{X: 0, Y: 0},
				SourceType: types.SourceManual,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			{
				ID:         cardBetaID,
				Title:      "Beta",
				Category:   types.CategoryDataMetric,
				Position:   types.Position{X: 300, Y: 200},
				SourceType: types.SourceManual,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
			{
				ID:         cardGammaID,
				Title:      "Gamma",
				Category:   types.CategoryWorkAction,
				Position:   types.Position{X: 600, Y: 0},
				SourceType: types.SourceManual,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
		Edges: []*types.Relationship{
			{
				ID:         edgeAB,
				SourceID:   cardAlphaID,
				TargetID:   cardBetaID,
				Type:       types.RelationCausal,
				Confidence: types.ConfidenceMedium,
				Weight:     &weight,
				CreatedAt:  now,
				UpdatedAt:  now,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// newTestCanvas opens a canvas over the fake backend with a static user.
func newTestCanvas(t *testing.T, fb *fakeBackend) *Canvas {
	t.Helper()
	cfg := types.Config{Backend: types.BackendSQLite, UserID: testUserID, RetryLimit: 1}
	c := New(fb, StaticIdentity(testUserID), cfg, nil)
	require.NoError(t, c.Open(context.Background(), fb.project.ID))
	t.Cleanup(c.Close)
	return c
}

func errFor(op string) error { return fmt.Errorf("injected %s failure", op) }
