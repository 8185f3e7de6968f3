package canvas

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftmetrics/canvas/pkg/types"
)

// SaveStatus is the observable autosave state for UI indicators.
type SaveStatus struct {
	Pending   int
	Saving    bool
	LastSaved time.Time
}

// Autosave tracks the dirty set of card ids and flushes them to the backend.
// A pending change is dropped only on a confirmed save of a state at least
// as new as the one registered; failed saves stay pending and are retried on
// a fixed delay. The saving flag gives flushes mutual exclusion: a flush
// never runs concurrently with itself, and a flush attempted while one is in
// progress is a no-op.
type Autosave struct {
	c *Canvas

	// All fields below are guarded by c.mu.
	pending    map[string]struct{}
	ticks      map[string]uint64 // change generation per card id
	tick       uint64
	saving     bool
	lastSaved  time.Time
	failStreak int
	retryTimer *time.Timer
}

func newAutosave(c *Canvas) *Autosave {
	return &Autosave{
		c:       c,
		pending: make(map[string]struct{}),
		ticks:   make(map[string]uint64),
	}
}

// AddPendingChange registers a card id as dirty. Re-registering an id that
// is already pending re-arms the retry budget.
func (a *Autosave) AddPendingChange(id string) {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	a.addLocked(id)
}

// RemovePendingChange drops a card id from the dirty set without saving it.
func (a *Autosave) RemovePendingChange(id string) {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	a.removeLocked(id)
}

// Status returns the pending count, in-flight flag, and last successful save
// time.
func (a *Autosave) Status() SaveStatus {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	return SaveStatus{
		Pending:   len(a.pending),
		Saving:    a.saving,
		LastSaved: a.lastSaved,
	}
}

// Pending returns the dirty card ids.
func (a *Autosave) Pending() []string {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	out := make([]string, 0, len(a.pending))
	for id := range a.pending {
		out = append(out, id)
	}
	return out
}

// SaveAll flushes the dirty set. No-op when the set is empty or a flush is
// already in progress. Ids that are not canonical UUIDs cannot exist in the
// backend yet and are dropped without a save attempt; the rest are persisted
// sequentially and independently, so one card's failure does not abort the
// others. Failed ids stay pending and a retry is scheduled; the aggregate
// error reports them after the batch completes.
func (a *Autosave) SaveAll(ctx context.Context) error {
	type item struct {
		id   string
		tick uint64
		upd  types.CardUpdate
	}

	a.c.mu.Lock()
	if a.c.project == nil || len(a.pending) == 0 || a.saving {
		a.c.mu.Unlock()
		return nil
	}
	a.saving = true
	items := make([]item, 0, len(a.pending))
	for id := range a.pending {
		if uuid.Validate(id) != nil {
			// Local-only id, nothing to save at the backend.
			a.removeLocked(id)
			a.c.log.Debug("dropping transient pending id", zap.String("card_id", id))
			continue
		}
		node := a.c.project.NodeByID(id)
		if node == nil {
			a.removeLocked(id)
			continue
		}
		items = append(items, item{id: id, tick: a.ticks[id], upd: node.Snapshot()})
	}
	a.c.mu.Unlock()

	var errs []error
	failed := make(map[string]bool, len(items))
	for _, it := range items {
		if err := a.c.backend.UpdateCard(ctx, it.id, it.upd); err != nil {
			failed[it.id] = true
			errs = append(errs, &types.PersistenceError{Op: "autosave card", ID: it.id, Err: err})
			a.c.log.Warn("autosave failed, will retry",
				zap.String("card_id", it.id), zap.Error(err))
		}
	}

	a.c.mu.Lock()
	for _, it := range items {
		// Keep the id pending if it failed, or if the card changed again
		// while this flush was in flight.
		if !failed[it.id] && a.ticks[it.id] == it.tick {
			a.removeLocked(it.id)
		}
	}
	if len(items) > len(failed) {
		a.lastSaved = time.Now().UTC()
	}
	a.saving = false
	if len(failed) > 0 {
		a.failStreak++
		limit := a.c.cfg.RetryLimit
		if limit == 0 || a.failStreak < limit {
			a.scheduleRetryLocked()
		} else {
			a.c.log.Warn("autosave retry limit reached, holding pending changes",
				zap.Int("pending", len(a.pending)),
				zap.Int("retries", a.failStreak))
		}
	} else {
		a.failStreak = 0
	}
	a.c.mu.Unlock()

	return errors.Join(errs...)
}

// Run flushes on the configured interval until ctx is done. The caller owns
// the goroutine.
func (a *Autosave) Run(ctx context.Context) {
	ticker := time.NewTicker(a.c.cfg.FlushInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.SaveAll(ctx); err != nil {
				// Contained: failures stay pending and are retried.
				a.c.log.Debug("flush completed with failures", zap.Error(err))
			}
		}
	}
}

// addLocked registers a dirty id. Caller holds the canvas lock.
func (a *Autosave) addLocked(id string) {
	a.pending[id] = struct{}{}
	a.tick++
	a.ticks[id] = a.tick
	a.failStreak = 0
}

// removeLocked drops a dirty id. Caller holds the canvas lock.
func (a *Autosave) removeLocked(id string) {
	delete(a.pending, id)
	delete(a.ticks, id)
}

// scheduleRetryLocked arms a one-shot retry of the whole flush. The SaveAll
// precondition makes a stale retry against an emptied set a no-op, so timers
// never stack work. Caller holds the canvas lock.
func (a *Autosave) scheduleRetryLocked() {
	if a.retryTimer != nil {
		a.retryTimer.Stop()
	}
	a.retryTimer = time.AfterFunc(a.c.cfg.RetryDelay(), func() {
		// Errors are already logged and retained per item.
		_ = a.SaveAll(context.Background())
	})
}

// reset clears all autosave state when a canvas is opened or closed. Caller
// holds the canvas lock.
func (a *Autosave) reset() {
	if a.retryTimer != nil {
		a.retryTimer.Stop()
		a.retryTimer = nil
	}
	a.pending = make(map[string]struct{})
	a.ticks = make(map[string]uint64)
	a.saving = false
	a.failStreak = 0
	a.lastSaved = time.Time{}
}
