package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftmetrics/canvas/pkg/types"
)

// CreateRelationship inserts a new relationship row. An empty id is replaced
// with a generated UUID; timestamps are assigned here. Returns the stored
// relationship.
func (b *Backend) CreateRelationship(ctx context.Context, rel *types.Relationship, canvasID, userID string) (*types.Relationship, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if !types.ValidRelationType(rel.Type) {
		return nil, fmt.Errorf("relationship type %q: %w", rel.Type, types.ErrInvalidData)
	}
	if rel.SourceID == "" || rel.TargetID == "" {
		return nil, fmt.Errorf("relationship endpoints: %w", types.ErrInvalidData)
	}
	if rel.SourceID == rel.TargetID {
		return nil, types.ErrSelfReference
	}

	stored := rel.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	evidence, err := toJSON(stored.Evidence)
	if err != nil {
		return nil, err
	}
	var weight any
	if stored.Weight != nil {
		weight = *stored.Weight
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO relationships (rel_id, canvas_id, source_id, target_id,
		 rel_type, confidence, weight, evidence, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, canvasID, stored.SourceID, stored.TargetID, stored.Type,
		stored.Confidence, weight, evidence, userID, timeText(now), timeText(now))
	if err != nil {
		return nil, fmt.Errorf("inserting relationship: %w", err)
	}
	if err := insertHistory(ctx, tx, stored.ID, stored.History); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// UpdateRelationship applies a partial update to a relationship row and
// appends the derived audit entries in the same transaction.
func (b *Backend) UpdateRelationship(ctx context.Context, id string, upd types.RelationshipUpdate, history []types.HistoryEntry) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	var set setClause
	if upd.Type != nil {
		set.add("rel_type", *upd.Type)
	}
	if upd.Confidence != nil {
		set.add("confidence", *upd.Confidence)
	}
	if upd.Weight != nil {
		set.add("weight", *upd.Weight)
	}
	if upd.Evidence != nil {
		text, err := toJSON(*upd.Evidence)
		if err != nil {
			return err
		}
		set.add("evidence", text)
	}
	if set.empty() && len(history) == 0 {
		return nil
	}
	set.add("updated_at", timeText(time.Now()))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE relationships SET "+set.sql()+" WHERE rel_id = ?",
		append(set.args, id)...)
	if err != nil {
		return fmt.Errorf("updating relationship %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, id, history); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteRelationship deletes a relationship row and its history.
func (b *Backend) DeleteRelationship(ctx context.Context, id string) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM relationship_history WHERE rel_id = ?", id); err != nil {
		return fmt.Errorf("deleting relationship history: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM relationships WHERE rel_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting relationship %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// insertHistory appends audit entries for a relationship. Entries with an
// empty id get one assigned.
func insertHistory(ctx context.Context, tx *sql.Tx, relID string, entries []types.HistoryEntry) error {
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		oldV, err := toJSON(e.OldValue)
		if err != nil {
			return err
		}
		newV, err := toJSON(e.NewValue)
		if err != nil {
			return err
		}
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relationship_history (history_id, rel_id, change_type,
			 old_value, new_value, description, user_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, relID, e.ChangeType, oldV, newV, e.Description, e.UserID,
			timeText(ts)); err != nil {
			return fmt.Errorf("inserting history entry: %w", err)
		}
	}
	return nil
}

// relationshipsForCanvas loads all relationships of a canvas with their
// history, oldest entry first.
func (b *Backend) relationshipsForCanvas(ctx context.Context, db *sql.DB, canvasID string) ([]*types.Relationship, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT rel_id, source_id, target_id, rel_type, confidence, weight,
		 evidence, created_at, updated_at
		 FROM relationships WHERE canvas_id = ? ORDER BY created_at`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("loading relationships: %w", err)
	}
	defer rows.Close()

	var out []*types.Relationship
	for rows.Next() {
		var r types.Relationship
		var weight sql.NullFloat64
		var evidence, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type,
			&r.Confidence, &weight, &evidence, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("loading relationships: %w", err)
		}
		if weight.Valid {
			w := weight.Float64
			r.Weight = &w
		}
		if err := fromJSON(evidence, &r.Evidence); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range out {
		if r.History, err = b.historyForRelationship(ctx, db, r.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// historyForRelationship loads the audit trail of one relationship.
func (b *Backend) historyForRelationship(ctx context.Context, db *sql.DB, relID string) ([]types.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT history_id, change_type, old_value, new_value, description,
		 user_id, created_at
		 FROM relationship_history WHERE rel_id = ? ORDER BY created_at`, relID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	var out []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var oldV, newV, createdAt string
		if err := rows.Scan(&e.ID, &e.ChangeType, &oldV, &newV,
			&e.Description, &e.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("loading history: %w", err)
		}
		if err := json.Unmarshal([]byte(oldV), &e.OldValue); err != nil {
			return nil, fmt.Errorf("decoding history value: %w", err)
		}
		if err := json.Unmarshal([]byte(newV), &e.NewValue); err != nil {
			return nil, fmt.Errorf("decoding history value: %w", err)
		}
		e.Timestamp = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}
