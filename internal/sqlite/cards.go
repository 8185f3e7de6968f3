package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftmetrics/canvas/pkg/types"
)

const cardColumns = `card_id, title, description, category, sub_category,
    tags, causal_factors, dimensions, pos_x, pos_y, data, source_type,
    formula, owner, assignees, parent_id, created_at, updated_at`

// CreateCard inserts a new card row. An empty id is replaced with a
// generated UUID; timestamps are assigned here. Returns the stored card.
func (b *Backend) CreateCard(ctx context.Context, card *types.MetricCard, canvasID, userID string) (*types.MetricCard, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if card.Title == "" {
		return nil, fmt.Errorf("card title: %w", types.ErrInvalidData)
	}
	stored := card.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	tags, err := toJSON(stored.Tags)
	if err != nil {
		return nil, err
	}
	factors, err := toJSON(stored.CausalFactors)
	if err != nil {
		return nil, err
	}
	dims, err := toJSON(stored.Dimensions)
	if err != nil {
		return nil, err
	}
	data, err := toJSON(stored.Data)
	if err != nil {
		return nil, err
	}
	assignees, err := toJSON(stored.Assignees)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO cards (card_id, canvas_id, title, description, category,
		 sub_category, tags, causal_factors, dimensions, pos_x, pos_y, data,
		 source_type, formula, owner, assignees, parent_id, created_by,
		 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, canvasID, stored.Title, stored.Description, stored.Category,
		stored.SubCategory, tags, factors, dims, stored.Position.X,
		stored.Position.Y, data, stored.SourceType, stored.Formula,
		stored.Owner, assignees, stored.ParentID, userID,
		timeText(now), timeText(now))
	if err != nil {
		return nil, fmt.Errorf("inserting card: %w", err)
	}
	return stored, nil
}

// UpdateCard applies a partial update to a card row.
func (b *Backend) UpdateCard(ctx context.Context, id string, upd types.CardUpdate) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	var set setClause
	if upd.Title != nil {
		set.add("title", *upd.Title)
	}
	if upd.Description != nil {
		set.add("description", *upd.Description)
	}
	if upd.Category != nil {
		set.add("category", *upd.Category)
	}
	if upd.SubCategory != nil {
		set.add("sub_category", *upd.SubCategory)
	}
	if upd.Tags != nil {
		text, err := toJSON(*upd.Tags)
		if err != nil {
			return err
		}
		set.add("tags", text)
	}
	if upd.CausalFactors != nil {
		text, err := toJSON(*upd.CausalFactors)
		if err != nil {
			return err
		}
		set.add("causal_factors", text)
	}
	if upd.Dimensions != nil {
		text, err := toJSON(*upd.Dimensions)
		if err != nil {
			return err
		}
		set.add("dimensions", text)
	}
	if upd.Position != nil {
		set.add("pos_x", upd.Position.X)
		set.add("pos_y", upd.Position.Y)
	}
	if upd.Data != nil {
		text, err := toJSON(*upd.Data)
		if err != nil {
			return err
		}
		set.add("data", text)
	}
	if upd.SourceType != nil {
		set.add("source_type", *upd.SourceType)
	}
	if upd.Formula != nil {
		set.add("formula", *upd.Formula)
	}
	if upd.Owner != nil {
		set.add("owner", *upd.Owner)
	}
	if upd.Assignees != nil {
		text, err := toJSON(*upd.Assignees)
		if err != nil {
			return err
		}
		set.add("assignees", text)
	}
	if upd.ParentID != nil {
		set.add("parent_id", *upd.ParentID)
	}
	if set.empty() {
		return nil
	}
	set.add("updated_at", timeText(time.Now()))

	res, err := db.ExecContext(ctx,
		"UPDATE cards SET "+set.sql()+" WHERE card_id = ?",
		append(set.args, id)...)
	if err != nil {
		return fmt.Errorf("updating card %s: %w", id, err)
	}
	return requireRow(res)
}

// DeleteCard deletes a card row and cascades to the relationships touching
// it, history included.
func (b *Backend) DeleteCard(ctx context.Context, id string) error {
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
		`DELETE FROM relationship_history WHERE rel_id IN
		 (SELECT rel_id FROM relationships WHERE source_id = ? OR target_id = ?)`,
		id, id); err != nil {
		return fmt.Errorf("deleting card history: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM relationships WHERE source_id = ? OR target_id = ?",
		id, id); err != nil {
		return fmt.Errorf("deleting card relationships: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM cards WHERE card_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting card %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// cardsForCanvas loads all cards of a canvas in creation order.
func (b *Backend) cardsForCanvas(ctx context.Context, db *sql.DB, canvasID string) ([]*types.MetricCard, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+cardColumns+" FROM cards WHERE canvas_id = ? ORDER BY created_at",
		canvasID)
	if err != nil {
		return nil, fmt.Errorf("loading cards: %w", err)
	}
	defer rows.Close()

	var out []*types.MetricCard
	for rows.Next() {
		card, err := hydrateCard(rows)
		if err != nil {
			return nil, fmt.Errorf("loading cards: %w", err)
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// hydrateCard reads one card row.
func hydrateCard(row scanner) (*types.MetricCard, error) {
	var c types.MetricCard
	var tags, factors, dims, data, assignees string
	var createdAt, updatedAt string
	err := row.Scan(&c.ID, &c.Title, &c.Description, &c.Category,
		&c.SubCategory, &tags, &factors, &dims, &c.Position.X, &c.Position.Y,
		&data, &c.SourceType, &c.Formula, &c.Owner, &assignees, &c.ParentID,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(tags, &c.Tags); err != nil {
		return nil, err
	}
	if err := fromJSON(factors, &c.CausalFactors); err != nil {
		return nil, err
	}
	if err := fromJSON(dims, &c.Dimensions); err != nil {
		return nil, err
	}
	if err := fromJSON(data, &c.Data); err != nil {
		return nil, err
	}
	if err := fromJSON(assignees, &c.Assignees); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
