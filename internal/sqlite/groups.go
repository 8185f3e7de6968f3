package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftmetrics/canvas/pkg/types"
)

// CreateGroup inserts a new group row and points the member cards at it. An
// empty id is replaced with a generated UUID. Returns the stored group.
func (b *Backend) CreateGroup(ctx context.Context, g *types.GroupNode, canvasID, userID string) (*types.GroupNode, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if g.Name == "" {
		return nil, fmt.Errorf("group name: %w", types.ErrInvalidData)
	}
	stored := g.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	nodeIDs, err := toJSON(stored.NodeIDs)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO card_groups (group_id, canvas_id, name, node_ids, pos_x,
		 pos_y, width, height, is_collapsed, color, description, created_at,
		 updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, canvasID, stored.Name, nodeIDs, stored.Position.X,
		stored.Position.Y, stored.Size.Width, stored.Size.Height,
		boolInt(stored.IsCollapsed), stored.Color, stored.Description,
		timeText(now), timeText(now))
	if err != nil {
		return nil, fmt.Errorf("inserting group: %w", err)
	}
	if err := syncMembers(ctx, tx, stored.ID, stored.NodeIDs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stored, nil
}

// UpdateGroup applies a partial update to a group row. When the update
// replaces the member set, member cards' parent references are re-synced in
// the same transaction.
func (b *Backend) UpdateGroup(ctx context.Context, id string, upd types.GroupUpdate) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	var set setClause
	if upd.Name != nil {
		set.add("name", *upd.Name)
	}
	if upd.NodeIDs != nil {
		text, err := toJSON(*upd.NodeIDs)
		if err != nil {
			return err
		}
		set.add("node_ids", text)
	}
	if upd.Position != nil {
		set.add("pos_x", upd.Position.X)
		set.add("pos_y", upd.Position.Y)
	}
	if upd.Size != nil {
		set.add("width", upd.Size.Width)
		set.add("height", upd.Size.Height)
	}
	if upd.IsCollapsed != nil {
		set.add("is_collapsed", boolInt(*upd.IsCollapsed))
	}
	if upd.Color != nil {
		set.add("color", *upd.Color)
	}
	if upd.Description != nil {
		set.add("description", *upd.Description)
	}
	if set.empty() {
		return nil
	}
	set.add("updated_at", timeText(time.Now()))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE card_groups SET "+set.sql()+" WHERE group_id = ?",
		append(set.args, id)...)
	if err != nil {
		return fmt.Errorf("updating group %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if upd.NodeIDs != nil {
		if _, err := tx.ExecContext(ctx,
			"UPDATE cards SET parent_id = '' WHERE parent_id = ?", id); err != nil {
			return fmt.Errorf("clearing group members: %w", err)
		}
		if err := syncMembers(ctx, tx, id, *upd.NodeIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeleteGroup deletes a group row and clears the parent reference on any
// card that pointed at it. Cards themselves are kept.
func (b *Backend) DeleteGroup(ctx context.Context, id string) error {
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
		"UPDATE cards SET parent_id = '' WHERE parent_id = ?", id); err != nil {
		return fmt.Errorf("ungrouping cards: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM card_groups WHERE group_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting group %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// groupsForCanvas loads all groups of a canvas in creation order.
func (b *Backend) groupsForCanvas(ctx context.Context, db *sql.DB, canvasID string) ([]*types.GroupNode, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT group_id, name, node_ids, pos_x, pos_y, width, height,
		 is_collapsed, color, description, created_at, updated_at
		 FROM card_groups WHERE canvas_id = ? ORDER BY created_at`, canvasID)
	if err != nil {
		return nil, fmt.Errorf("loading groups: %w", err)
	}
	defer rows.Close()

	var out []*types.GroupNode
	for rows.Next() {
		var g types.GroupNode
		var nodeIDs, createdAt, updatedAt string
		var collapsed int
		if err := rows.Scan(&g.ID, &g.Name, &nodeIDs, &g.Position.X,
			&g.Position.Y, &g.Size.Width, &g.Size.Height, &collapsed,
			&g.Color, &g.Description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("loading groups: %w", err)
		}
		if err := fromJSON(nodeIDs, &g.NodeIDs); err != nil {
			return nil, err
		}
		g.IsCollapsed = collapsed != 0
		g.CreatedAt = parseTime(createdAt)
		g.UpdatedAt = parseTime(updatedAt)
		out = append(out, &g)
	}
	return out, rows.Err()
}

// syncMembers points the given cards at the group. Unknown card ids are
// ignored; the canvas may not have persisted them yet.
func syncMembers(ctx context.Context, tx *sql.Tx, groupID string, nodeIDs []string) error {
	for _, cardID := range nodeIDs {
		if _, err := tx.ExecContext(ctx,
			"UPDATE cards SET parent_id = ? WHERE card_id = ?",
			groupID, cardID); err != nil {
			return fmt.Errorf("linking group member %s: %w", cardID, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
