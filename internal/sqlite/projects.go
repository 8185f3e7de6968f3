package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/driftmetrics/canvas/pkg/types"
)

// setClause accumulates columns for a dynamic partial UPDATE.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.cols = append(s.cols, col+" = ?")
	s.args = append(s.args, v)
}

func (s *setClause) empty() bool { return len(s.cols) == 0 }

func (s *setClause) sql() string { return strings.Join(s.cols, ", ") }

// CreateProject inserts a new canvas row. An empty id is replaced with a
// generated UUID; timestamps are assigned here. Returns the stored project.
func (b *Backend) CreateProject(ctx context.Context, p *types.CanvasProject, userID string) (*types.CanvasProject, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	stored := *p
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
	collaborators, err := toJSON(stored.Collaborators)
	if err != nil {
		return nil, err
	}
	settings, err := toJSON(stored.Settings)
	if err != nil {
		return nil, err
	}
	viewport, err := toJSON(stored.Viewport)
	if err != nil {
		return nil, err
	}
	dateRange, err := toJSON(stored.DateRange)
	if err != nil {
		return nil, err
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO canvases (canvas_id, name, description, tags, collaborators,
		 settings, viewport, date_range, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Name, stored.Description, tags, collaborators,
		settings, viewport, dateRange, userID, timeText(now), timeText(now))
	if err != nil {
		return nil, fmt.Errorf("inserting canvas: %w", err)
	}
	return &stored, nil
}

// GetProject loads a canvas wholesale: the canvas row plus all of its cards,
// relationships (with history), and groups.
func (b *Backend) GetProject(ctx context.Context, id string) (*types.CanvasProject, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}

	row := db.QueryRowContext(ctx,
		`SELECT canvas_id, name, description, tags, collaborators, settings,
		 viewport, date_range, created_at, updated_at
		 FROM canvases WHERE canvas_id = ?`, id)
	p, err := hydrateProject(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting canvas %s: %w", id, err)
	}

	if p.Nodes, err = b.cardsForCanvas(ctx, db, id); err != nil {
		return nil, err
	}
	if p.Edges, err = b.relationshipsForCanvas(ctx, db, id); err != nil {
		return nil, err
	}
	if p.Groups, err = b.groupsForCanvas(ctx, db, id); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProjects returns all canvas rows without their contents, newest first.
func (b *Backend) ListProjects(ctx context.Context) ([]*types.CanvasProject, error) {
	db, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT canvas_id, name, description, tags, collaborators, settings,
		 viewport, date_range, created_at, updated_at
		 FROM canvases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing canvases: %w", err)
	}
	defer rows.Close()

	var out []*types.CanvasProject
	for rows.Next() {
		p, err := hydrateProject(rows)
		if err != nil {
			return nil, fmt.Errorf("listing canvases: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProject applies a partial update to a canvas row.
func (b *Backend) UpdateProject(ctx context.Context, id string, upd types.ProjectUpdate) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	var set setClause
	if upd.Name != nil {
		set.add("name", *upd.Name)
	}
	if upd.Description != nil {
		set.add("description", *upd.Description)
	}
	if upd.Tags != nil {
		text, err := toJSON(*upd.Tags)
		if err != nil {
			return err
		}
		set.add("tags", text)
	}
	if upd.Collaborators != nil {
		text, err := toJSON(*upd.Collaborators)
		if err != nil {
			return err
		}
		set.add("collaborators", text)
	}
	if upd.Settings != nil {
		text, err := toJSON(*upd.Settings)
		if err != nil {
			return err
		}
		set.add("settings", text)
	}
	if upd.Viewport != nil {
		text, err := toJSON(*upd.Viewport)
		if err != nil {
			return err
		}
		set.add("viewport", text)
	}
	if upd.DateRange != nil {
		text, err := toJSON(*upd.DateRange)
		if err != nil {
			return err
		}
		set.add("date_range", text)
	}
	if set.empty() {
		return nil
	}
	set.add("updated_at", timeText(time.Now()))

	res, err := db.ExecContext(ctx,
		"UPDATE canvases SET "+set.sql()+" WHERE canvas_id = ?",
		append(set.args, id)...)
	if err != nil {
		return fmt.Errorf("updating canvas %s: %w", id, err)
	}
	return requireRow(res)
}

// DeleteProject deletes a canvas and everything in it.
func (b *Backend) DeleteProject(ctx context.Context, id string) error {
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
		 (SELECT rel_id FROM relationships WHERE canvas_id = ?)`, id); err != nil {
		return fmt.Errorf("deleting canvas history: %w", err)
	}
	for _, table := range []string{"relationships", "cards", "card_groups"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE canvas_id = ?", id); err != nil {
			return fmt.Errorf("deleting canvas %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM canvases WHERE canvas_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting canvas %s: %w", id, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// scanner covers sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// hydrateProject reads one canvas row into a CanvasProject without contents.
func hydrateProject(row scanner) (*types.CanvasProject, error) {
	var p types.CanvasProject
	var tags, collaborators, settings, viewport, dateRange string
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &p.Description, &tags, &collaborators,
		&settings, &viewport, &dateRange, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := fromJSON(tags, &p.Tags); err != nil {
		return nil, err
	}
	if err := fromJSON(collaborators, &p.Collaborators); err != nil {
		return nil, err
	}
	if err := fromJSON(settings, &p.Settings); err != nil {
		return nil, err
	}
	if err := fromJSON(viewport, &p.Viewport); err != nil {
		return nil, err
	}
	if err := fromJSON(dateRange, &p.DateRange); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
