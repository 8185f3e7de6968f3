package sqlite

// Schema DDL. The database survives across runs, so every statement is
// IF NOT EXISTS. "groups" is a reserved word in SQLite; the table is named
// card_groups.
const (
	createCanvases = `CREATE TABLE IF NOT EXISTS canvases (
    canvas_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    collaborators TEXT NOT NULL DEFAULT '[]',
    settings TEXT NOT NULL DEFAULT '{}',
    viewport TEXT NOT NULL DEFAULT '{}',
    date_range TEXT NOT NULL DEFAULT '{}',
    created_by TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createCards = `CREATE TABLE IF NOT EXISTS cards (
    card_id TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    sub_category TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    causal_factors TEXT NOT NULL DEFAULT '[]',
    dimensions TEXT NOT NULL DEFAULT '[]',
    pos_x REAL NOT NULL DEFAULT 0,
    pos_y REAL NOT NULL DEFAULT 0,
    data TEXT NOT NULL DEFAULT '[]',
    source_type TEXT NOT NULL DEFAULT '',
    formula TEXT NOT NULL DEFAULT '',
    owner TEXT NOT NULL DEFAULT '',
    assignees TEXT NOT NULL DEFAULT '[]',
    parent_id TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (canvas_id) REFERENCES canvases(canvas_id)
);`

	createRelationships = `CREATE TABLE IF NOT EXISTS relationships (
    rel_id TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    rel_type TEXT NOT NULL,
    confidence TEXT NOT NULL DEFAULT '',
    weight REAL,
    evidence TEXT NOT NULL DEFAULT '[]',
    created_by TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (canvas_id) REFERENCES canvases(canvas_id)
);`

	createRelationshipHistory = `CREATE TABLE IF NOT EXISTS relationship_history (
    history_id TEXT PRIMARY KEY,
    rel_id TEXT NOT NULL,
    change_type TEXT NOT NULL,
    old_value TEXT NOT NULL DEFAULT 'null',
    new_value TEXT NOT NULL DEFAULT 'null',
    description TEXT NOT NULL DEFAULT '',
    user_id TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    FOREIGN KEY (rel_id) REFERENCES relationships(rel_id)
);`

	createGroups = `CREATE TABLE IF NOT EXISTS card_groups (
    group_id TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    name TEXT NOT NULL,
    node_ids TEXT NOT NULL DEFAULT '[]',
    pos_x REAL NOT NULL DEFAULT 0,
    pos_y REAL NOT NULL DEFAULT 0,
    width REAL NOT NULL DEFAULT 0,
    height REAL NOT NULL DEFAULT 0,
    is_collapsed INTEGER NOT NULL DEFAULT 0,
    color TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (canvas_id) REFERENCES canvases(canvas_id)
);`

	createIndexes = `CREATE INDEX IF NOT EXISTS idx_cards_canvas ON cards(canvas_id);
CREATE INDEX IF NOT EXISTS idx_relationships_canvas ON relationships(canvas_id);
CREATE INDEX IF NOT EXISTS idx_history_rel ON relationship_history(rel_id);
CREATE INDEX IF NOT EXISTS idx_groups_canvas ON card_groups(canvas_id);`
)

// schemaStatements lists the DDL in creation order.
var schemaStatements = []string{
	createCanvases,
	createCards,
	createRelationships,
	createRelationshipHistory,
	createGroups,
	createIndexes,
}
