package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "modernc.org/sqlite"
)

const exportSchema = `
CREATE TABLE nodes (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER,
	file TEXT NOT NULL,
	ident TEXT,
	access_path TEXT NOT NULL,
	line INTEGER,
	start_col INTEGER,
	end_col INTEGER,
	language TEXT NOT NULL,
	metadata JSON
);
CREATE INDEX idx_nodes_parent ON nodes(parent_id);
CREATE INDEX idx_nodes_ident ON nodes(ident);
`

// ExportSQLite writes every node of the forest into a fresh SQLite database
// at dbPath, replacing any existing file.
func ExportSQLite(f *Forest, dbPath string) error {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", dbPath, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	// Bulk insert into a throwaway file.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(exportSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO nodes
		(id, parent_id, file, ident, access_path, line, start_col, end_col, language, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, root := range f.Roots() {
		var walkErr error
		root.Walk(func(n *Node) {
			if walkErr != nil {
				return
			}
			walkErr = insertNode(stmt, n)
		})
		if walkErr != nil {
			_ = tx.Rollback()
			return walkErr
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertNode(stmt *sql.Stmt, n *Node) error {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata for node %d: %w", n.ID, err)
	}

	var parent, line, start, end sql.NullInt64
	if n.Parent != nil {
		parent = sql.NullInt64{Int64: int64(n.Parent.ID), Valid: true}
	}
	if n.Span != nil {
		line = sql.NullInt64{Int64: int64(n.Span.Line), Valid: true}
		start = sql.NullInt64{Int64: int64(n.Span.StartColumn), Valid: true}
		end = sql.NullInt64{Int64: int64(n.Span.EndColumn), Valid: true}
	}
	ident := sql.NullString{String: n.Identifier, Valid: n.Identifier != ""}

	if _, err := stmt.Exec(int64(n.ID), parent, n.File, ident, n.Path.String(),
		line, start, end, string(n.Language), string(meta)); err != nil {
		return fmt.Errorf("insert node %d: %w", n.ID, err)
	}
	return nil
}
