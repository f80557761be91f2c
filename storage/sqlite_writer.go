package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS listings (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id            TEXT    NOT NULL,
		channel           TEXT    NOT NULL,
		raw_text          TEXT    NOT NULL,
		brand             TEXT    NOT NULL DEFAULT '',
		model             TEXT    NOT NULL DEFAULT '',
		color             TEXT    NOT NULL,
		year              INTEGER,
		price             REAL,
		mileage           INTEGER,
		body_condition    TEXT    NOT NULL,
		chassis_condition TEXT    NOT NULL,
		engine_condition  TEXT    NOT NULL,
		cluster           TEXT    NOT NULL,
		status            TEXT    NOT NULL,
		phone             TEXT    NOT NULL DEFAULT '',
		created_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_listings_brand   ON listings(brand);
	CREATE INDEX IF NOT EXISTS idx_listings_cluster ON listings(cluster);
`

// NewSQLiteWriter opens (or creates) the sqlite database at path.
func NewSQLiteWriter(path string) (*SQLWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	return newSQLWriter(db, dialect{
		name:        "sqlite",
		schema:      sqliteSchema,
		placeholder: func(int) string { return "?" },
	})
}
