// internal/repositories/sqlite/sqlite.go
// Embedded work-history store; used when no MySQL DSN is configured and in tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS work_history (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id          TEXT    NOT NULL,
	row_no            INTEGER NOT NULL,
	created_at        INTEGER NOT NULL,
	work_year         INTEGER NOT NULL DEFAULT 0,
	eff_work_center   TEXT    NOT NULL DEFAULT '',
	work_date         TEXT    NOT NULL DEFAULT '',
	job_id            TEXT    NOT NULL DEFAULT '',
	job_number        TEXT    NOT NULL DEFAULT '',
	work_order_number TEXT    NOT NULL DEFAULT '',
	operation_number  TEXT    NOT NULL DEFAULT '',
	part_id           TEXT    NOT NULL DEFAULT '',
	part_name         TEXT    NOT NULL DEFAULT '',
	work_center       TEXT    NOT NULL DEFAULT '',
	oper_work_center  TEXT    NOT NULL DEFAULT '',
	company_name      TEXT    NOT NULL DEFAULT '',
	customer_name     TEXT    NOT NULL DEFAULT '',
	task_description  TEXT    NOT NULL DEFAULT '',
	oper_short_text   TEXT    NOT NULL DEFAULT '',
	planned_hours     TEXT    NOT NULL DEFAULT '',
	actual_hours      TEXT    NOT NULL DEFAULT '',
	labor_rate        TEXT    NOT NULL DEFAULT '',
	notes             TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_wh_year ON work_history(work_year);
CREATE INDEX IF NOT EXISTS idx_wh_batch ON work_history(batch_id);
`

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// An in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}
