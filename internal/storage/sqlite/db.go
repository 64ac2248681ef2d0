package sqlite

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNotFound = errors.New("not found")

// nowFunc is swapped in tests that assert on timestamps.
var nowFunc = time.Now

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers. Callers must close rows before issuing the next query.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS daily_reports (
		entry_date TEXT PRIMARY KEY,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weekly_reports (
		start_date TEXT NOT NULL,
		end_date   TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (start_date, end_date)
	);

	CREATE TABLE IF NOT EXISTS okr_reports (
		creation_date TEXT PRIMARY KEY,
		content       TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS todo_items (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		content    TEXT NOT NULL,
		completed  INTEGER NOT NULL DEFAULT 0,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT UNIQUE,
		description TEXT,
		status      TEXT NOT NULL DEFAULT 'active',
		start_date  TEXT,
		end_date    TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS work_items (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		raw_log_date      TEXT NOT NULL,
		project_id        INTEGER,
		action            TEXT,
		problem           TEXT,
		result_metric     TEXT,
		skills_tags       TEXT,
		extraction_status TEXT NOT NULL DEFAULT 'pending',
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_work_items_raw_log_date ON work_items(raw_log_date);
	CREATE INDEX IF NOT EXISTS idx_work_items_project ON work_items(project_id);

	CREATE TABLE IF NOT EXISTS skills (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT NOT NULL UNIQUE,
		category        TEXT,
		count           INTEGER NOT NULL DEFAULT 0,
		first_used_date TEXT,
		last_used_date  TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	// Migration: STAR summaries were added after the projects table shipped.
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('projects') WHERE name = 'star_summary'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE projects ADD COLUMN star_summary TEXT`)
	}

	return db, nil
}

func timestamp() string {
	return nowFunc().Format(time.RFC3339)
}

func today() string {
	return nowFunc().Format("2006-01-02")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

// affectedOrNotFound maps a zero-row UPDATE/DELETE to ErrNotFound.
func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
