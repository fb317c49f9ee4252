// Package store provides SQLite-backed persistence for Focal.
//
// The store owns every mutation of the task forest: structural rules
// like cycle and depth checks live here, so the scoring engine can
// trust the snapshots it is handed.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fentz26/focal/internal/model"
)

// MaxTreeDepth is the deepest nesting the store accepts.
const MaxTreeDepth = 20

// Store provides access to the Focal SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		sibling_rank INTEGER NOT NULL DEFAULT 0,
		place_id TEXT,
		status TEXT NOT NULL DEFAULT 'Pending',
		importance REAL NOT NULL DEFAULT 0.5,
		credit_increment REAL,
		credits REAL NOT NULL DEFAULT 0,
		desired_credits REAL NOT NULL DEFAULT 1,
		credits_timestamp INTEGER NOT NULL DEFAULT 0,
		schedule_type TEXT NOT NULL DEFAULT 'Once',
		due_date INTEGER,
		lead_time INTEGER NOT NULL DEFAULT 0,
		last_done INTEGER,
		repeat_config TEXT,
		is_sequential INTEGER NOT NULL DEFAULT 0,
		is_acknowledged INTEGER NOT NULL DEFAULT 0,
		last_completed_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS places (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hours TEXT NOT NULL,
		included_places TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_parent_id ON tasks(parent_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_place_id ON tasks(place_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	if err := s.migrateAudit(); err != nil {
		return err
	}

	// The Anywhere place always exists and is always open.
	hours := model.OpenHours{Mode: model.HoursAlwaysOpen}.String()
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO places (id, name, hours, included_places, created_at) VALUES (?, ?, ?, '[]', ?)`,
		model.AnywherePlaceID, model.AnywherePlaceID, hours, time.Now().UnixMilli(),
	)
	return err
}

// Snapshot loads the full task forest and all places into memory for
// scoring. Open hours are parsed here, so malformed rows fail fast with
// the offending place named instead of surfacing mid-calculation.
func (s *Store) Snapshot() (*model.Snapshot, error) {
	snap := &model.Snapshot{
		Tasks:  make(map[string]*model.Task),
		Places: make(map[string]*model.Place),
	}

	places, err := s.ListPlaces()
	if err != nil {
		return nil, err
	}
	for i := range places {
		snap.Places[places[i].ID] = &places[i]
	}

	rows, err := s.db.Query(taskColumns + ` FROM tasks ORDER BY sibling_rank, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	orderedIDs := make([]string, 0, 64)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		snap.Tasks[task.ID] = task
		orderedIDs = append(orderedIDs, task.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	// Child lists follow the sibling rank the query already applied.
	for _, id := range orderedIDs {
		t := snap.Tasks[id]
		if t.ParentID == "" {
			snap.RootTaskIDs = append(snap.RootTaskIDs, id)
		} else if parent, ok := snap.Tasks[t.ParentID]; ok {
			parent.ChildTaskIDs = append(parent.ChildTaskIDs, id)
		}
	}

	return snap, nil
}

// repeatJSON round-trips the optional repeat configuration as a JSON
// column.
func repeatJSON(rc *model.RepeatConfig) (sql.NullString, error) {
	if rc == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(rc)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal repeat config: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func parseRepeat(raw sql.NullString) (*model.RepeatConfig, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var rc model.RepeatConfig
	if err := json.Unmarshal([]byte(raw.String), &rc); err != nil {
		return nil, fmt.Errorf("parse repeat config: %w", err)
	}
	return &rc, nil
}
