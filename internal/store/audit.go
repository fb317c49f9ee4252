package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/focal/internal/model"
)

func (s *Store) migrateAudit() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS audit_records (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_task_id ON audit_records(task_id);
	`)
	return err
}

// WriteAuditRecord journals a single mutation.
func (s *Store) WriteAuditRecord(action, inputsHash, outcome, taskID string) (*model.AuditRecord, error) {
	rec := &model.AuditRecord{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		CreatedAt:  time.Now().UnixMilli(),
	}
	_, err := s.db.Exec(
		`INSERT INTO audit_records (id, action, inputs_hash, outcome, task_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Action, rec.InputsHash, rec.Outcome, nullStr(rec.TaskID), rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("write audit record: %w", err)
	}
	return rec, nil
}

// ListAuditRecords returns the journal, newest first, capped at limit
// (0 means no cap).
func (s *Store) ListAuditRecords(limit int) ([]model.AuditRecord, error) {
	query := `SELECT id, action, inputs_hash, outcome, task_id, created_at FROM audit_records ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	var records []model.AuditRecord
	for rows.Next() {
		var rec model.AuditRecord
		var taskID sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.InputsHash, &rec.Outcome, &taskID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.TaskID = taskID.String
		records = append(records, rec)
	}
	return records, rows.Err()
}
