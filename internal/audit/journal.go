// Package audit journals state-mutating actions for the Focal server.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/focal/internal/model"
	"github.com/fentz26/focal/internal/store"
)

// Journal records mutations in the store's audit table.
type Journal struct {
	store *store.Store
}

// NewJournal creates a journal backed by the given store.
func NewJournal(s *store.Store) *Journal {
	return &Journal{store: s}
}

// Record writes one journal entry. Inputs are hashed, not stored, so the
// journal never retains task content.
func (j *Journal) Record(action string, inputs any, outcome, taskID string) (*model.AuditRecord, error) {
	return j.store.WriteAuditRecord(action, hashInputs(inputs), outcome, taskID)
}

// Recent returns the newest entries, capped at limit (0 means all).
func (j *Journal) Recent(limit int) ([]model.AuditRecord, error) {
	return j.store.ListAuditRecords(limit)
}

func hashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
