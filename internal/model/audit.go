package model

// AuditRecord is one journaled mutation. InputsHash is a SHA-256 over the
// request payload, so records stay small while remaining comparable.
type AuditRecord struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	InputsHash string `json:"inputsHash"`
	Outcome    string `json:"outcome"`
	TaskID     string `json:"taskId,omitempty"`
	CreatedAt  int64  `json:"createdAt"`
}
