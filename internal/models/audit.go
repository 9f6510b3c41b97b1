package models

import "time"

// Audit event kinds recorded for every workflow transition.
const (
	AuditActionRequestCreate   = "REQUEST_CREATE"
	AuditActionRequestSubmit   = "REQUEST_SUBMIT"
	AuditActionRequestValidate = "REQUEST_VALIDATE"
	AuditActionRequestApprove  = "REQUEST_APPROVE"
	AuditActionRequestReject   = "REQUEST_REJECT"
	AuditActionRequestRecall   = "REQUEST_RECALL"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	ActorID   *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	RequestID *string   `db:"request_id" json:"request_id,omitempty"`
	Details   []byte    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
