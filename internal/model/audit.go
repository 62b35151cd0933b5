package model

import "time"

// AuditEntry is one immutable row in the audit trail. Every mutating
// operation appends exactly one.
type AuditEntry struct {
	ID         string
	TenantID   string
	Action     string // e.g. "journal.post", "account.create"
	EntityType string // record type the action targeted
	TargetID   string
	ActorID    string
	Timestamp  time.Time
	Details    string
}
