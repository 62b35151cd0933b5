// Package audit maintains the append-only audit trail. Every mutating
// operation records exactly one entry, normally inside the operation's
// own transaction.
package audit

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/database"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/id"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

const retryBuffer = 256

// Recorder appends audit entries. Failures never abort the business
// write: a failed in-transaction insert is handed to an async retry
// loop instead.
type Recorder struct {
	db  *database.DB
	log zerolog.Logger

	retry chan model.AuditEntry
	wg    sync.WaitGroup
	once  sync.Once
}

// NewRecorder creates a Recorder and starts its retry loop.
func NewRecorder(db *database.DB, log zerolog.Logger) *Recorder {
	r := &Recorder{
		db:    db,
		log:   log.With().Str("component", "audit").Logger(),
		retry: make(chan model.AuditEntry, retryBuffer),
	}
	r.wg.Add(1)
	go r.retryLoop()
	return r
}

// Close drains the retry loop.
func (r *Recorder) Close() {
	r.once.Do(func() { close(r.retry) })
	r.wg.Wait()
}

// Record writes e inside tx, filling id and timestamp. A failed insert
// is logged and queued for async retry; Record never returns an error
// because audit writes are best-effort by contract.
func (r *Recorder) Record(tx *sql.Tx, e model.AuditEntry) {
	r.fill(&e)
	if _, err := tx.Exec(insertSQL, args(e)...); err != nil {
		r.log.Warn().Err(err).Str("action", e.Action).Msg("audit write failed, queueing retry")
		r.enqueue(e)
	}
}

// RecordDirect writes e outside any transaction, for callers that have
// already committed.
func (r *Recorder) RecordDirect(e model.AuditEntry) {
	r.fill(&e)
	if _, err := r.db.Conn().Exec(insertSQL, args(e)...); err != nil {
		r.log.Warn().Err(err).Str("action", e.Action).Msg("audit write failed, queueing retry")
		r.enqueue(e)
	}
}

// List returns a tenant's audit trail, newest first.
func (r *Recorder) List(tenantID string, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Conn().Query(
		`SELECT id, tenant_id, action, entity_type, target_id, actor_id, timestamp, details
		 FROM audit_log WHERE tenant_id = ? ORDER BY timestamp DESC, id LIMIT ?`,
		tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Action, &e.EntityType,
			&e.TargetID, &e.ActorID, &ts, &e.Details); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const insertSQL = `INSERT INTO audit_log
	(id, tenant_id, action, entity_type, target_id, actor_id, timestamp, details)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func args(e model.AuditEntry) []any {
	return []any{e.ID, e.TenantID, e.Action, e.EntityType, e.TargetID,
		e.ActorID, e.Timestamp.Format(time.RFC3339Nano), e.Details}
}

func (r *Recorder) fill(e *model.AuditEntry) {
	if e.ID == "" {
		e.ID = id.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

func (r *Recorder) enqueue(e model.AuditEntry) {
	select {
	case r.retry <- e:
	default:
		r.log.Error().Str("action", e.Action).Msg("audit retry buffer full, dropping entry")
	}
}

func (r *Recorder) retryLoop() {
	defer r.wg.Done()
	for e := range r.retry {
		if _, err := r.db.Conn().Exec(insertSQL, args(e)...); err != nil {
			r.log.Error().Err(err).Str("action", e.Action).Msg("audit retry failed")
			time.Sleep(100 * time.Millisecond)
		}
	}
}
