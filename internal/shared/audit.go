package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents an append-only record stored in audit_log. Entries are
// never mutated or deleted by request handling; retention is a background job.
type AuditEntry struct {
	Actor  string
	Action string
	Detail string
	Meta   map[string]any
	At     time.Time
}

// AuditLogger writes records into audit_log.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry. Callers treat failures as best-effort: a
// successful mutation is never rolled back because auditing failed.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Actor == "" || entry.Action == "" {
		return errors.New("audit entry requires actor and action")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	var at any
	if !entry.At.IsZero() {
		at = entry.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_log (actor, action, detail, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`,
		entry.Actor, entry.Action, entry.Detail, metaJSON, at)
	return err
}
