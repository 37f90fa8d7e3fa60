package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/kirpich/internal/hooks"
)

// AuditEntry is one recorded lifecycle event.
type AuditEntry struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditLog records gateway events. It never stores credentials, tokens or
// message bodies; callers only put identifiers and outcomes into Data.
type AuditLog struct {
	db  *DB
	now func() time.Time
}

// NewAuditLog creates an audit log using the given database.
func NewAuditLog(db *DB) *AuditLog {
	return &AuditLog{db: db, now: time.Now}
}

// Record appends one entry.
func (a *AuditLog) Record(ctx context.Context, event string, data map[string]any) (*AuditEntry, error) {
	entry := AuditEntry{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		CreatedAt: a.now().UTC(),
	}

	var raw sql.NullString
	if len(data) > 0 {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encoding audit data: %w", err)
		}
		raw = sql.NullString{String: string(b), Valid: true}
	}

	_, err := a.db.sql.ExecContext(ctx,
		`INSERT INTO audit_log (id, event, data, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Event, raw, entry.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("recording %s: %w", event, err)
	}
	return &entry, nil
}

// Recent returns up to limit entries, newest first. Limit of 0 defaults to 50.
func (a *AuditLog) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.sql.QueryContext(ctx,
		`SELECT id, event, data, created_at FROM audit_log
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var raw sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.Event, &raw, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(timeLayout, ts)
		if raw.Valid && raw.String != "" {
			_ = json.Unmarshal([]byte(raw.String), &e.Data)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than cutoff and returns how many were removed.
func (a *AuditLog) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.sql.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Attach records every hook event into the log.
func (a *AuditLog) Attach(m *hooks.Manager) {
	m.OnAll("audit", func(ctx context.Context, p hooks.Payload) error {
		_, err := a.Record(ctx, p.Event, p.Data)
		return err
	})
}
