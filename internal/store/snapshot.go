package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/soyeahso/kirpich/internal/domain"
)

// ChatSnapshotStore keeps the last chat list the backend returned so a
// restarted client can show it while the backend is unreachable.
type ChatSnapshotStore struct {
	db *DB
}

// NewChatSnapshotStore creates a snapshot store using the given database.
func NewChatSnapshotStore(db *DB) *ChatSnapshotStore {
	return &ChatSnapshotStore{db: db}
}

// Save replaces the stored snapshot with chats in a single transaction.
func (s *ChatSnapshotStore) Save(ctx context.Context, chats []domain.ChatSummary) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_snapshot`); err != nil {
		return fmt.Errorf("clearing snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chat_snapshot (position, id, title, last_message, unread_count)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chats {
		var last sql.NullString
		if c.LastMessage != nil {
			last = sql.NullString{String: *c.LastMessage, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, c.ID, c.Title, last, max(c.UnreadCount, 0)); err != nil {
			return fmt.Errorf("saving chat %s: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chat_snapshot_info (singleton, saved_at) VALUES (1, ?)
		 ON CONFLICT(singleton) DO UPDATE SET saved_at = excluded.saved_at`,
		time.Now().UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("stamping snapshot: %w", err)
	}

	return tx.Commit()
}

// Load returns the stored snapshot in its saved order and when it was
// saved. ok is false when no snapshot has ever been saved, which is
// distinct from a saved empty list.
func (s *ChatSnapshotStore) Load(ctx context.Context) (chats []domain.ChatSummary, savedAt time.Time, ok bool, err error) {
	var stamp string
	err = s.db.sql.QueryRowContext(ctx, `SELECT saved_at FROM chat_snapshot_info WHERE singleton = 1`).Scan(&stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading snapshot stamp: %w", err)
	}
	savedAt, _ = time.Parse(timeLayout, stamp)

	rows, err := s.db.sql.QueryContext(ctx,
		`SELECT id, title, last_message, unread_count FROM chat_snapshot ORDER BY position`)
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading snapshot: %w", err)
	}
	defer rows.Close()

	chats = []domain.ChatSummary{}
	for rows.Next() {
		var c domain.ChatSummary
		var last sql.NullString
		if err := rows.Scan(&c.ID, &c.Title, &last, &c.UnreadCount); err != nil {
			return nil, time.Time{}, false, fmt.Errorf("scanning snapshot row: %w", err)
		}
		if last.Valid {
			c.LastMessage = lo.ToPtr(last.String)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("reading snapshot: %w", err)
	}
	return chats, savedAt, true, nil
}

// Clear removes the snapshot so that Load reports none.
func (s *ChatSnapshotStore) Clear(ctx context.Context) error {
	tx, err := s.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot clear: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM chat_snapshot`, `DELETE FROM chat_snapshot_info`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}
	}
	return tx.Commit()
}
