package store

type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations must stay ordered by Version.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create chat snapshot",
		SQL: `
			CREATE TABLE chat_snapshot (
				position      INTEGER PRIMARY KEY,
				id            TEXT NOT NULL UNIQUE,
				title         TEXT NOT NULL,
				last_message  TEXT,
				unread_count  INTEGER NOT NULL DEFAULT 0 CHECK (unread_count >= 0)
			);

			CREATE TABLE chat_snapshot_info (
				singleton  INTEGER PRIMARY KEY CHECK (singleton = 1),
				saved_at   TEXT NOT NULL
			);
		`,
	},
	{
		Version: 2,
		Name:    "create audit log",
		SQL: `
			CREATE TABLE audit_log (
				id          TEXT PRIMARY KEY,
				event       TEXT NOT NULL,
				data        TEXT,
				created_at  TEXT NOT NULL
			);

			CREATE INDEX idx_audit_created ON audit_log (created_at);
			CREATE INDEX idx_audit_event ON audit_log (event, created_at);
		`,
	},
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
