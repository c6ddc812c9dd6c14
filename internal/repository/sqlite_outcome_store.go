package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	domrepo "SignalPull/internal/domain/repository"
	applogger "SignalPull/pkg/logger"
)

const sqliteOutcomeSchema = `
CREATE TABLE IF NOT EXISTS outcome_events (
    id          TEXT PRIMARY KEY,
    roll        INTEGER NOT NULL,
    category    TEXT NOT NULL,
    occurred_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcome_events_occurred_at ON outcome_events (occurred_at DESC);
`

// NewSQLiteOutcomeStore opens (or creates) a local journal at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteOutcomeStore(ctx context.Context, path string, l *applogger.Logger) (domrepo.OutcomeStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// One writer; also keeps a :memory: database on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteOutcomeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &SQLOutcomeStore{
		db:    db,
		table: "outcome_events",
		l:     l,
		owned: true,
		d: dialect{
			name:      "sqlite",
			insert:    "INSERT OR IGNORE INTO",
			from:      "outcome_events",
			timeArg:   func(t time.Time) any { return t.UnixMilli() },
			scanTime:  scanTimeValue,
			chunkSize: 200, // 4 params per row, under SQLite's variable limit
		},
	}, nil
}
