package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"SignalPull/internal/domain/models"
	applogger "SignalPull/pkg/logger"
)

// dialect carries what differs between SQL backends of the outcome journal.
type dialect struct {
	name      string
	insert    string // statement prefix, may ignore duplicates
	from      string // table reference used by reads
	timeArg   func(time.Time) any
	scanTime  func(src any) (time.Time, error)
	chunkSize int
}

// SQLOutcomeStore implements OutcomeStore over database/sql.
type SQLOutcomeStore struct {
	db    *sql.DB
	table string
	d     dialect
	l     *applogger.Logger
	owned bool // close db on Close
}

func (s *SQLOutcomeStore) StoreBatch(ctx context.Context, events []models.OutcomeEvent) error {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	for lo := 0; lo < len(events); lo += s.d.chunkSize {
		hi := min(lo+s.d.chunkSize, len(events))

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*4)
		for _, e := range events[lo:hi] {
			if e.ID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, e.ID, e.Roll, string(e.Category), s.d.timeArg(e.OccurredAt))
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("%s %s (id, roll, category, occurred_at) VALUES %s", s.d.insert, s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error(s.d.name+" store_batch error", applogger.Int("rows", len(values)), applogger.Error(err))
			return fmt.Errorf("store outcomes: %w", err)
		}
	}
	s.l.Debug(s.d.name+" store_batch ok",
		applogger.Int("rows", len(events)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Recent returns the newest journalled outcomes, newest first.
func (s *SQLOutcomeStore) Recent(ctx context.Context, limit int) ([]models.OutcomeEvent, error) {
	q := fmt.Sprintf("SELECT id, roll, category, occurred_at FROM %s ORDER BY occurred_at DESC, id DESC LIMIT ?", s.d.from)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]models.OutcomeEvent, 0, limit)
	for rows.Next() {
		var (
			e   models.OutcomeEvent
			cat string
			ts  any
		)
		if err := rows.Scan(&e.ID, &e.Roll, &cat, &ts); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.Category = models.Category(cat)
		if e.OccurredAt, err = s.d.scanTime(ts); err != nil {
			return nil, fmt.Errorf("scan outcome time: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLOutcomeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLOutcomeStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil // Managed by pkg
}
