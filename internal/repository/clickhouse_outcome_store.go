package repository

import (
	"context"
	"fmt"
	"time"

	domrepo "SignalPull/internal/domain/repository"
	pkgch "SignalPull/pkg/clickhouse"
	applogger "SignalPull/pkg/logger"
)

const chOutcomeTable = "outcome_events"

// OutcomeSchema returns the idempotent DDL for the ClickHouse outcome journal.
func OutcomeSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            id          String,
            roll        UInt8,
            category    LowCardinality(String),
            occurred_at DateTime64(3, 'UTC'),
            ingested_at DateTime64(3, 'UTC') DEFAULT now64(3)
        )
        ENGINE = ReplacingMergeTree(ingested_at)
        PARTITION BY toYYYYMMDD(occurred_at)
        ORDER BY id`, database, chOutcomeTable),
	}
}

// NewCHOutcomeStore creates the journal table if needed and returns a store on it.
func NewCHOutcomeStore(ctx context.Context, ch *pkgch.Client, database string, l *applogger.Logger) (domrepo.OutcomeStore, error) {
	if err := ch.InitSchema(ctx, OutcomeSchema(database)); err != nil {
		return nil, err
	}
	table := database + "." + chOutcomeTable
	return &SQLOutcomeStore{
		db:    ch.DB(),
		table: table,
		l:     l,
		d: dialect{
			name:   "clickhouse",
			insert: "INSERT INTO",
			// ReplacingMergeTree dedupes on merge; FINAL folds pending duplicates.
			from:      table + " FINAL",
			timeArg:   func(t time.Time) any { return t.UTC() },
			scanTime:  scanTimeValue,
			chunkSize: 2000,
		},
	}, nil
}

func scanTimeValue(src any) (time.Time, error) {
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time value %T", src)
	}
}
