package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// Stats aggregates record and vocabulary counts.
type Stats struct {
	Total     int
	Pending   int
	Processed int
	Deleted   int
	Skipped   int
	Decisions int64
	Options   map[media.Field]int
}

// Stats returns record counts grouped by lifecycle flag.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{Options: make(map[media.Field]int, len(media.Fields))}
	row := s.db.QueryRowContext(ctx, `SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN processed = 0 AND deleted = 0 AND skipped = 0 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN processed = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN deleted = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN skipped = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(count), 0)
        FROM media`)
	if err := row.Scan(&stats.Total, &stats.Pending, &stats.Processed, &stats.Deleted, &stats.Skipped, &stats.Decisions); err != nil {
		return Stats{}, fmt.Errorf("catalog stats: %w", err)
	}
	for _, field := range media.Fields {
		values, err := s.ListOptions(ctx, field)
		if err != nil {
			return Stats{}, err
		}
		stats.Options[field] = len(values)
	}
	return stats, nil
}

// Unreconciled returns records that never reached processed or deleted but
// whose source file is gone: a rename that succeeded without its database
// update, or a file moved by hand.
func (s *Store) Unreconciled(ctx context.Context) []media.Record {
	ctx = ensureContext(ctx)
	candidates := s.Query(ctx, Filter{Conditions: []Condition{
		{Column: "processed", Op: "=", Value: 0},
		{Column: "deleted", Op: "=", Value: 0},
	}})
	var missing []media.Record
	for _, rec := range candidates {
		_, err := os.Stat(rec.SourcePath)
		switch {
		case err == nil:
			continue
		case errors.Is(err, fs.ErrNotExist):
			missing = append(missing, rec)
		default:
			faults.Log(s.log(ctx), "stat source file", err, logging.SourcePath(rec.SourcePath))
		}
	}
	return missing
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	ColumnsPresent   []string
	MissingColumns   []string
	TotalRecords     int
	IntegrityCheck   bool
	Error            string
}

// CheckHealth returns diagnostic information about the catalog database,
// comparing the media table against the configured column statements.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat catalog database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("catalog database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping catalog database: %w", err)
	}
	health.DatabaseReadable = true

	columns, err := s.Columns(connCtx, "media")
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.ColumnsPresent = columns
	for _, stmt := range s.schema.Columns {
		table, column, err := parseColumnStatement(stmt)
		if err != nil || table != "media" {
			continue
		}
		if !containsFold(columns, column) {
			health.MissingColumns = append(health.MissingColumns, column)
		}
	}

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM media").Scan(&health.TotalRecords); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count records: %w", err)
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	return health, nil
}
