package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
)

// MigrationReport summarizes one EnsureSchema pass. Each entry is "<table>.<column>".
type MigrationReport struct {
	Added   []string
	Present []string
	Failed  []string
}

// Complete reports whether every configured column exists.
func (r MigrationReport) Complete() bool {
	return len(r.Failed) == 0
}

var alterColumnPattern = regexp.MustCompile(`(?i)^\s*ALTER\s+TABLE\s+"?(\w+)"?\s+ADD\s+(?:COLUMN\s+)?"?(\w+)"?`)

// parseColumnStatement extracts the table and column an ALTER TABLE ... ADD
// COLUMN statement targets.
func parseColumnStatement(stmt string) (table, column string, err error) {
	m := alterColumnPattern.FindStringSubmatch(stmt)
	if m == nil {
		return "", "", fmt.Errorf("not an ALTER TABLE ... ADD COLUMN statement: %q", stmt)
	}
	return m[1], m[2], nil
}

// EnsureSchema creates the configured tables and adds every configured column
// that is missing, in order. It is safe to run on every startup. A table that
// cannot be created is returned as an error; a column that cannot be probed or
// added is logged, listed in the report, and otherwise tolerated.
func (s *Store) EnsureSchema(ctx context.Context) (MigrationReport, error) {
	ctx = ensureContext(ctx)
	logger := s.log(ctx)
	var report MigrationReport

	for _, ddl := range s.schema.Tables {
		if err := retryOnBusy(ctx, func() error {
			_, err := s.db.ExecContext(ctx, ddl)
			return err
		}); err != nil {
			return report, faults.Wrap(faults.ErrConnection, "catalog", "create table", firstLine(ddl), err)
		}
	}

	if err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
            version TEXT PRIMARY KEY,
            applied_at TEXT NOT NULL
        )`)
		return err
	}); err != nil {
		return report, faults.Wrap(faults.ErrConnection, "catalog", "create schema_migrations", "", err)
	}

	for _, stmt := range s.schema.Columns {
		table, column, err := parseColumnStatement(stmt)
		if err != nil {
			faults.Log(logger, "parse column statement", faults.Wrap(faults.ErrValidation, "catalog", "migrate", "", err))
			report.Failed = append(report.Failed, stmt)
			continue
		}
		version := table + "." + column

		existing, err := s.Columns(ctx, table)
		if err != nil {
			faults.Log(logger, "probe column", err, logging.String("column", version))
			report.Failed = append(report.Failed, version)
			continue
		}
		if containsFold(existing, column) {
			if err := s.recordMigration(ctx, nil, version); err != nil {
				faults.Log(logger, "record migration", err, logging.String("column", version))
			}
			report.Present = append(report.Present, version)
			continue
		}

		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			return s.recordMigration(ctx, tx, version)
		})
		if err != nil {
			faults.Log(logger, "add column", err, logging.String("column", version))
			report.Failed = append(report.Failed, version)
			continue
		}
		logger.Info("column added", logging.String("column", version))
		report.Added = append(report.Added, version)
	}

	if !report.Complete() {
		logging.WarnWithContext(logger, "not all columns were added", "schema_incomplete",
			logging.Int("failed_columns", len(report.Failed)),
			logging.String("failed", strings.Join(report.Failed, ", ")),
			logging.String(logging.FieldErrorHint, "run 'mediasort migrate' after fixing the column statements in [schema]"),
			logging.String(logging.FieldImpact, "writes touching the missing columns will fail"),
		)
	}
	return report, nil
}

func (s *Store) recordMigration(ctx context.Context, tx *sql.Tx, version string) error {
	const stmt = `INSERT OR IGNORE INTO schema_migrations (version, applied_at) VALUES (?, ?)`
	now := time.Now().UTC().Format(time.RFC3339)
	if tx != nil {
		_, err := tx.ExecContext(ctx, stmt, version, now)
		return err
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, stmt, version, now)
		return err
	})
}

// Columns lists the columns of table in declaration order.
func (s *Store) Columns(ctx context.Context, table string) ([]string, error) {
	if !identifierPattern.MatchString(table) {
		return nil, faults.Wrap(faults.ErrValidation, "catalog", "table info", fmt.Sprintf("invalid table name %q", table), nil)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table info %s: table does not exist", table)
	}
	return columns, nil
}

// AppliedMigrations returns the recorded column versions in application order.
func (s *Store) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT version FROM schema_migrations ORDER BY applied_at, version`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()
	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

var identifierPattern = regexp.MustCompile(`^\w+$`)

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
