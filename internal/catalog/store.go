package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"mediasort/internal/config"
	"mediasort/internal/faults"
	"mediasort/internal/logging"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db        *sql.DB
	path      string
	schema    config.Schema
	migration MigrationReport
	logger    *slog.Logger
	closeMu   sync.Mutex
	closed    bool
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !faults.IsBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// withTx runs fn inside its own transaction, retrying the whole unit while
// SQLite reports lock contention.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return faults.Wrap(faults.ErrConnection, "catalog", "begin", "", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// Open initializes or connects to the catalog database and ensures its schema.
// A schema that cannot be established is returned as an error; callers treat
// it as fatal.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	dbPath := cfg.Paths.DatabasePath
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, faults.Wrap(faults.ErrConnection, "catalog", "open", "create database directory", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, faults.Wrap(faults.ErrConnection, "catalog", "open", dbPath, err)
	}
	// Single writer: one pooled connection serializes every call.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, faults.Wrap(faults.ErrConnection, "catalog", "open", fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		schema: cfg.Schema,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
	report, err := store.EnsureSchema(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	store.migration = report

	return store, nil
}

// Migration returns the schema report produced when the store was opened.
func (s *Store) Migration() MigrationReport {
	return s.migration
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection. Calling it more than once is harmless.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, s.logger)
}
