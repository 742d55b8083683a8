package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

const recordColumns = "id, fileId, sourceFilePath, sourceFileName, type, category, tag, rating, fileRes, fileSize, destFilePath, destFileName, deleted, skipped, processed, count"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (media.Record, error) {
	var (
		id         int64
		fileID     sql.NullInt64
		sourcePath string
		sourceName sql.NullString
		typ        sql.NullString
		category   sql.NullString
		tag        sql.NullString
		rating     sql.NullInt64
		fileRes    sql.NullString
		fileSize   sql.NullInt64
		destPath   sql.NullString
		destName   sql.NullString
		deleted    sql.NullInt64
		skipped    sql.NullInt64
		processed  sql.NullInt64
		count      sql.NullInt64
	)
	if err := scanner.Scan(
		&id, &fileID, &sourcePath, &sourceName,
		&typ, &category, &tag, &rating,
		&fileRes, &fileSize, &destPath, &destName,
		&deleted, &skipped, &processed, &count,
	); err != nil {
		return media.Record{}, err
	}
	return media.Record{
		ID:         id,
		FileID:     fileID.Int64,
		SourcePath: sourcePath,
		SourceName: sourceName.String,
		Type:       typ.String,
		Category:   category.String,
		Tag:        tag.String,
		Rating:     int(rating.Int64),
		Resolution: fileRes.String,
		Size:       fileSize.Int64,
		DestPath:   destPath.String,
		DestName:   destName.String,
		Deleted:    deleted.Int64 != 0,
		Skipped:    skipped.Int64 != 0,
		Processed:  processed.Int64 != 0,
		Count:      count.Int64,
	}, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRecord(ctx context.Context, q queryRower, sourcePath string) (media.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM media WHERE sourceFilePath = ?`, sourcePath)
	return scanRecord(row)
}

// errTerminal marks a write refused because the row already reached a terminal state.
var errTerminal = errors.New("record already processed or deleted")

// Exists reports whether a record for sourcePath is stored.
func (s *Store) Exists(ctx context.Context, sourcePath string) bool {
	ctx = ensureContext(ctx)
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM media WHERE sourceFilePath = ? LIMIT 1`, sourcePath).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	if err != nil {
		faults.Log(s.log(ctx), "check record exists", err, logging.SourcePath(sourcePath))
		return false
	}
	return true
}

// Get returns the stored record for sourcePath.
func (s *Store) Get(ctx context.Context, sourcePath string) (media.Record, bool) {
	ctx = ensureContext(ctx)
	rec, err := getRecord(ctx, s.db, sourcePath)
	if errors.Is(err, sql.ErrNoRows) {
		return media.Record{}, false
	}
	if err != nil {
		faults.Log(s.log(ctx), "get record", err, logging.SourcePath(sourcePath))
		return media.Record{}, false
	}
	return rec, true
}

// InsertStub registers rec with identity and derived metadata and a zeroed
// lifecycle. It returns false when a row for the path already exists or the
// insert fails; the caller must not relocate a file it could not register.
func (s *Store) InsertStub(ctx context.Context, rec media.Record) (media.Record, bool) {
	ctx = ensureContext(ctx)
	var stored media.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM media WHERE sourceFilePath = ? LIMIT 1`, rec.SourcePath).Scan(&one)
		if err == nil {
			return faults.Wrap(faults.ErrConstraint, "catalog", "insert stub", "record already exists", nil)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO media (
                fileId, sourceFilePath, sourceFileName, fileRes, fileSize,
                count, rating, deleted, skipped, processed
            ) VALUES (?, ?, ?, ?, ?, 0, 0, 0, 0, 0)`,
			rec.FileID, rec.SourcePath, rec.SourceName, rec.Resolution, rec.Size,
		); err != nil {
			return err
		}
		stored, err = getRecord(ctx, tx, rec.SourcePath)
		return err
	})
	if err != nil {
		faults.Log(s.log(ctx), "insert stub", err, logging.SourcePath(rec.SourcePath))
		return rec, false
	}
	return stored, true
}

// UpdateDestination writes only the destination columns. It is independent of
// CommitFinal so reconciliation can repeat it without resending taxonomy.
func (s *Store) UpdateDestination(ctx context.Context, rec media.Record, dir, name string) bool {
	ctx = ensureContext(ctx)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE media SET destFilePath = ?, destFileName = ? WHERE sourceFilePath = ?`,
			dir, name, rec.SourcePath,
		)
		if err != nil {
			return err
		}
		return expectOneRow(res)
	})
	if err != nil {
		faults.Log(s.log(ctx), "update destination", err, logging.SourcePath(rec.SourcePath))
		return false
	}
	return true
}

// CommitFinal is the terminal write for a relocated file: taxonomy, rating,
// derived metadata, destination, processed=1 and count+1 in one transaction.
// It refuses rows already processed or deleted and returns the committed row.
func (s *Store) CommitFinal(ctx context.Context, rec media.Record, dir, name string) (media.Record, bool) {
	ctx = ensureContext(ctx)
	var committed media.Record
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE media SET
                destFileName = ?,
                destFilePath = ?,
                category = ?,
                tag = ?,
                type = ?,
                rating = ?,
                fileRes = ?,
                fileSize = ?,
                processed = 1,
                skipped = 0,
                count = count + 1
            WHERE sourceFilePath = ? AND processed = 0 AND deleted = 0`,
			name, dir,
			rec.Category, rec.Tag, rec.Type, media.ClampRating(rec.Rating),
			rec.Resolution, rec.Size,
			rec.SourcePath,
		)
		if err != nil {
			return err
		}
		if err := s.expectMutable(ctx, tx, res, rec.SourcePath); err != nil {
			return err
		}
		committed, err = getRecord(ctx, tx, rec.SourcePath)
		return err
	})
	if err != nil {
		faults.Log(s.log(ctx), "commit final", err, logging.SourcePath(rec.SourcePath))
		return rec, false
	}
	return committed, true
}

// MarkDeleted flags the record deleted. Processed or already deleted rows are refused.
func (s *Store) MarkDeleted(ctx context.Context, rec media.Record) bool {
	return s.markTerminal(ctx, rec, "mark deleted",
		`UPDATE media SET deleted = 1, skipped = 0 WHERE sourceFilePath = ? AND processed = 0 AND deleted = 0`)
}

// MarkSkipped flags the record skipped. Processed or deleted rows are refused.
func (s *Store) MarkSkipped(ctx context.Context, rec media.Record) bool {
	return s.markTerminal(ctx, rec, "mark skipped",
		`UPDATE media SET skipped = 1 WHERE sourceFilePath = ? AND processed = 0 AND deleted = 0`)
}

func (s *Store) markTerminal(ctx context.Context, rec media.Record, op, stmt string) bool {
	ctx = ensureContext(ctx)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, stmt, rec.SourcePath)
		if err != nil {
			return err
		}
		return s.expectMutable(ctx, tx, res, rec.SourcePath)
	})
	if err != nil {
		faults.Log(s.log(ctx), op, err, logging.SourcePath(rec.SourcePath))
		return false
	}
	return true
}

// IncrementCount adds one to the record's decision counter.
func (s *Store) IncrementCount(ctx context.Context, rec media.Record) {
	ctx = ensureContext(ctx)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE media SET count = count + 1 WHERE sourceFilePath = ?`, rec.SourcePath)
		if err != nil {
			return err
		}
		return expectOneRow(res)
	})
	if err != nil {
		faults.Log(s.log(ctx), "increment count", err, logging.SourcePath(rec.SourcePath))
	}
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return faults.Wrap(faults.ErrConstraint, "catalog", "update", fmt.Sprintf("expected 1 row, matched %d", n), nil)
	}
	return nil
}

// expectMutable distinguishes a missing row from one the terminal guard refused.
func (s *Store) expectMutable(ctx context.Context, tx *sql.Tx, res sql.Result, sourcePath string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM media WHERE sourceFilePath = ?`, sourcePath).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return faults.Wrap(faults.ErrConstraint, "catalog", "update", "no record for source path", nil)
	}
	if err != nil {
		return err
	}
	return faults.Wrap(faults.ErrConstraint, "catalog", "update", "refused", errTerminal)
}
