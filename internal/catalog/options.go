package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"mediasort/internal/faults"
	"mediasort/internal/media"
)

func optionColumn(field media.Field) (string, error) {
	switch field {
	case media.FieldType, media.FieldCategory, media.FieldTag:
		return string(field), nil
	default:
		return "", faults.Wrap(faults.ErrValidation, "catalog", "options", fmt.Sprintf("unknown field %q", field), nil)
	}
}

// ListOptions returns the distinct non-empty values known for field, from the
// options table and from values already used by records, sorted case-insensitively.
func (s *Store) ListOptions(ctx context.Context, field media.Field) ([]string, error) {
	ctx = ensureContext(ctx)
	column, err := optionColumn(field)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM (
            SELECT `+column+` AS value FROM options
            UNION
            SELECT `+column+` AS value FROM media
        )
        WHERE value IS NOT NULL AND TRIM(value) <> ''
        ORDER BY value COLLATE NOCASE, value`)
	if err != nil {
		return nil, fmt.Errorf("list %s options: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan %s option: %w", column, err)
		}
		values = append(values, value)
	}
	return values, rows.Err()
}

// InsertOption appends value to the vocabulary for field. A duplicate is
// reported as faults.ErrConstraint.
func (s *Store) InsertOption(ctx context.Context, field media.Field, value string) error {
	ctx = ensureContext(ctx)
	column, err := optionColumn(field)
	if err != nil {
		return err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO options (`+column+`) VALUES (?)`, value)
		return err
	})
	if err != nil {
		if faults.IsConstraint(err) {
			return faults.Wrap(faults.ErrConstraint, "catalog", "insert option", fmt.Sprintf("%s %q already exists", column, value), err)
		}
		return fmt.Errorf("insert %s option: %w", column, err)
	}
	return nil
}

// BackfillEmpty writes value into every record whose field is NULL or empty
// and returns the number of rows changed.
func (s *Store) BackfillEmpty(ctx context.Context, field media.Field, value string) (int64, error) {
	ctx = ensureContext(ctx)
	column, err := optionColumn(field)
	if err != nil {
		return 0, err
	}
	var affected int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE media SET `+column+` = ? WHERE `+column+` IS NULL OR `+column+` = ''`, value)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("backfill %s: %w", column, err)
	}
	return affected, nil
}
