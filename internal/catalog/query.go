package catalog

import (
	"context"
	"fmt"
	"strings"

	"mediasort/internal/faults"
	"mediasort/internal/media"
)

// Status selects records by lifecycle flag.
type Status string

const (
	StatusAny       Status = ""
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusDeleted   Status = "deleted"
	StatusSkipped   Status = "skipped"
)

// Condition compares one whitelisted column against a bound value.
type Condition struct {
	Column string
	Op     string
	Value  any
}

// Filter describes a read-only record query. Values are always bound as
// parameters; column names and operators must come from fixed whitelists.
type Filter struct {
	Status     Status
	Type       string
	Category   string
	Tag        string
	MinRating  int
	Conditions []Condition
	Limit      int
}

var filterColumns = map[string]struct{}{
	"id": {}, "fileId": {}, "sourceFilePath": {}, "sourceFileName": {},
	"type": {}, "category": {}, "tag": {}, "rating": {},
	"fileRes": {}, "fileSize": {}, "destFilePath": {}, "destFileName": {},
	"deleted": {}, "skipped": {}, "processed": {}, "count": {},
}

var filterOps = map[string]struct{}{
	"=": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {}, "LIKE": {},
}

func (f Filter) conditions() ([]Condition, error) {
	conds := make([]Condition, 0, len(f.Conditions)+5)
	switch f.Status {
	case StatusAny:
	case StatusPending:
		conds = append(conds,
			Condition{"processed", "=", 0},
			Condition{"deleted", "=", 0},
			Condition{"skipped", "=", 0})
	case StatusProcessed:
		conds = append(conds, Condition{"processed", "=", 1})
	case StatusDeleted:
		conds = append(conds, Condition{"deleted", "=", 1})
	case StatusSkipped:
		conds = append(conds, Condition{"skipped", "=", 1})
	default:
		return nil, fmt.Errorf("unknown status %q", f.Status)
	}
	if f.Type != "" {
		conds = append(conds, Condition{"type", "=", f.Type})
	}
	if f.Category != "" {
		conds = append(conds, Condition{"category", "=", f.Category})
	}
	if f.Tag != "" {
		conds = append(conds, Condition{"tag", "=", f.Tag})
	}
	if f.MinRating > 0 {
		conds = append(conds, Condition{"rating", ">=", f.MinRating})
	}
	return append(conds, f.Conditions...), nil
}

// build renders the SELECT for f. Only whitelisted identifiers reach the SQL text.
func (f Filter) build() (string, []any, error) {
	conds, err := f.conditions()
	if err != nil {
		return "", nil, err
	}
	var (
		clauses []string
		args    []any
	)
	for _, c := range conds {
		if _, ok := filterColumns[c.Column]; !ok {
			return "", nil, fmt.Errorf("column %q cannot be filtered", c.Column)
		}
		op := strings.ToUpper(strings.TrimSpace(c.Op))
		if _, ok := filterOps[op]; !ok {
			return "", nil, fmt.Errorf("operator %q is not supported", c.Op)
		}
		clauses = append(clauses, c.Column+" "+op+" ?")
		args = append(args, c.Value)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + recordColumns + " FROM media")
	if len(clauses) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}
	sb.WriteString(" ORDER BY id")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, f.Limit)
	}
	return sb.String(), args, nil
}

// Query returns the records matching f, or an empty slice on any failure.
func (s *Store) Query(ctx context.Context, f Filter) []media.Record {
	ctx = ensureContext(ctx)
	query, args, err := f.build()
	if err != nil {
		faults.Log(s.log(ctx), "query records", faults.Wrap(faults.ErrValidation, "catalog", "query", "", err))
		return []media.Record{}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		faults.Log(s.log(ctx), "query records", err)
		return []media.Record{}
	}
	defer rows.Close()

	records := []media.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			faults.Log(s.log(ctx), "scan record", err)
			return []media.Record{}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		faults.Log(s.log(ctx), "iterate records", err)
		return []media.Record{}
	}
	return records
}
