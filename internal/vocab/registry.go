package vocab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"

	"mediasort/internal/config"
	"mediasort/internal/faults"
	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// Field aliases the record attribute a vocabulary belongs to.
type Field = media.Field

var (
	// ErrInvalid marks a value rejected by Validate.
	ErrInvalid = fmt.Errorf("%w: invalid vocabulary value", faults.ErrValidation)
	// ErrDuplicate marks a value already present in the vocabulary.
	ErrDuplicate = fmt.Errorf("%w: vocabulary value already exists", faults.ErrConstraint)
)

// Store is the persistence the registry needs.
type Store interface {
	ListOptions(ctx context.Context, field media.Field) ([]string, error)
	InsertOption(ctx context.Context, field media.Field, value string) error
	BackfillEmpty(ctx context.Context, field media.Field, value string) (int64, error)
}

// Added describes a successful Add.
type Added struct {
	Field      Field
	Value      string
	Backfilled int64
}

// Registry lists, validates, and appends vocabulary values.
type Registry struct {
	store    Store
	backfill string
	cache    *lru.Cache[Field, []string]
	logger   *slog.Logger
}

// New constructs a Registry backed by store.
func New(store Store, cfg config.Vocabulary, logger *slog.Logger) (*Registry, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = len(media.Fields)
	}
	cache, err := lru.New[Field, []string](size)
	if err != nil {
		return nil, fmt.Errorf("vocabulary cache: %w", err)
	}
	backfill := cfg.Backfill
	if backfill == "" {
		backfill = config.BackfillRecord
	}
	return &Registry{
		store:    store,
		backfill: backfill,
		cache:    cache,
		logger:   logging.NewComponentLogger(logger, "vocab"),
	}, nil
}

// ParseField maps a user-supplied field name onto a Field.
func ParseField(value string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(value))) {
	case media.FieldType:
		return media.FieldType, nil
	case media.FieldCategory:
		return media.FieldCategory, nil
	case media.FieldTag:
		return media.FieldTag, nil
	default:
		return "", fmt.Errorf("%w: unknown field %q (want type, category or tag)", faults.ErrValidation, value)
	}
}

// Validate reports whether candidate may become a vocabulary value: non-empty
// after trimming and free of '/', '\' and ','.
func Validate(candidate string) bool {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return false
	}
	return !strings.ContainsAny(trimmed, `/\,`)
}

// fold returns the case-folded form of s. Casers carry state, so each call
// builds its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Policy returns the configured backfill policy.
func (r *Registry) Policy() string {
	return r.backfill
}

// List returns the ordered values for field. Failures are logged and yield an
// empty list.
func (r *Registry) List(ctx context.Context, field Field) []string {
	if cached, ok := r.cache.Get(field); ok {
		return append([]string(nil), cached...)
	}
	values, err := r.store.ListOptions(ctx, field)
	if err != nil {
		faults.Log(logging.WithContext(ctx, r.logger), "list "+string(field)+" options", err)
		return []string{}
	}
	r.cache.Add(field, values)
	return append([]string(nil), values...)
}

// Lookup finds the stored spelling of value, ignoring case.
func (r *Registry) Lookup(ctx context.Context, field Field, value string) (string, bool) {
	want := fold(strings.TrimSpace(value))
	if want == "" {
		return "", false
	}
	for _, existing := range r.List(ctx, field) {
		if fold(existing) == want {
			return existing, true
		}
	}
	return "", false
}

// Add validates value and appends it to field's vocabulary, then applies the
// backfill policy.
func (r *Registry) Add(ctx context.Context, field Field, value string) (Added, error) {
	if _, err := ParseField(string(field)); err != nil {
		return Added{}, err
	}
	value = strings.TrimSpace(value)
	if !Validate(value) {
		return Added{}, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	if existing, ok := r.Lookup(ctx, field, value); ok {
		return Added{}, fmt.Errorf("%w: %s %q", ErrDuplicate, field, existing)
	}

	if err := r.store.InsertOption(ctx, field, value); err != nil {
		r.cache.Remove(field)
		if errors.Is(err, faults.ErrConstraint) {
			return Added{}, fmt.Errorf("%w: %s %q", ErrDuplicate, field, value)
		}
		return Added{}, err
	}
	r.cache.Remove(field)

	added := Added{Field: field, Value: value}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("vocabulary value added",
		logging.String("field", string(field)),
		logging.String("value", value),
	)

	if r.backfill == config.BackfillLegacy {
		n, err := r.store.BackfillEmpty(ctx, field, value)
		if err != nil {
			faults.Log(logger, "backfill "+string(field), err)
			return added, nil
		}
		added.Backfilled = n
		if n > 0 {
			logging.WarnWithContext(logger, "vocabulary backfill updated historical records", "vocabulary_backfill",
				logging.String("field", string(field)),
				logging.String("value", value),
				logging.Int64("records_updated", n),
				logging.String(logging.FieldImpact, "records with an empty "+string(field)+" now carry this value"),
				logging.String(logging.FieldErrorHint, "set vocabulary.backfill = \"record\" to limit new values to the current file"),
			)
		}
	}
	return added, nil
}
