package faults

import (
	"log/slog"

	"mediasort/internal/logging"
)

// Log reports err under op with its classification and returns the kind. It
// never panics and accepts a nil logger.
func Log(logger *slog.Logger, op string, err error, attrs ...logging.Attr) Kind {
	kind := Classify(err)
	if err == nil || logger == nil {
		return kind
	}
	attrs = append(attrs,
		logging.String("operation", op),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.Error(err),
	)
	switch kind {
	case KindValidation, KindProbe:
		logging.WarnWithContext(logger, op+" failed", "operation_failed", append(attrs,
			logging.String(logging.FieldErrorHint, hint(kind)),
			logging.String(logging.FieldImpact, "value rejected; processing continues"),
		)...)
	default:
		logging.ErrorWithContext(logger, op+" failed", "operation_failed", append(attrs,
			logging.String(logging.FieldErrorHint, hint(kind)),
		)...)
	}
	return kind
}

func hint(kind Kind) string {
	switch kind {
	case KindConnection:
		return "check that the catalog database exists, is writable, and is not held by another process"
	case KindConstraint:
		return "the row or value already exists or a parameter was rejected by the schema"
	case KindFilesystem:
		return "check permissions and free space on the source and destination directories"
	case KindValidation:
		return "re-enter the value without path separators or commas"
	case KindProbe:
		return "check that ffprobe is installed and the file is a readable video"
	default:
		return "check logs for details"
	}
}
