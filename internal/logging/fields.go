package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the correlation identifier shared by every line of one run.
	FieldRunID = "run_id"
	// FieldRecordID is the catalog row key of the record being handled.
	FieldRecordID = "record_id"
	// FieldSourcePath is the source file currently being classified.
	FieldSourcePath = "source_path"
	// FieldEventType names the kind of event for warnings and errors.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries the fault classification of an error.
	FieldErrorKind = "error_kind"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType = "decision_type"
)
