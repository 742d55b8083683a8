// Package catalog persists media records and controlled-vocabulary options in
// SQLite.
//
// The Store owns schema creation and online column migration (EnsureSchema),
// the record lifecycle writes used by the pipeline, read-only filtered queries,
// and the vocabulary storage consumed by the vocab package. Table DDL and the
// ordered column statements come from configuration.
//
// Record writes fail closed: they log through faults.Log and return a zero
// value or false instead of an error, so the pipeline never sees a raw driver
// error. Every write runs in its own transaction and commits before returning;
// nothing spans a filesystem rename and the update that follows it.
package catalog
