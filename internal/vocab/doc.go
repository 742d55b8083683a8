// Package vocab maintains the controlled vocabularies for the type, category,
// and tag attributes of a record.
//
// Values are append-only. Validate rejects empty values and values containing
// a path separator or a comma; Add also rejects case-insensitive duplicates.
// The backfill policy decides whether a new value is written into historical
// records whose attribute is still empty ("legacy") or left for the caller to
// apply to the in-flight record only ("record").
package vocab
