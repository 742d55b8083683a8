// Package media defines the catalog record for one source file and the
// resolution helpers used to place it in a quality bucket.
//
// Record is a value type. Every setter returns an updated copy, so a record
// handed to another component can never be partially mutated behind the
// caller's back. The ffprobe subpackage supplies the default Prober.
package media
