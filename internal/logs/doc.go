// Package logs reads the JSON run log for `mediasort logs`.
//
// Tail returns the last N lines or everything after a byte offset, optionally
// restricted to one run_id, and can poll for new lines in follow mode.
package logs
