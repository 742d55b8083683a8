// Package faults classifies the errors raised while cataloging media.
//
// Components tag failures with one of the sentinel markers through Wrap, and
// Classify maps any error (tagged, raw SQLite, or filesystem) onto a Kind.
// Log is the single funnel data-layer code uses to report a failure: it logs
// the kind and the message and never escalates.
package faults
