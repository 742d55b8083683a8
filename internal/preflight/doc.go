// Package preflight provides readiness checks for the directories and
// external programs mediasort depends on.
//
// `mediasort run` calls RunAll before opening the queue and refuses to start
// when a required check fails; `mediasort status` prints every result.
package preflight
