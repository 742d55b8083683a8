// Package playback previews the file under review.
//
// A Player does the work; a Dispatcher owns one Player on its own goroutine
// and accepts fire-and-forget commands over a buffered channel so the
// processing loop never waits on the media player.
package playback
