// Package organizer moves a classified file from the input directory into the
// output hierarchy output/quality/type/category, named {tag}_{rating}_{source}.
//
// The move is a single rename that never replaces an existing file. Nothing is
// copied: a cross-device move, a permission problem, or a name collision is
// returned as a filesystem error and the source is left in place. Before the
// rename the playback surface is asked to release the file and the configured
// delay elapses.
package organizer
