// Package interaction drives the per-file operator dialogue: collect type,
// category, tag and rating, confirm the destination, or end the file early
// with delete, skip or quit.
//
// The controller only decides. It returns an Outcome and leaves every side
// effect on the catalog and filesystem to the caller.
package interaction
