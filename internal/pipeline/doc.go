// Package pipeline processes the input queue one file at a time: build the
// record, make sure a stub row exists, hand the file to the operator dialogue,
// then apply the decision to the filesystem and the catalog.
//
// There is no transaction spanning a rename and the catalog writes that follow
// it. When a rename succeeds but the catalog cannot record it, the file stays
// at its destination, the row stays unprocessed, and a reconcile_required
// warning points the operator at `mediasort reconcile`.
package pipeline
