// Command mediasort catalogs video files from an input directory, asks the
// operator for a type, category, tag and rating for each one, and files it
// under output/quality/type/category.
//
// `mediasort run` is the interactive loop. The remaining commands inspect or
// maintain the catalog: catalog, options, reconcile, migrate, status and
// config.
package main
