// Package deps checks that the external programs mediasort shells out to can
// be found on PATH.
package deps
