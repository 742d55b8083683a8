// Package ffprobe runs ffprobe and decodes its JSON report.
//
// Prober is the media.Prober used when a file is first cataloged: it returns
// the width and height of the first real video stream, skipping attached
// cover art, and bounds each invocation with a timeout.
package ffprobe
