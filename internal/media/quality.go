package media

import (
	"strconv"
	"strings"
)

// UnknownResolution is stored when the probe cannot read a file's dimensions.
const UnknownResolution = "unknown"

// Quality buckets, best first.
const (
	Quality4K  = "4K"
	QualityFHD = "FHD"
	QualityHD  = "HD"
	QualitySD  = "SD"
	QualityLow = "LowQuality"
)

var qualityThresholds = []struct {
	bucket        string
	width, height int
}{
	{Quality4K, 3840, 2160},
	{QualityFHD, 1920, 1080},
	{QualityHD, 1280, 720},
	{QualitySD, 720, 480},
}

// FormatResolution renders dimensions as "WxH".
func FormatResolution(width, height int) string {
	if width <= 0 || height <= 0 {
		return UnknownResolution
	}
	return strconv.Itoa(width) + "x" + strconv.Itoa(height)
}

// ParseResolution reads a "WxH" string.
func ParseResolution(res string) (width, height int, ok bool) {
	w, h, found := strings.Cut(strings.ToLower(strings.TrimSpace(res)), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// QualityBucket maps a resolution onto its bucket. Both dimensions must meet a
// threshold; unparseable values, including UnknownResolution, fall to LowQuality.
func QualityBucket(res string) string {
	width, height, ok := ParseResolution(res)
	if !ok {
		return QualityLow
	}
	for _, threshold := range qualityThresholds {
		if width >= threshold.width && height >= threshold.height {
			return threshold.bucket
		}
	}
	return QualityLow
}
