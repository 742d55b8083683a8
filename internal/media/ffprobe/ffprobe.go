package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mediasort/internal/faults"
)

// Result holds the streams ffprobe reported for one file.
type Result struct {
	Streams []Stream `json:"streams"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int            `json:"index"`
	CodecName   string         `json:"codec_name"`
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Disposition map[string]int `json:"disposition"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_streams", "-select_streams", "v", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoDimensions returns the size of the first video stream that is not an
// attached picture (cover art).
func (r Result) VideoDimensions() (width, height int, ok bool) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		if stream.Disposition["attached_pic"] == 1 {
			continue
		}
		if stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, true
		}
	}
	return 0, 0, false
}

// Prober reads pixel dimensions through ffprobe.
type Prober struct {
	Binary  string
	Timeout time.Duration
	// inspect is replaced in tests.
	inspect func(ctx context.Context, binary, path string) (Result, error)
}

// NewProber returns a Prober bounded by timeout per call.
func NewProber(binary string, timeout time.Duration) *Prober {
	return &Prober{Binary: binary, Timeout: timeout, inspect: Inspect}
}

// Probe returns the dimensions of path's first video stream. Failures are
// tagged faults.ErrProbe.
func (p *Prober) Probe(ctx context.Context, path string) (int, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	inspect := p.inspect
	if inspect == nil {
		inspect = Inspect
	}
	result, err := inspect(ctx, p.Binary, path)
	if err != nil {
		return 0, 0, faults.Wrap(faults.ErrProbe, "ffprobe", "probe", path, err)
	}
	width, height, ok := result.VideoDimensions()
	if !ok {
		return 0, 0, faults.Wrap(faults.ErrProbe, "ffprobe", "probe", "no video stream in "+path, nil)
	}
	return width, height, nil
}
