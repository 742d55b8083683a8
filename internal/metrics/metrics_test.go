package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mediasort/internal/faults"
	"mediasort/internal/metrics"
)

func TestRecorderCountsAndFlushes(t *testing.T) {
	rec := metrics.New()
	rec.ObserveDecision("accept", 3*time.Second)
	rec.ObserveDecision("accept", time.Second)
	rec.ObserveDecision("skip", time.Second)
	rec.ObserveFailure("relocate", faults.KindFilesystem)
	rec.ObserveFailure("stub", faults.KindNone)
	rec.ObserveProbeFailure()
	rec.ObserveRelocated(2048)
	rec.ObserveRelocated(-1)

	series, err := testutil.GatherAndCount(rec.Registry(), "mediasort_decisions_total")
	if err != nil || series != 2 {
		t.Fatalf("decision series = %d err=%v, want 2", series, err)
	}

	path := filepath.Join(t.TempDir(), "textfile", "mediasort.prom")
	if err := rec.Flush(path, time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`mediasort_decisions_total{decision="accept"} 2`,
		`mediasort_decisions_total{decision="skip"} 1`,
		`mediasort_failures_total{kind="filesystem",step="relocate"} 1`,
		`mediasort_failures_total{kind="unknown",step="stub"} 1`,
		`mediasort_probe_failures_total 1`,
		`mediasort_relocated_bytes_total 2048`,
		`mediasort_last_run_timestamp_seconds 1.7e+09`,
		`mediasort_file_duration_seconds_count 3`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q\n%s", want, text)
		}
	}
}

func TestNilRecorderAndEmptyPath(t *testing.T) {
	var rec *metrics.Recorder
	rec.ObserveDecision("quit", 0)
	rec.ObserveFailure("x", faults.KindUnknown)
	if err := rec.Flush("/nonexistent/never", time.Now()); err != nil {
		t.Fatalf("nil Flush: %v", err)
	}
	if err := metrics.New().Flush("", time.Now()); err != nil {
		t.Fatalf("empty path Flush: %v", err)
	}
}
