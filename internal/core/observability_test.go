package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"grantcrm/pkg/domain"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	rec := NewPrometheusMetricsRecorder()
	ctx := context.Background()
	rec.Observe(ctx, "create", true, 2*time.Millisecond)
	rec.Observe(ctx, "create", false, time.Millisecond)
	rec.Observe(ctx, "create", true, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.ops.WithLabelValues("create", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.ops.WithLabelValues("create", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}

	rec.SetStageCounts(map[Stage]int{domain.StageIntake: 3, domain.StageWon: 1})
	rec.SetStageCounts(map[Stage]int{domain.StageIntake: 2})
	if got := testutil.ToFloat64(rec.stages.WithLabelValues("intake")); got != 2 {
		t.Fatalf("expected intake gauge 2, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.stages); n != 1 {
		t.Fatalf("stale stage series kept: %d", n)
	}
}

func TestPrometheusWriteTextfile(t *testing.T) {
	rec := NewPrometheusMetricsRecorder()
	rec.Observe(context.Background(), "delete", true, time.Millisecond)
	path := filepath.Join(t.TempDir(), "grantcrm.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `grantcrm_operations_total{operation="delete",status="success"} 1`) {
		t.Fatalf("textfile missing counter:\n%s", data)
	}
}
