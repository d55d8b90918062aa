package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"satcatflow/logger"
)

func TestObserve(t *testing.T) {
	m := NewRunMetrics()
	now := time.Unix(1700000000, 0)
	m.Observe(logger.RunStats{Fetched: 25, WellFormed: 8, Degraded: 2, Written: 10, Pauses: 0, Duration: 2 * time.Second}, true, now)

	if got := testutil.ToFloat64(m.RecordsFetched); got != 25 {
		t.Fatalf("fetched = %v", got)
	}
	if got := testutil.ToFloat64(m.RecordsDegraded); got != 2 {
		t.Fatalf("degraded = %v", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess); got != float64(now.Unix()) {
		t.Fatalf("last success = %v", got)
	}
	if got := testutil.ToFloat64(m.RunDuration); got != 2 {
		t.Fatalf("duration = %v", got)
	}
}

func TestObserveFailureKeepsLastSuccess(t *testing.T) {
	m := NewRunMetrics()
	m.Observe(logger.RunStats{}, false, time.Now())
	if got := testutil.ToFloat64(m.LastSuccess); got != 0 {
		t.Fatalf("last success set on failure: %v", got)
	}
}

func TestPush(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		body = buf.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewRunMetrics()
	m.RecordsWritten.Add(3)
	if err := m.Push(context.Background(), srv.URL, "satcatflow", "run-1"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if !strings.Contains(path, "/job/satcatflow") || !strings.Contains(path, "run_id/run-1") {
		t.Fatalf("unexpected push path %q", path)
	}
	if body == "" {
		t.Fatal("empty push body")
	}
}

func TestReportQuality(t *testing.T) {
	ReportQuality(logger.GetLogger(), logger.RunStats{Processed: 4, Degraded: 1})
	ReportQuality(logger.GetLogger(), logger.RunStats{})
}
