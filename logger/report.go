package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// RunStats summarises one catalog run for the end-of-run report.
type RunStats struct {
	RunID      string
	Fetched    int
	Processed  int
	WellFormed int
	Degraded   int
	Written    int
	Pauses     int
	Duration   time.Duration
}

var (
	warnCounts  sync.Map // map[string]*int64
	errorCounts sync.Map // map[string]*int64
)

func recordWarn(component string) {
	incr(&warnCounts, component)
}

func recordError(component string) {
	incr(&errorCounts, component)
}

func incr(m *sync.Map, component string) {
	v, _ := m.LoadOrStore(component, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

func snapshot(m *sync.Map) map[string]int64 {
	out := map[string]int64{}
	m.Range(func(k, v any) bool {
		out[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return out
}

func total(counts map[string]int64) int64 {
	var n int64
	for _, c := range counts {
		n += c
	}
	return n
}

// WarnCount returns the number of warnings logged for component so far.
func WarnCount(component string) int64 {
	return snapshot(&warnCounts)[component]
}

// LogRunReport writes the data quality summary of a run and publishes the same
// figures to CloudWatch when it is configured.
func LogRunReport(ctx context.Context, log *Log, stats RunStats) {
	warns := snapshot(&warnCounts)
	errs := snapshot(&errorCounts)

	log.WithComponent("report").WithFields(Fields{
		"run_id":      stats.RunID,
		"fetched":     stats.Fetched,
		"processed":   stats.Processed,
		"well_formed": stats.WellFormed,
		"degraded":    stats.Degraded,
		"written":     stats.Written,
		"pauses":      stats.Pauses,
		"duration_ms": stats.Duration.Milliseconds(),
		"warnings":    warns,
		"errors":      errs,
	}).Info("run report")

	dims := []cwtypes.Dimension{{Name: aws.String("RunID"), Value: aws.String(stats.RunID)}}
	datum := func(name string, unit cwtypes.StandardUnit, v float64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{MetricName: aws.String(name), Unit: unit, Dimensions: dims, Value: aws.Float64(v)}
	}

	publishMetrics(ctx, []cwtypes.MetricDatum{
		datum("RecordsFetched", cwtypes.StandardUnitCount, float64(stats.Fetched)),
		datum("RecordsProcessed", cwtypes.StandardUnitCount, float64(stats.Processed)),
		datum("RecordsWellFormed", cwtypes.StandardUnitCount, float64(stats.WellFormed)),
		datum("RecordsDegraded", cwtypes.StandardUnitCount, float64(stats.Degraded)),
		datum("RecordsWritten", cwtypes.StandardUnitCount, float64(stats.Written)),
		datum("RatePauses", cwtypes.StandardUnitCount, float64(stats.Pauses)),
		datum("RunDuration", cwtypes.StandardUnitMilliseconds, float64(stats.Duration.Milliseconds())),
		datum("Warnings", cwtypes.StandardUnitCount, float64(total(warns))),
		datum("Errors", cwtypes.StandardUnitCount, float64(total(errs))),
	})
}
