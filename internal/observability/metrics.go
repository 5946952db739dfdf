// Package observability holds the process-wide Prometheus collectors shared by the API and CLI.
package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/habitboard/internal/sheets"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitboard",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	sheetCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitboard",
		Subsystem: "sheets",
		Name:      "calls_total",
		Help:      "Google Sheets API calls by operation and outcome.",
	}, []string{"op", "outcome"})

	sheetCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "habitboard",
		Subsystem: "sheets",
		Name:      "call_duration_seconds",
		Help:      "Latency of Google Sheets API calls.",
		Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10),
	}, []string{"op"})

	scoreWrittenGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "habitboard",
		Subsystem: "scoreboard",
		Name:      "last_score_written_timestamp_seconds",
		Help:      "Unix timestamp of the most recent scoreboard cell write.",
	})

	habitEntryGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "habitboard",
		Subsystem: "persistence",
		Name:      "last_habit_entry_logged_timestamp_seconds",
		Help:      "Unix timestamp of the most recent habit entry persisted to Postgres.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestDuration, sheetCalls, sheetCallDuration, scoreWrittenGauge, habitEntryGauge)
}

// ObserveHTTPRequest records one served request. Its signature matches logging.Observer.
func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveSheetCall records a Sheets API call.
func ObserveSheetCall(op string, elapsed time.Duration, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, sheets.ErrSheetNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	sheetCalls.WithLabelValues(op, outcome).Inc()
	sheetCallDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// RecordScoreWritten updates the scoreboard write watermark.
func RecordScoreWritten(ts time.Time) {
	if ts.IsZero() {
		return
	}
	scoreWrittenGauge.Set(float64(ts.Unix()))
}

// RecordHabitEntryLogged updates the habit entry watermark.
func RecordHabitEntryLogged(ts time.Time) {
	if ts.IsZero() {
		return
	}
	habitEntryGauge.Set(float64(ts.Unix()))
}
