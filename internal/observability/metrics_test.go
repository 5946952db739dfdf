package observability

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"example.com/habitboard/internal/sheets"
)

func TestObserveSheetCallOutcomes(t *testing.T) {
	ok := testutil.ToFloat64(sheetCalls.WithLabelValues("get", "ok"))
	notFound := testutil.ToFloat64(sheetCalls.WithLabelValues("get", "not_found"))
	failed := testutil.ToFloat64(sheetCalls.WithLabelValues("get", "error"))

	ObserveSheetCall("get", 10*time.Millisecond, nil)
	ObserveSheetCall("get", 10*time.Millisecond, fmt.Errorf("wrap: %w", sheets.ErrSheetNotFound))
	ObserveSheetCall("get", 10*time.Millisecond, errors.New("boom"))

	require.Equal(t, ok+1, testutil.ToFloat64(sheetCalls.WithLabelValues("get", "ok")))
	require.Equal(t, notFound+1, testutil.ToFloat64(sheetCalls.WithLabelValues("get", "not_found")))
	require.Equal(t, failed+1, testutil.ToFloat64(sheetCalls.WithLabelValues("get", "error")))
}

func TestObserveHTTPRequestHistogram(t *testing.T) {
	ObserveHTTPRequest("GET", "/api/health", 200, 5*time.Millisecond)

	metric := &dto.Metric{}
	observer, err := httpRequestDuration.GetMetricWithLabelValues("GET", "/api/health", "200")
	require.NoError(t, err)
	require.NoError(t, observer.(prometheus.Metric).Write(metric))
	require.GreaterOrEqual(t, metric.GetHistogram().GetSampleCount(), uint64(1))
}

func TestWatermarksIgnoreZeroTime(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)
	RecordHabitEntryLogged(ts)
	RecordHabitEntryLogged(time.Time{})
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(habitEntryGauge))

	RecordScoreWritten(ts)
	require.Equal(t, float64(ts.Unix()), testutil.ToFloat64(scoreWrittenGauge))
}
