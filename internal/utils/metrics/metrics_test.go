package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTrade(t *testing.T) {
	c := NewCollector()

	c.RecordTrade(context.Background(), true, time.Millisecond, true)
	c.RecordTrade(context.Background(), true, time.Millisecond, false)
	c.RecordTrade(context.Background(), false, time.Millisecond, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.RecordTrade(ctx, false, time.Millisecond, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("buy", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("buy", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("sell", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.trades.WithLabelValues("sell", "cancelled")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := NewCollector(), NewCollector()

	a.RecordFee(990)
	a.RecordCurveCreated()
	a.RecordCurveCompleted()
	a.RecordInvariantFailure("custody_frozen")

	assert.Equal(t, 990.0, testutil.ToFloat64(a.fees))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.fees))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.curves.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.invariantFailure.WithLabelValues("custody_frozen")))
}

func TestHandlerExposesReserves(t *testing.T) {
	c := NewCollector()
	c.UpdateCurveReserves("Mint111", 31_000_000_000, 1_038_387_096_000_000, 1_000_000_000, 758_487_096_000_000)
	c.RecordStoreRetry("save_trade")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `curve_engine_curve_reserves{mint="Mint111",reserve="real_sol"} 1e+09`))
	assert.Contains(t, body, `curve_engine_store_retries_total{operation="save_trade"} 1`)

	c.Reset()
	assert.Equal(t, 0, testutil.CollectAndCount(c.reserves))
}
