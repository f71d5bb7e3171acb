package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestRecordLedger(t *testing.T) {
	before := testutil.ToFloat64(coinsMoved.WithLabelValues("test_kind", "credit"))
	RecordLedger("test_kind", 25, nil)
	RecordLedger("test_kind", -10, nil)
	RecordLedger("test_kind", 100, errors.New("boom"))

	assert.Equal(t, before+25, testutil.ToFloat64(coinsMoved.WithLabelValues("test_kind", "credit")))
	assert.Equal(t, float64(10), testutil.ToFloat64(coinsMoved.WithLabelValues("test_kind", "debit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ledgerOps.WithLabelValues("test_kind", "error")))
}

func TestRouter(t *testing.T) {
	RecordUpdate("message", 10*time.Millisecond)

	h := NewRouter(fakePinger{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "economy_bot_bot_updates_total")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewRouter(fakePinger{err: errors.New("connection refused")})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
