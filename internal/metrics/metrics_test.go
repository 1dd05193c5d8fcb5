package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SubscriptionExtended(SourceGrant)
	m.InvoiceCreated()
	m.InvoiceReconciled("paid")
	m.FileRegistered()
	m.ProviderCall("getInvoices", nil, time.Millisecond)
}

func TestCounters(t *testing.T) {
	m := New()
	m.SubscriptionExtended(SourcePayment)
	m.SubscriptionExtended(SourcePayment)
	m.SubscriptionExtended(SourceGrant)
	m.ProviderCall("createInvoice", errors.New("boom"), 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.extensions.WithLabelValues(SourcePayment)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extensions.WithLabelValues(SourceGrant)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("createInvoice", "fail")))
}

func TestRouter(t *testing.T) {
	m := New()
	m.FileRegistered()
	h := Router(m, map[string]HealthFunc{
		"store": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "filehost_files_registered_total 1"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"store":"ok"}`, rec.Body.String())
}

func TestHealthzFailure(t *testing.T) {
	h := Router(New(), map[string]HealthFunc{
		"db": func(context.Context) error { return errors.New("down") },
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"db":"down"}`, rec.Body.String())
}
