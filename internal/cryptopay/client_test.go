package cryptopay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/filehost/core/netutil"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	var calls []string
	c := New(Options{
		Token:      "123:abc",
		BaseURL:    srv.URL + "/api",
		HTTPClient: srv.Client(),
		Observer: func(method string, _ error, _ time.Duration) {
			calls = append(calls, method)
		},
	})
	return c, &calls
}

func TestCreateInvoice(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/createInvoice", r.URL.Path)
		assert.Equal(t, "123:abc", r.Header.Get("Crypto-Pay-API-Token"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "fiat", body["currency_type"])
		assert.Equal(t, "USD", body["fiat"])
		assert.Equal(t, "0.50", body["amount"])
		assert.Equal(t, float64(900), body["expires_in"])
		assert.Equal(t, "p-1", body["payload"])

		_, _ = w.Write([]byte(`{"ok":true,"result":{"invoice_id":4242,"status":"active",
			"amount":"0.5","fiat":"USD","bot_invoice_url":"https://t.me/CryptoBot?start=IVabc",
			"created_at":"2025-01-02T03:04:05.000Z"}}`))
	})

	inv, err := c.CreateInvoice(context.Background(), CreateInvoiceParams{
		Amount:      decimal.RequireFromString("0.5"),
		Description: "monthly",
		Payload:     "p-1",
		ExpiresIn:   15 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "4242", inv.ID)
	assert.Equal(t, StatusActive, inv.Status)
	assert.Equal(t, "https://t.me/CryptoBot?start=IVabc", inv.PayURL)
	assert.True(t, inv.Amount.Equal(decimal.RequireFromString("0.50")))
	assert.Equal(t, []string{"createInvoice"}, *calls)
}

func TestGetInvoice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/getInvoices", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["invoice_ids"] == "7" {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[{"invoice_id":7,"status":"paid","amount":"1.00","pay_url":"https://pay"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[]}}`))
	})

	inv, found, err := c.GetInvoice(context.Background(), "7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusPaid, inv.Status)
	assert.Equal(t, "https://pay", inv.PayURL)

	_, found, err = c.GetInvoice(context.Background(), "8")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error":{"code":401,"name":"UNAUTHORIZED"}}`))
	})

	_, err := c.CreateInvoice(context.Background(), CreateInvoiceParams{Amount: decimal.NewFromInt(1)})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Code)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Name)
	assert.Equal(t, "createInvoice", apiErr.Method)
}

func TestNonJSONReply(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})

	_, _, err := c.GetInvoice(context.Background(), "1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus)
}

func TestContextDeadline(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := c.GetInvoice(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// flakyTransport times out the first attempt of every API method.
type flakyTransport struct {
	mu    sync.Mutex
	calls map[string]int
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	method := path.Base(r.URL.Path)
	f.mu.Lock()
	f.calls[method]++
	first := f.calls[method] == 1
	f.mu.Unlock()
	if first {
		return nil, timeoutError{}
	}
	return http.DefaultTransport.RoundTrip(r)
}

func (f *flakyTransport) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func useBase(t *testing.T, hc *http.Client, base http.RoundTripper) {
	t.Helper()
	rt, ok := hc.Transport.(*netutil.RetryTransport)
	require.True(t, ok, "transport is %T", hc.Transport)
	rt.Base = base
	rt.Backoff = time.Millisecond
}

func TestOnlyReadsAreRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/getInvoices" {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[{"invoice_id":7,"status":"paid","amount":"1.00"}]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"invoice_id":8,"status":"active","amount":"1.00"}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Options{Token: "123:abc", BaseURL: srv.URL + "/api"})
	flaky := &flakyTransport{calls: map[string]int{}}
	useBase(t, c.reads, flaky)
	useBase(t, c.writes, flaky)

	inv, found, err := c.GetInvoice(context.Background(), "7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusPaid, inv.Status)
	assert.Equal(t, 2, flaky.count("getInvoices"))

	_, err = c.CreateInvoice(context.Background(), CreateInvoiceParams{Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Equal(t, 1, flaky.count("createInvoice"))
}
