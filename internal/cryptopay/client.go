// Package cryptopay is a typed client for the Crypto Pay API (@CryptoBot).
// Response envelopes are decoded here; callers only see Invoice values and
// *APIError.
package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/filehost/core/logger"
	"github.com/m3rciful/filehost/core/netutil"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://pay.crypt.bot/api/"

const (
	tokenHeader    = "Crypto-Pay-API-Token"
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
	readRetries    = 2
)

// Observer receives the outcome of every API call.
type Observer func(method string, err error, took time.Duration)

// Options configures New. HTTPClient and BaseURL are optional.
type Options struct {
	Token   string
	BaseURL string
	// HTTPClient serves every method as is, without the read retries.
	HTTPClient *http.Client
	Observer   Observer
}

// Client calls Crypto Pay methods over HTTPS.
type Client struct {
	token   string
	baseURL string
	// writes creates invoices and is never retried; reads may repeat a call.
	writes   *http.Client
	reads    *http.Client
	observer Observer
}

// New builds a client. Without an HTTP client it uses clients with a 15
// second budget per call: getInvoices is retried on transient network
// errors, createInvoice runs exactly once.
func New(opts Options) *Client {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	base = strings.TrimRight(base, "/") + "/"

	writes, reads := opts.HTTPClient, opts.HTTPClient
	if writes == nil {
		writes = netutil.NewClient(netutil.Options{
			Timeout: defaultTimeout,
			Retries: -1,
		})
		reads = netutil.NewClient(netutil.Options{
			Timeout:            defaultTimeout,
			Retries:            readRetries,
			Backoff:            500 * time.Millisecond,
			RetryNonIdempotent: true,
		})
	}
	return &Client{
		token:    opts.Token,
		baseURL:  base,
		writes:   writes,
		reads:    reads,
		observer: opts.Observer,
	}
}

// APIError is a response whose envelope had ok=false, or a non-JSON reply.
type APIError struct {
	Method     string
	Code       int
	Name       string
	HTTPStatus int
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("cryptopay %s: %d %s", e.Method, e.Code, e.Name)
	}
	return fmt.Sprintf("cryptopay %s: http %d", e.Method, e.HTTPStatus)
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, hc *http.Client, method string, params, out any) (err error) {
	start := time.Now()
	defer func() {
		took := logger.Took(start)
		if c.observer != nil {
			c.observer(method, err, took)
		}
		level, status := slog.LevelDebug, "ok"
		attrs := []slog.Attr{
			slog.String("op", method),
			slog.Duration("duration", took),
		}
		if err != nil {
			level, status = slog.LevelWarn, "fail"
			attrs = append(attrs, slog.String("err", err.Error()))
		}
		logger.LogEvent(ctx, logger.Pay, level, "pay.call", append(attrs, slog.String("status", status))...)
	}()

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("cryptopay %s: encode: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("cryptopay %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("cryptopay %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("cryptopay %s: read: %w", method, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &APIError{Method: method, HTTPStatus: resp.StatusCode}
	}
	if !env.OK {
		apiErr := &APIError{Method: method, HTTPStatus: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code, apiErr.Name = env.Error.Code, env.Error.Name
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("cryptopay %s: decode result: %w", method, err)
	}
	return nil
}
