package logger

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func renderLine(t *testing.T, format logFormat, emit func(*slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: aw,
		format: format,
	})
	emit(slog.New(handler))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	line := renderLine(t, formatKV, func(log *slog.Logger) {
		ctx := WithUpdateMeta(WithRID(Background(), "rid-123"), 42, 7, 9)
		LogEvent(ctx, log.With("component", CompInvoices), slog.LevelInfo, "invoice.created",
			slog.String("status", "ok"),
			slog.Int64("invoice_id", 1001),
		)
	})
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=service.invoices", "event=invoice.created", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if !strings.Contains(line, "invoice_id=1001") {
		t.Fatalf("missing invoice_id in %s", line)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	line := renderLine(t, formatJSON, func(log *slog.Logger) {
		ctx := WithRID(Background(), "rid-json")
		LogEvent(ctx, log.With("component", CompLedger), slog.LevelError, "ledger.extend",
			slog.String("status", "error"),
			slog.Any("err", errors.New("boom")),
			slog.String("err_code", "NOT_FOUND"),
		)
	})
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"service.ledger"`, `"event":"ledger.extend"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
	if !strings.Contains(line, `"err":"boom"`) {
		t.Fatalf("expected error text, got %s", line)
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := BuildRID(123, 456, 789)
	kv := renderLine(t, formatKV, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(kv, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", kv)
	}
	if strings.Contains(kv, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", kv)
	}

	js := renderLine(t, formatJSON, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	})
	if !strings.Contains(js, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", js)
	}
	if !strings.Contains(js, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", js)
	}
}

func TestStructuredHandlerDefaults(t *testing.T) {
	line := renderLine(t, formatKV, func(log *slog.Logger) {
		log.Info("plain message", "took", 1500*time.Microsecond, "empty", "", "outcome", "weird")
	})
	for _, want := range []string{"component=app", `event="plain message"`, "took_ms=2"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
	for _, absent := range []string{"empty=", "outcome="} {
		if strings.Contains(line, absent) {
			t.Fatalf("unexpected %s in %s", absent, line)
		}
	}
}

func TestStructuredHandlerGroups(t *testing.T) {
	line := renderLine(t, formatKV, func(log *slog.Logger) {
		log.WithGroup("invoice").Info("x", "id", 5, slog.Group("user", "id", 7))
	})
	if !strings.Contains(line, "invoice.id=5") || !strings.Contains(line, "invoice.user.id=7") {
		t.Fatalf("group keys not flattened: %s", line)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	want := []bool{true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allow #%d = %v, want %v", i, got[i], want[i])
		}
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"":     {0, 0},
		"10":   {1, 10},
		"2/5":  {2, 5},
		"x/5":  {0, 0},
		"-3":   {0, 0},
		" 1/4": {1, 4},
	}
	for in, want := range cases {
		k, n := parseRatioSpec(in)
		if k != want[0] || n != want[1] {
			t.Errorf("parseRatioSpec(%q) = %d/%d, want %d/%d", in, k, n, want[0], want[1])
		}
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\u200bbc\x07d", 3); got != "abc" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}
