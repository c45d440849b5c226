package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf, Component: ComponentApp})

	l.With("request_id", "abc").WithComponent(ComponentLedger).Info("hello")

	line := buf.String()
	if strings.Count(line, "component=") != 1 {
		t.Fatalf("expected exactly one component attribute: %q", line)
	}
	if !strings.Contains(line, "component=ledger") || !strings.Contains(line, "request_id=abc") {
		t.Fatalf("unexpected log line: %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithAction("collectFee").WithFee("5", "400", "Cash").WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Fatal("nil error should not add a field")
	}
	if len(f.ToSlice()) != 8 {
		t.Fatalf("unexpected slice: %v", f.ToSlice())
	}
}
