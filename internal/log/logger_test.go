package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	l.InfoContext(context.Background(), "Deposit recorded", FieldAccount, "123456")
	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "account=123456") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentAudit).Warn("drift")
	if strings.Count(buf.String(), "component=") != 1 || !strings.Contains(buf.String(), "component=audit") {
		t.Fatalf("component must appear once: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFieldsAndContext(t *testing.T) {
	f := NewFields().WithOperation(OpTransfer).WithRecipient("2").WithError(errors.New("boom"))
	if f[FieldOperation] != OpTransfer || f[FieldRecipient] != "2" || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 6 {
		t.Fatalf("ToSlice length = %d", len(f.ToSlice()))
	}

	l := Discard().WithComponent(ComponentCLI)
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx).Component() != ComponentCLI {
		t.Fatal("logger not carried by context")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}
