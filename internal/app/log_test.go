package app

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStashHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		opID    string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			opID:    "op-123",
			level:   slog.LevelInfo,
			message: "command finished",
			want:    "2024-06-15T14:30:45Z\tINFO\top-123\tcommand finished\n",
		},
		{
			name:    "warn level",
			opID:    "op-456",
			level:   slog.LevelWarn,
			message: "retrying",
			want:    "2024-06-15T14:30:45Z\tWARN\top-456\tretrying\n",
		},
		{
			name:    "with record attrs",
			opID:    "op-789",
			level:   slog.LevelInfo,
			message: "item created",
			attrs:   []slog.Attr{slog.String("name", "a.txt"), slog.Int("size", 42)},
			want:    "2024-06-15T14:30:45Z\tINFO\top-789\titem created\tname=a.txt\tsize=42\n",
		},
		{
			name:    "group attr is flattened",
			opID:    "op-1",
			level:   slog.LevelError,
			message: "request failed",
			attrs:   []slog.Attr{slog.Group("req", slog.String("op", "fetch_items"), slog.Int("attempt", 2))},
			want:    "2024-06-15T14:30:45Z\tERROR\top-1\trequest failed\treq.op=fetch_items\treq.attempt=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &stashHandler{w: &buf, level: slog.LevelDebug, opID: tt.opID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestStashHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &stashHandler{w: &buf, opID: "op-1"}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "vault")}).(*stashHandler)

	r := slog.NewRecord(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), slog.LevelInfo, "upload", 0)
	r.AddAttrs(slog.String("key", "abc"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "\tcomponent=vault\tkey=abc") {
		t.Errorf("expected pre-set attr before record attr, got: %q", got)
	}
	if len(h.attrs) != 0 {
		t.Errorf("original handler attrs modified: got %d, want 0", len(h.attrs))
	}
}

func TestStashHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&stashHandler{w: &buf, opID: "op-1"})

	logger.WithGroup("store").With("op", "move").Info("done", "id", 7)

	got := buf.String()
	if !strings.HasSuffix(got, "\tdone\tstore.op=move\tstore.id=7\n") {
		t.Errorf("grouped output = %q", got)
	}
}

func TestStashHandler_Enabled(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Leveler
		check slog.Level
		want  bool
	}{
		{name: "default hides debug", level: nil, check: slog.LevelDebug, want: false},
		{name: "default shows info", level: nil, check: slog.LevelInfo, want: true},
		{name: "debug shows debug", level: slog.LevelDebug, check: slog.LevelDebug, want: true},
		{name: "warn hides info", level: slog.LevelWarn, check: slog.LevelInfo, want: false},
		{name: "warn shows error", level: slog.LevelWarn, check: slog.LevelError, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &stashHandler{level: tt.level}
			if got := h.Enabled(context.Background(), tt.check); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.check, got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "", want: slog.LevelInfo},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "log")
	var stderr bytes.Buffer

	logger, f, err := newLogger(dir, "test-op", slog.LevelInfo, true, &stderr)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")
	f.Close()

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "\tINFO\ttest-op\tshown\tk=v\n") {
		t.Errorf("log file = %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("debug record written at info level: %q", data)
	}
	if stderr.String() != string(data) {
		t.Errorf("verbose stderr = %q, want the same lines as the file", stderr.String())
	}
}

func TestNewLogger_QuietByDefault(t *testing.T) {
	var stderr bytes.Buffer
	logger, f, err := newLogger(t.TempDir(), "op", slog.LevelInfo, false, &stderr)
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("quiet")
	if stderr.Len() != 0 {
		t.Errorf("stderr = %q, want nothing without verbose", stderr.String())
	}
}
