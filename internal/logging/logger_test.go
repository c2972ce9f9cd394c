package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromString(in).Level(); got != want {
			t.Fatalf("%q: got %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAttachesService(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "info", "gateway")
	l.Debug("dropped")
	l.Info("kept", "ride_id", "r1")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(lines[0], &rec); err != nil {
		t.Fatalf("record is not json: %v", err)
	}
	if rec["service"] != "gateway" || rec["ride_id"] != "r1" || rec["msg"] != "kept" {
		t.Fatalf("unexpected record %v", rec)
	}
}
