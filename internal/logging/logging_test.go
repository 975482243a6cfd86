package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWriterFormats(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, "info", "json").Info("sent", "recipient_id", 3)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "sent" || line["recipient_id"] != float64(3) {
		t.Fatalf("unexpected line %v", line)
	}

	buf.Reset()
	NewWriter(&buf, "warn", "").Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}

	buf.Reset()
	NewWriter(&buf, "debug", "text").Debug("kept")
	if !strings.Contains(buf.String(), "msg=kept") {
		t.Fatalf("unexpected text line %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"ERROR":   slog.LevelError,
		"warning": slog.LevelWarn,
		" info ":  slog.LevelInfo,
		"":        slog.LevelDebug,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}
