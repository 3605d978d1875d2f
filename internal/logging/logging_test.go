package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "astrotoken.log")
	logger := NewLogger(Config{Level: "debug", Format: "json", Output: path})

	Component(logger, "service").Debug().Str("op", "markets").Msg("hello")

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, raw)
	}
	if entry["component"] != "service" || entry["op"] != "markets" || entry["level"] != "debug" {
		t.Fatalf("unexpected fields: %v", entry)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":      zerolog.InfoLevel,
		"WARN":  zerolog.WarnLevel,
		"debug": zerolog.DebugLevel,
		"bogus": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := NewLogger(Config{Level: in}).GetLevel(); got != want {
			t.Fatalf("level %q: got %s want %s", in, got, want)
		}
	}
}
