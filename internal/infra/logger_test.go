package infra

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		env   string
		level string
		want  zerolog.Level
	}{
		{"production", "", zerolog.InfoLevel},
		{"development", "", zerolog.DebugLevel},
		{"production", "WARN", zerolog.WarnLevel},
		{"development", "error", zerolog.ErrorLevel},
		{"production", "chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := newLogger(&bytes.Buffer{}, tt.env, tt.level).GetLevel(); got != tt.want {
			t.Fatalf("env=%s level=%q: got %s want %s", tt.env, tt.level, got, tt.want)
		}
	}
}

func TestNewLoggerWritesJSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "production", "")
	logger.Info().Str("report_id", "r1").Msg("bounty recomputed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["env"] != "production" || entry["report_id"] != "r1" || entry["message"] != "bounty recomputed" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
