package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriter_ProductionJSON(t *testing.T) {
	var buf bytes.Buffer
	log := WithJobID(NewWithWriter(&buf, "production", "info"), "job-1")
	log = WithFile(log, "users.csv")

	log.Info().Str("delimiter", "comma").Msg("Conversion finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["job_id"] != "job-1" || entry["file"] != "users.csv" || entry["delimiter"] != "comma" {
		t.Errorf("unexpected log fields: %v", entry)
	}
}

func TestNewWithWriter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "production", "warn")

	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("info message written at warn level: %q", buf.String())
	}

	log.Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Error("warn message was not written")
	}
}
