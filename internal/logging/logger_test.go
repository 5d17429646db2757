package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"squeeze/internal/logging"
)

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf, RunID: "abc"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Debug("hidden")
	logger.Warn("kept original", "name", "page 1.jpg", "error", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
	if !strings.Contains(out, `WARN  kept original name="page 1.jpg" error=boom`) {
		t.Fatalf("unexpected console line: %q", out)
	}
	if strings.Contains(out, "run_id") {
		t.Fatalf("console output should omit run_id: %q", out)
	}
}

func TestJSONLoggerCarriesRunID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf, RunID: "run42"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("probe failed", "name", "a.png")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["run_id"] != "run42" || record["level"] != "debug" || record["msg"] != "probe failed" {
		t.Fatalf("unexpected record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewRunIDIsShortAndUnique(t *testing.T) {
	a, b := logging.NewRunID(), logging.NewRunID()
	if len(a) != 8 || a == b {
		t.Fatalf("unexpected run ids %q %q", a, b)
	}
}
