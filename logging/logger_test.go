package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func captureLogger(t *testing.T) (*CouncilLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf})
	return l, &buf
}

func TestCouncilLoggerKeyValueArgs(t *testing.T) {
	l, buf := captureLogger(t)

	// call through the interface the engine components are wired with
	var logger Logger = l
	logger.Info("meeting run started", "meeting_id", "m-1", "topic", "pilot", "budget", 12000)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "meeting run started" {
		t.Errorf("msg = %q, args must not be formatted into the message", entry["msg"])
	}
	if entry["meeting_id"] != "m-1" {
		t.Errorf("meeting_id attr = %v, want m-1", entry["meeting_id"])
	}
	if entry["topic"] != "pilot" {
		t.Errorf("topic attr = %v, want pilot", entry["topic"])
	}
	if entry["budget"] != float64(12000) {
		t.Errorf("budget attr = %v, want 12000", entry["budget"])
	}
	if strings.Contains(buf.String(), "EXTRA") {
		t.Errorf("args leaked into the message: %s", buf.String())
	}
}

func TestCouncilLoggerDanglingKey(t *testing.T) {
	l, buf := captureLogger(t)

	l.Warn("odd args", "dangling")

	if !strings.Contains(buf.String(), "!BADKEY") {
		t.Errorf("dangling key should get the !BADKEY marker: %s", buf.String())
	}
}

func TestCouncilLoggerContextAttrs(t *testing.T) {
	l, buf := captureLogger(t)

	l.WithComponent("flow").WithMeeting("m-2", "issue_brief").Info("stage executed", "messages", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["component"] != "flow" || entry["meeting_id"] != "m-2" || entry["stage"] != "issue_brief" {
		t.Errorf("contextual attrs missing: %s", buf.String())
	}
	if entry["messages"] != float64(3) {
		t.Errorf("messages attr = %v, want 3", entry["messages"])
	}
}

func TestCouncilLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "json", Output: &buf})

	l.Info("suppressed", "k", "v")
	if buf.Len() != 0 {
		t.Errorf("info entry emitted below the configured level: %s", buf.String())
	}

	l.Error("emitted", "k", "v")
	if buf.Len() == 0 {
		t.Error("error entry suppressed at warn level")
	}
}
