package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "json", slog.LevelInfo))
	logger.Info("hello", "key", "value")
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("json handler output not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "hello" || record["key"] != "value" {
		t.Errorf("record = %v", record)
	}

	buf.Reset()
	logger = slog.New(NewHandler(&buf, "text", slog.LevelInfo))
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	logger = slog.New(NewHandler(&buf, "text", slog.LevelWarn))
	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info record passed a warn-level handler: %q", buf.String())
	}
}

func TestLoggerComponentTag(t *testing.T) {
	var buf bytes.Buffer

	logger := New(Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Handler:   NewHandler(&buf, "json", slog.LevelInfo),
	})
	logger.Info("startup")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record[FieldComponent] != ComponentApp {
		t.Errorf("component = %v, want %q", record[FieldComponent], ComponentApp)
	}

	buf.Reset()
	logger.WithComponent(ComponentWorker).Logger.Info("switched")
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v, want %q", record[FieldComponent], ComponentWorker)
	}
}
