package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wiretap/internal/config"
	"wiretap/internal/logging"
)

func newFileLogger(t *testing.T, format, level string) (func(), string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "wiretap.log")
	noColor := false
	logger, err := logging.New(logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath},
		Color:       &noColor,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	emit := func() {
		component := logging.NewComponentLogger(logger, "wiretap")
		component.Info("project created",
			logging.String(logging.FieldProject, "PRJ_001"),
			logging.Group("settings", logging.String("FrameWidth", "1920")),
			logging.Error(errors.New("remote said no")))
		component.Debug("debug detail")
	}
	return emit, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerFormatsComponentAndAttrs(t *testing.T) {
	emit, path := newFileLogger(t, "console", "info")
	emit()

	content := readLog(t, path)
	if !strings.Contains(content, "INFO wiretap: project created") {
		t.Fatalf("expected component prefix, got %q", content)
	}
	for _, fragment := range []string{"project=PRJ_001", "settings.FrameWidth=1920", `error="remote said no"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should not be repeated as an attribute: %q", content)
	}
	if strings.Contains(content, "debug detail") {
		t.Fatalf("debug line should be filtered at info level: %q", content)
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no color codes when color is disabled: %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	emit, path := newFileLogger(t, "console", "debug")
	emit()

	content := readLog(t, path)
	if !strings.Contains(content, "debug detail") {
		t.Fatalf("expected debug line, got %q", content)
	}
	if !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerWritesStructuredRecords(t *testing.T) {
	emit, path := newFileLogger(t, "json", "info")
	emit()

	line := strings.TrimSpace(readLog(t, path))
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("decode json log %q: %v", line, err)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lower-case level, got %v", record["level"])
	}
	if record["component"] != "wiretap" {
		t.Fatalf("expected component attribute, got %v", record["component"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "logs", "wiretap.log")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Warn("gateway unreachable")

	if !strings.Contains(readLog(t, cfg.Logging.File), "gateway unreachable") {
		t.Fatal("expected message in configured log file")
	}
}

func TestWithContextAddsSessionID(t *testing.T) {
	emitPath := filepath.Join(t.TempDir(), "ctx.log")
	noColor := false
	base, err := logging.New(logging.Options{OutputPaths: []string{emitPath}, Color: &noColor})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := logging.WithSessionID(context.Background(), "abc-123")
	logging.WithContext(ctx, base).Info("hello")

	if !strings.Contains(readLog(t, emitPath), "session_id=abc-123") {
		t.Fatal("expected session id from context")
	}
	if id, ok := logging.SessionIDFromContext(context.Background()); ok || id != "" {
		t.Fatalf("expected no session id, got %q", id)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for input, want := range cases {
		if got := logging.ParseLevel(input).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", input, got, want)
		}
	}
}
