package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: "DEBUG", Format: "json"}, &buf)
	logger.Debug().Str("component", "test").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("日志应为 JSON: %v (%s)", err, buf.String())
	}
	if entry["message"] != "hello" || entry["component"] != "test" || entry["level"] != "debug" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLoggerLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(Config{Level: "nonsense"}, &buf)
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info", logger.GetLevel())
	}
	logger.Debug().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info: %s", buf.String())
	}
}

func TestOutputDefaultsToStderr(t *testing.T) {
	if output("") != os.Stderr {
		t.Error("默认输出应为 stderr")
	}
	if output("STDOUT") != os.Stdout {
		t.Error("stdout 应可配置")
	}
}
