package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "satcatflow.log")
	log := Logger()
	if err := log.Configure("debug", "text", path, 0); err != nil {
		t.Fatalf("configure: %v", err)
	}
	log.WithComponent("test").Info("hello")
}

func TestWarnIsCountedPerComponent(t *testing.T) {
	log := Logger()
	log.SetOutput(&bytes.Buffer{})

	before := WarnCount("counted")
	log.WithComponent("counted").Warn("first")
	log.WithComponent("counted").Warn("second")
	if got := WarnCount("counted") - before; got != 2 {
		t.Fatalf("expected 2 warnings, got %d", got)
	}
}

func TestLogRunReport(t *testing.T) {
	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)

	LogRunReport(context.Background(), log, RunStats{RunID: "r1", Processed: 3, WellFormed: 2, Degraded: 1, Written: 3})

	line := strings.TrimSpace(buf.String())
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("report is not json: %v (%q)", err, line)
	}
	if out["message"] != "run report" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
	if out["degraded"] != float64(1) || out["well_formed"] != float64(2) {
		t.Fatalf("unexpected counts: %v", out)
	}
}

func TestIsWrapper(t *testing.T) {
	cases := map[string]bool{
		"github.com/sirupsen/logrus.(*Entry).Log": true,
		"satcatflow/logger.(*Entry).Info":         true,
		"satcatflow/pipeline.(*Pipeline).Run":     false,
		"satcatflow/loggerx.Fn":                   false,
	}
	for fn, want := range cases {
		if got := isWrapper(fn); got != want {
			t.Errorf("isWrapper(%q) = %v, want %v", fn, got, want)
		}
	}
}
