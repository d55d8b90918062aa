package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
satcatflow:
  name: satcatflow
  version: "1.0.0"
spacetrack:
  base_url: https://catalog.example.org
  identity: user@example.org
  password: secret
pipeline:
  max_records: 100
  rate_limit_batch_size: 18
  rate_limit_pause: 60s
  sinks: [json, Spreadsheet]
output:
  dir: out
`

func TestParseAppliesDefaultsAndOverrides(t *testing.T) {
	t.Setenv("SPACETRACK_IDENTITY", "")
	t.Setenv("SPACETRACK_PASSWORD", "")

	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Pipeline.MaxRecords != 100 {
		t.Fatalf("max_records = %d", cfg.Pipeline.MaxRecords)
	}
	if cfg.Pipeline.RateLimitPause != time.Minute {
		t.Fatalf("rate_limit_pause = %v", cfg.Pipeline.RateLimitPause)
	}
	if !cfg.HasSink(SinkJSON) || !cfg.HasSink(SinkSpreadsheet) || cfg.HasSink(SinkParquet) {
		t.Fatalf("unexpected sinks %v", cfg.Pipeline.Sinks)
	}
	if cfg.Output.JSONFile != "starlink-track.json" {
		t.Fatalf("default json file not kept: %q", cfg.Output.JSONFile)
	}
	if cfg.SpaceTrack.RequestsPerMinute != 20 {
		t.Fatalf("default requests_per_minute not kept: %d", cfg.SpaceTrack.RequestsPerMinute)
	}
}

func TestParseCredentialsFromEnv(t *testing.T) {
	t.Setenv("SPACETRACK_IDENTITY", "env-user")
	t.Setenv("SPACETRACK_PASSWORD", "env-pass")

	cfg, err := Parse([]byte("satcatflow:\n  name: satcatflow\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.SpaceTrack.Identity != "env-user" || cfg.SpaceTrack.Password != "env-pass" {
		t.Fatalf("credentials not taken from env: %+v", cfg.SpaceTrack)
	}
}

func TestParseValidation(t *testing.T) {
	t.Setenv("SPACETRACK_IDENTITY", "")
	t.Setenv("SPACETRACK_PASSWORD", "")

	cases := []struct {
		name    string
		replace [2]string
		want    string
	}{
		{"unknown sink", [2]string{"sinks: [json, Spreadsheet]", "sinks: [csv]"}, "unknown sink"},
		{"duplicate sink", [2]string{"sinks: [json, Spreadsheet]", "sinks: [json, json]"}, "duplicate sink"},
		{"zero batch", [2]string{"rate_limit_batch_size: 18", "rate_limit_batch_size: 0"}, "rate_limit_batch_size"},
		{"negative limit", [2]string{"max_records: 100", "max_records: -1"}, "max_records"},
		{"missing password", [2]string{"password: secret", "password: \"\""}, "password"},
		{"relative url", [2]string{"https://catalog.example.org", "catalog"}, "base_url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := strings.Replace(sampleConfig, tc.replace[0], tc.replace[1], 1)
			_, err := Parse([]byte(data))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestS3BucketValidation(t *testing.T) {
	for name, want := range map[string]bool{
		"satcat-exports": true,
		"ab":             false,
		"Upper":          false,
		"a..b":           false,
	} {
		if got := isValidS3Bucket(name); got != want {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "config.yml")
	prod := filepath.Join(dir, "config.production.yml")
	if err := os.WriteFile(prod, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("APP_ENV", "prod")
	if got := ResolvePath("", def); got != prod {
		t.Fatalf("expected %s, got %s", prod, got)
	}
	if got := ResolvePath("custom.yml", def); got != "custom.yml" {
		t.Fatalf("explicit path rewritten: %s", got)
	}

	t.Setenv("APP_ENV", "staging")
	if got := ResolvePath(def, def); got != def {
		t.Fatalf("expected fallback to %s, got %s", def, got)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	t.Setenv("SPACETRACK_IDENTITY", "env-user")
	t.Setenv("SPACETRACK_PASSWORD", "env-pass")

	cfg, err := LoadConfig("config.yml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.RateLimitBatchSize != 18 || cfg.Pipeline.RateLimitPause != time.Minute {
		t.Fatalf("unexpected rate limit settings %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.MaxRecords != 3000 {
		t.Fatalf("max_records = %d", cfg.Pipeline.MaxRecords)
	}
}

func TestValidateAfterOverride(t *testing.T) {
	t.Setenv("SPACETRACK_IDENTITY", "")
	t.Setenv("SPACETRACK_PASSWORD", "")

	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg.Pipeline.Sinks = []string{SinkJSON, SinkJSON}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate sink error, got %v", err)
	}
}
