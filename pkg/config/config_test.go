package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/logflow/eventlog/pkg/export"
	"github.com/logflow/eventlog/pkg/parser"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{
		"EVENTLOG_DELIMITERS", "EVENTLOG_TIMESTAMP_LAYOUT", "EVENTLOG_TIMEZONE",
		"EVENTLOG_TRIM_SPACE", "EVENTLOG_ATTRIBUTE_FILTER", "EVENTLOG_CONCURRENCY",
		"EVENTLOG_COMPRESSION", "EVENTLOG_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefault_ParserConfig(t *testing.T) {
	cfg, err := Default().ParserConfig()
	if err != nil {
		t.Fatalf("ParserConfig failed: %v", err)
	}
	if cfg.TimestampLayout != "02.01.06 15:04" {
		t.Errorf("TimestampLayout = %q", cfg.TimestampLayout)
	}
	if cfg.Delimiters != ",;" {
		t.Errorf("Delimiters = %q", cfg.Delimiters)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if !cfg.TrimSpace {
		t.Error("TrimSpace should default to true")
	}
	if cfg.Quotes {
		t.Error("Quotes should default to false")
	}
	if cfg.AttributeFilter != parser.FilterUpperCase {
		t.Errorf("AttributeFilter = %v", cfg.AttributeFilter)
	}
}

func TestManager_LoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "eventlog.yaml")
	content := `
delimited:
  delimiters: "|"
  trim_space: false
  quotes: true
structured:
  attribute_filter: all
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EVENTLOG_TIMESTAMP_LAYOUT", "2006-01-02 15:04")

	m := NewManager()
	if err := m.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()

	if cfg.Delimited.Delimiters != "|" {
		t.Errorf("Delimiters = %q, want |", cfg.Delimited.Delimiters)
	}
	if cfg.Delimited.TimestampLayout != "2006-01-02 15:04" {
		t.Errorf("env override not applied: %q", cfg.Delimited.TimestampLayout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	// Untouched sections keep defaults.
	if cfg.Export.Compression != "snappy" {
		t.Errorf("Compression = %q, want default snappy", cfg.Export.Compression)
	}

	pc, err := cfg.ParserConfig()
	if err != nil {
		t.Fatalf("ParserConfig failed: %v", err)
	}
	if pc.TrimSpace {
		t.Error("trim_space: false was not applied")
	}
	if !pc.Quotes {
		t.Error("quotes: true was not applied")
	}
	if pc.AttributeFilter != parser.FilterAll {
		t.Error("attribute_filter: all was not applied")
	}

	paths := m.GetPaths()
	if len(paths) == 0 || paths[len(paths)-1] != path {
		t.Errorf("Loaded paths = %v", paths)
	}
}

func TestManager_LoadErrors(t *testing.T) {
	dir := isolate(t)

	m := NewManager()
	if err := m.Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Explicit missing file should fail")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("structured:\n  attribute_filter: lowercase\n"), 0o644)
	if err := m.Load(bad); err == nil {
		t.Error("Unknown attribute filter should fail validation")
	}

	t.Setenv("EVENTLOG_CONCURRENCY", "many")
	if err := NewManager().Load(); err == nil {
		t.Error("Invalid EVENTLOG_CONCURRENCY should fail")
	}
}

func TestManager_ErrRecordsLastLoad(t *testing.T) {
	dir := isolate(t)

	m := NewManager()
	if m.Err() != nil {
		t.Errorf("Err before Load = %v, want nil", m.Err())
	}
	if err := m.Load(filepath.Join(dir, "missing.yaml")); err == nil || m.Err() != err {
		t.Errorf("Err = %v, want the Load error %v", m.Err(), err)
	}
	if err := m.Load(); err != nil || m.Err() != nil {
		t.Errorf("Err after a clean Load = %v", m.Err())
	}
}

func TestGlobal_MalformedUserConfig(t *testing.T) {
	dir := isolate(t)
	userDir := filepath.Join(dir, ".eventlog")
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("delimited: [not, a, map\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := newGlobal()
	if m.Err() == nil {
		t.Fatal("Expected the malformed user config to be reported")
	}
	if got := m.Get().Delimited.Delimiters; got != ",;" {
		t.Errorf("Delimiters = %q, want defaults after a failed load", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty delimiters", func(c *Config) { c.Delimited.Delimiters = "" }},
		{"empty layout", func(c *Config) { c.Delimited.TimestampLayout = "" }},
		{"bad timezone", func(c *Config) { c.Delimited.Timezone = "Mars/Olympus" }},
		{"negative concurrency", func(c *Config) { c.Batch.Concurrency = -1 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad compression", func(c *Config) { c.Export.Compression = "rar" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestExportOptions(t *testing.T) {
	c := Default()
	c.Export.Compression = "ZSTD"
	opts, err := c.ExportOptions()
	if err != nil {
		t.Fatalf("ExportOptions failed: %v", err)
	}
	if opts.Compression != export.CompressionZstd {
		t.Errorf("Compression = %q, want zstd", opts.Compression)
	}
}

func TestManager_SaveRoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", "config.yaml")

	m := NewManager()
	m.Get().Delimited.Timezone = "Europe/Tallinn"
	if err := m.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := NewManager()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Get().Delimited.Timezone != "Europe/Tallinn" {
		t.Errorf("Timezone = %q", loaded.Get().Delimited.Timezone)
	}
}
