// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < explicit files < env
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/logflow/eventlog/pkg/export"
	"github.com/logflow/eventlog/pkg/parser"
)

// Config holds all eventlog configuration.
type Config struct {
	Version int `yaml:"version"`

	Delimited  DelimitedConfig  `yaml:"delimited"`
	Structured StructuredConfig `yaml:"structured"`
	Batch      BatchConfig      `yaml:"batch"`
	Export     ExportConfig     `yaml:"export"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DelimitedConfig controls the delimited-text reader.
type DelimitedConfig struct {
	Delimiters      string `yaml:"delimiters"`       // any of these bytes separates fields
	TimestampLayout string `yaml:"timestamp_layout"` // Go layout, default dd.MM.yy HH:mm
	Timezone        string `yaml:"timezone"`         // IANA name, e.g. "Europe/Tallinn"
	TrimSpace       *bool  `yaml:"trim_space"`
	Quotes          *bool  `yaml:"quotes"` // honor double-quoted fields; default off
}

// StructuredConfig controls the XES reader.
type StructuredConfig struct {
	AttributeFilter string `yaml:"attribute_filter"` // uppercase | all
}

// BatchConfig controls multi-file parsing.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// ExportConfig controls columnar export.
type ExportConfig struct {
	Compression string `yaml:"compression"` // snappy | zstd | gzip | none
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// Default returns the default configuration.
func Default() *Config {
	trim := true
	return &Config{
		Version: 1,
		Delimited: DelimitedConfig{
			Delimiters:      parser.DefaultDelimiters,
			TimestampLayout: parser.DefaultTimestampLayout,
			Timezone:        "UTC",
			TrimSpace:       &trim,
		},
		Structured: StructuredConfig{
			AttributeFilter: "uppercase",
		},
		Batch: BatchConfig{
			Concurrency: runtime.NumCPU(),
		},
		Export: ExportConfig{
			Compression: "snappy",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if c.Delimited.Delimiters == "" {
		return fmt.Errorf("config: delimited.delimiters must not be empty")
	}
	if c.Delimited.TimestampLayout == "" {
		return fmt.Errorf("config: delimited.timestamp_layout must not be empty")
	}
	if _, err := time.LoadLocation(c.Delimited.Timezone); err != nil {
		return fmt.Errorf("config: delimited.timezone: %w", err)
	}
	if _, ok := parser.ParseAttributeFilter(c.Structured.AttributeFilter); !ok {
		return fmt.Errorf("config: unknown structured.attribute_filter %q", c.Structured.AttributeFilter)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("config: batch.concurrency must not be negative")
	}
	if _, err := export.ParseCompression(c.Export.Compression); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// ParserConfig converts the reader sections into a parser.Config.
func (c *Config) ParserConfig() (parser.Config, error) {
	if err := c.Validate(); err != nil {
		return parser.Config{}, err
	}
	loc, _ := time.LoadLocation(c.Delimited.Timezone)
	filter, _ := parser.ParseAttributeFilter(c.Structured.AttributeFilter)

	cfg := parser.DefaultConfig()
	cfg.Delimiters = c.Delimited.Delimiters
	cfg.TimestampLayout = c.Delimited.TimestampLayout
	cfg.Location = loc
	if c.Delimited.TrimSpace != nil {
		cfg.TrimSpace = *c.Delimited.TrimSpace
	}
	if c.Delimited.Quotes != nil {
		cfg.Quotes = *c.Delimited.Quotes
	}
	cfg.AttributeFilter = filter
	cfg.Concurrency = c.Batch.Concurrency
	return cfg, nil
}

// ExportOptions converts the export section into export.Options.
func (c *Config) ExportOptions() (export.Options, error) {
	comp, err := export.ParseCompression(c.Export.Compression)
	if err != nil {
		return export.Options{}, fmt.Errorf("config: %w", err)
	}
	return export.Options{Compression: comp}, nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
	err    error    // Result of the last Load
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order. The standard
// locations may be absent; files passed in extra must exist.
func (m *Manager) Load(extra ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = m.load(extra)
	return m.err
}

func (m *Manager) load(extra []string) error {
	// Start with defaults
	m.config = Default()
	m.paths = nil

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	for _, path := range extra {
		if err := m.loadFile(path); err != nil {
			return err
		}
		m.paths = append(m.paths, path)
	}

	// Override with environment variables
	if err := m.loadEnv(); err != nil {
		return err
	}

	return m.config.Validate()
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/eventlog/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".eventlog", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".eventlog.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}

	// Merge non-zero values
	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Delimited
	if src.Delimited.Delimiters != "" {
		m.config.Delimited.Delimiters = src.Delimited.Delimiters
	}
	if src.Delimited.TimestampLayout != "" {
		m.config.Delimited.TimestampLayout = src.Delimited.TimestampLayout
	}
	if src.Delimited.Timezone != "" {
		m.config.Delimited.Timezone = src.Delimited.Timezone
	}
	if src.Delimited.TrimSpace != nil {
		m.config.Delimited.TrimSpace = src.Delimited.TrimSpace
	}
	if src.Delimited.Quotes != nil {
		m.config.Delimited.Quotes = src.Delimited.Quotes
	}

	// Structured
	if src.Structured.AttributeFilter != "" {
		m.config.Structured.AttributeFilter = src.Structured.AttributeFilter
	}

	// Batch
	if src.Batch.Concurrency != 0 {
		m.config.Batch.Concurrency = src.Batch.Concurrency
	}

	// Export
	if src.Export.Compression != "" {
		m.config.Export.Compression = src.Export.Compression
	}

	// Logging
	if src.Logging.Level != "" {
		m.config.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		m.config.Logging.Format = src.Logging.Format
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() error {
	if v := os.Getenv("EVENTLOG_DELIMITERS"); v != "" {
		m.config.Delimited.Delimiters = v
	}
	if v := os.Getenv("EVENTLOG_TIMESTAMP_LAYOUT"); v != "" {
		m.config.Delimited.TimestampLayout = v
	}
	if v := os.Getenv("EVENTLOG_TIMEZONE"); v != "" {
		m.config.Delimited.Timezone = v
	}
	if v := os.Getenv("EVENTLOG_TRIM_SPACE"); v != "" {
		trim, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: EVENTLOG_TRIM_SPACE: %w", err)
		}
		m.config.Delimited.TrimSpace = &trim
	}
	if v := os.Getenv("EVENTLOG_ATTRIBUTE_FILTER"); v != "" {
		m.config.Structured.AttributeFilter = v
	}
	if v := os.Getenv("EVENTLOG_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: EVENTLOG_CONCURRENCY: %w", err)
		}
		m.config.Batch.Concurrency = n
	}
	if v := os.Getenv("EVENTLOG_COMPRESSION"); v != "" {
		m.config.Export.Compression = v
	}
	if v := os.Getenv("EVENTLOG_LOG_LEVEL"); v != "" {
		m.config.Logging.Level = v
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Err returns the error of the last Load, or nil.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to path.
func (m *Manager) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager. If loading failed the
// defaults are in place and Err reports why.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = newGlobal()
	})
	return globalManager
}

func newGlobal() *Manager {
	m := NewManager()
	if err := m.Load(); err != nil {
		m.mu.Lock()
		m.config = Default()
		m.mu.Unlock()
	}
	return m
}
