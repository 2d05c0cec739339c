// Package parser reads process-execution logs into the normalized
// model.EventLog. Two formats are supported: delimited text and XES.
package parser

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logflow/eventlog/internal/model"
)

// Reader parses one file into a fully materialized EventLog.
// A non-nil error is always a *errors.ParseError and never comes with a log.
type Reader interface {
	Parse(path string) (*model.EventLog, error)
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatDelimited
	FormatStructured
	// FormatAuto picks delimited or structured per file by sniffing content.
	FormatAuto
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatDelimited:
		return "delimited"
	case FormatStructured:
		return "structured"
	case FormatAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "delimited", "csv", "txt":
		return FormatDelimited
	case "structured", "xes", "xml":
		return FormatStructured
	case "auto", "":
		return FormatAuto
	default:
		return FormatUnknown
	}
}

// AttributeFilter selects which XES event attributes reach the payload.
type AttributeFilter uint8

const (
	// FilterUpperCase keeps keys whose first character is upper-case.
	// Lower-case keys carry extension metadata such as lifecycle:transition.
	FilterUpperCase AttributeFilter = iota
	// FilterAll keeps every key except concept:name and time:timestamp.
	FilterAll
)

// String returns the filter name.
func (f AttributeFilter) String() string {
	if f == FilterAll {
		return "all"
	}
	return "uppercase"
}

// ParseAttributeFilter parses a filter name. Unknown names yield false.
func ParseAttributeFilter(s string) (AttributeFilter, bool) {
	switch strings.ToLower(s) {
	case "", "uppercase", "upper":
		return FilterUpperCase, true
	case "all":
		return FilterAll, true
	default:
		return FilterUpperCase, false
	}
}

// DefaultTimestampLayout is dd.MM.yy HH:mm.
const DefaultTimestampLayout = "02.01.06 15:04"

// DefaultDelimiters accepts comma and semicolon interchangeably.
const DefaultDelimiters = ",;"

// Config holds reader configuration.
type Config struct {
	// Delimiters lists the field separator bytes for delimited input.
	Delimiters string

	// TimestampLayout is the Go time layout of the timestamp column.
	TimestampLayout string

	// Location is the zone timestamps without offset are read in.
	Location *time.Location

	// TrimSpace strips surrounding whitespace from delimited fields.
	TrimSpace bool

	// Quotes enables RFC 4180 style double-quoted fields in delimited
	// input. Off by default: quotes are ordinary characters.
	Quotes bool

	// AttributeFilter selects XES event attributes.
	AttributeFilter AttributeFilter

	// Concurrency bounds ParseFiles. Zero or less means one file at a time.
	Concurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Delimiters:      DefaultDelimiters,
		TimestampLayout: DefaultTimestampLayout,
		Location:        time.UTC,
		TrimSpace:       true,
		AttributeFilter: FilterUpperCase,
		Concurrency:     4,
	}
}

// withDefaults fills zero fields so a partially built Config is usable.
func (c Config) withDefaults() Config {
	if c.Delimiters == "" {
		c.Delimiters = DefaultDelimiters
	}
	if c.TimestampLayout == "" {
		c.TimestampLayout = DefaultTimestampLayout
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Option configures a reader.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for parse summaries.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewReader creates a reader for the given format.
func NewReader(format Format, cfg Config, opts ...Option) (Reader, error) {
	switch format {
	case FormatDelimited:
		return NewDelimitedReader(cfg, opts...), nil
	case FormatStructured:
		return NewStructuredReader(cfg, opts...), nil
	case FormatAuto:
		return NewAutoReader(cfg, opts...), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseDelimited parses a delimited-text log with the default configuration.
func ParseDelimited(path string) (*model.EventLog, error) {
	return NewDelimitedReader(DefaultConfig()).Parse(path)
}

// ParseStructured parses an XES log with the default configuration.
func ParseStructured(path string) (*model.EventLog, error) {
	return NewStructuredReader(DefaultConfig()).Parse(path)
}
