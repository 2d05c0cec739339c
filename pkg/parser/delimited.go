package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logflow/eventlog/internal/model"
	perrors "github.com/logflow/eventlog/pkg/errors"
)

// Fixed column positions of the delimited format. Columns after these are
// attributes named by the header.
const (
	colCaseID = iota
	colEventName
	colTimestamp
	firstAttributeCol
)

const utf8BOM = "\uFEFF"

// DelimitedReader parses delimited-text logs of the form
//
//	case id, event name, timestamp, attr1, ..., attrN
//
// into an EventLog. Events are grouped by case id in file order.
type DelimitedReader struct {
	cfg     Config
	scanner *FieldScanner
	logger  *zap.Logger
}

// NewDelimitedReader creates a new delimited reader.
func NewDelimitedReader(cfg Config, opts ...Option) *DelimitedReader {
	cfg = cfg.withDefaults()
	o := buildOptions(opts)
	return &DelimitedReader{
		cfg:     cfg,
		scanner: NewFieldScanner(cfg.Delimiters, cfg.Quotes),
		logger:  o.logger,
	}
}

// Parse implements the Reader interface.
func (r *DelimitedReader) Parse(path string) (*model.EventLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, perrors.IOFailure(path, err)
	}
	defer f.Close()

	return r.ParseReader(path, f)
}

// ParseReader parses delimited text from rd. name identifies the input in
// errors and log lines.
func (r *DelimitedReader) ParseReader(name string, rd io.Reader) (*model.EventLog, error) {
	reader := bufio.NewReaderSize(rd, 64*1024)
	builder := model.NewBuilder()

	var header []string
	lineNum := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, perrors.IOFailure(name, err)
		}
		if len(line) == 0 && err == io.EOF {
			break
		}
		lineNum++
		line = trimLineEnding(line)

		if header == nil {
			header = r.split(strings.TrimPrefix(line, utf8BOM))
			if len(header) < firstAttributeCol {
				return nil, perrors.MalformedRow(name, lineNum, "header needs case id, event name and timestamp columns").
					WithContext("columns", len(header))
			}
		} else if strings.TrimSpace(line) != "" {
			caseID, event, perr := r.parseRow(name, lineNum, header, line)
			if perr != nil {
				return nil, perr
			}
			builder.Append(caseID, event)
		}

		if err == io.EOF {
			break
		}
	}

	if header == nil {
		return nil, perrors.MalformedRow(name, 1, "header row is missing")
	}

	log := builder.Build()
	r.logger.Debug("parsed delimited log",
		zap.String("path", name),
		zap.Int("rows", lineNum-1),
		zap.Int("cases", log.Len()),
		zap.Int("events", log.NumEvents()))
	return log, nil
}

// parseRow turns one data line into a case id and its event.
func (r *DelimitedReader) parseRow(name string, lineNum int, header []string, line string) (string, model.Event, *perrors.ParseError) {
	fields := r.split(line)
	if len(fields) < len(header) {
		return "", model.Event{}, perrors.MalformedRow(name, lineNum, "row has fewer columns than the header").
			WithContext("want", len(header)).
			WithContext("got", len(fields))
	}

	caseID := fields[colCaseID]
	if caseID == "" {
		return "", model.Event{}, perrors.MalformedRow(name, lineNum, "empty case id")
	}
	eventName := fields[colEventName]
	if eventName == "" {
		return "", model.Event{}, perrors.MalformedRow(name, lineNum, "empty event name")
	}

	raw := fields[colTimestamp]
	ts, err := time.ParseInLocation(r.cfg.TimestampLayout, raw, r.cfg.Location)
	if err != nil {
		perr := perrors.MalformedRow(name, lineNum, "timestamp does not match layout").
			WithContext("value", raw).
			WithContext("layout", r.cfg.TimestampLayout)
		perr.Cause = err
		return "", model.Event{}, perr
	}

	// Extra columns beyond the header are ignored.
	attrs := make(map[string]string, len(header)-firstAttributeCol)
	for i := firstAttributeCol; i < len(header); i++ {
		attrs[header[i]] = fields[i]
	}

	return caseID, model.NewEvent(eventName, ts, attrs), nil
}

func (r *DelimitedReader) split(line string) []string {
	fields := r.scanner.ScanLine(line)
	if r.cfg.TrimSpace {
		for i, f := range fields {
			fields[i] = strings.TrimSpace(f)
		}
	}
	return fields
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
