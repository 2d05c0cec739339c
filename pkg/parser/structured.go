package parser

import (
	"errors"
	"fmt"
	"io/fs"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/logflow/eventlog/internal/model"
	perrors "github.com/logflow/eventlog/pkg/errors"
	"github.com/logflow/eventlog/pkg/xes"
)

// StructuredReader parses XES logs into an EventLog.
//
// Two limitations are deliberate: only the first log of a document is read,
// and trace attributes other than concept:name are not carried over.
type StructuredReader struct {
	cfg    Config
	xes    *xes.XMLParser
	logger *zap.Logger
}

// NewStructuredReader creates a new XES reader.
func NewStructuredReader(cfg Config, opts ...Option) *StructuredReader {
	o := buildOptions(opts)
	return &StructuredReader{
		cfg:    cfg.withDefaults(),
		xes:    xes.NewXMLParser(),
		logger: o.logger,
	}
}

// Parse implements the Reader interface.
func (r *StructuredReader) Parse(path string) (*model.EventLog, error) {
	ok, err := r.xes.Recognize(path)
	if err != nil {
		return nil, perrors.IOFailure(path, err)
	}
	if !ok {
		return nil, perrors.UnrecognizedFormat(path)
	}

	logs, err := r.xes.Parse(path)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return nil, perrors.IOFailure(path, err)
		}
		return nil, perrors.DecodeFailure(path, err)
	}
	if len(logs) == 0 {
		return nil, perrors.EmptyLog(path)
	}
	if len(logs) > 1 {
		r.logger.Warn("document contains several logs, reading the first",
			zap.String("path", path),
			zap.Int("logs", len(logs)))
	}

	log, err := r.convert(path, logs[0])
	if err != nil {
		return nil, err
	}
	r.logger.Debug("parsed structured log",
		zap.String("path", path),
		zap.Int("cases", log.Len()),
		zap.Int("events", log.NumEvents()))
	return log, nil
}

// convert maps one XES log onto the model, keeping trace and event order.
func (r *StructuredReader) convert(path string, xlog *xes.Log) (*model.EventLog, error) {
	builder := model.NewBuilder()

	for ti, trace := range xlog.Traces {
		caseID, ok := xes.Concept.ExtractName(trace)
		if !ok || caseID == "" {
			return nil, perrors.DecodeFailure(path,
				fmt.Errorf("trace %d has no %s", ti+1, xes.KeyConceptName)).
				WithContext("trace", ti+1)
		}

		events := make([]model.Event, 0, len(trace.Events))
		for ei, ev := range trace.Events {
			name, ok := xes.Concept.ExtractName(ev)
			if !ok || name == "" {
				return nil, perrors.DecodeFailure(path,
					fmt.Errorf("event %d of trace %q has no %s", ei+1, caseID, xes.KeyConceptName)).
					WithContext("trace", caseID)
			}
			ts, ok := xes.Time.ExtractTimestamp(ev)
			if !ok {
				return nil, perrors.DecodeFailure(path,
					fmt.Errorf("event %d of trace %q has no %s", ei+1, caseID, xes.KeyTimeTimestamp)).
					WithContext("trace", caseID)
			}
			events = append(events, model.NewEvent(name, ts, r.payload(ev)))
		}

		builder.AppendCase(caseID, events)
	}

	return builder.Build(), nil
}

// payload builds the business attributes of an event.
func (r *StructuredReader) payload(ev *xes.Event) map[string]string {
	attrs := ev.Attributes()
	out := make(map[string]string, attrs.Len())
	for _, a := range attrs.All() {
		if r.keep(a.Key) {
			out[a.Key] = a.String()
		}
	}
	return out
}

func (r *StructuredReader) keep(key string) bool {
	if r.cfg.AttributeFilter == FilterAll {
		return key != xes.KeyConceptName && key != xes.KeyTimeTimestamp
	}
	first, _ := utf8.DecodeRuneInString(key)
	return unicode.IsUpper(first)
}
