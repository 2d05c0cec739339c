package parser

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	perrors "github.com/logflow/eventlog/pkg/errors"
)

const claimsXES = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1.0">
	<trace>
		<string key="concept:name" value="C1"/>
		<string key="Region" value="North"/>
		<event>
			<string key="concept:name" value="Submit"/>
			<string key="lifecycle:transition" value="complete"/>
			<date key="time:timestamp" value="2021-01-01T10:00:00.000+00:00"/>
			<string key="Amount" value="250"/>
		</event>
		<event>
			<string key="concept:name" value="Approve"/>
			<date key="time:timestamp" value="2021-01-01T09:00:00.000+00:00"/>
			<int key="Level" value="2"/>
			<string key="org:resource" value="ann"/>
		</event>
	</trace>
	<trace>
		<string key="concept:name" value="C2"/>
		<event>
			<string key="concept:name" value="Submit"/>
			<date key="time:timestamp" value="2021-01-02T10:00:00.000+00:00"/>
		</event>
	</trace>
</log>
`

func TestParseStructured_Claims(t *testing.T) {
	log, err := ParseStructured(writeTemp(t, "claims.xes", claimsXES))
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}

	ids := log.CaseIDs()
	if len(ids) != 2 || ids[0] != "C1" || ids[1] != "C2" {
		t.Fatalf("Expected cases [C1 C2] in trace order, got %v", ids)
	}

	c1, _ := log.Case("C1")
	acts := c1.Activities()
	// Trace order is kept even though Approve is earlier in time.
	if len(acts) != 2 || acts[0] != "Submit" || acts[1] != "Approve" {
		t.Errorf("Expected [Submit Approve], got %v", acts)
	}

	submit := c1.Event(0)
	if !submit.Timestamp().Equal(time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected timestamp %v", submit.Timestamp())
	}
	attrs := submit.Attributes()
	if len(attrs) != 1 || attrs["Amount"] != "250" {
		t.Errorf("Expected only {Amount: 250}, got %v", attrs)
	}

	approve := c1.Event(1)
	if v, _ := approve.Attribute("Level"); v != "2" {
		t.Errorf("Expected int attribute coerced to \"2\", got %q", v)
	}
	if _, ok := approve.Attribute("org:resource"); ok {
		t.Error("Lower-case keys must be filtered out")
	}

	c2, _ := log.Case("C2")
	if n := c2.Event(0).NumAttributes(); n != 0 {
		t.Errorf("Expected empty payload, got %d attributes", n)
	}
}

func TestStructuredReader_FilterAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AttributeFilter = FilterAll

	log, err := NewStructuredReader(cfg).Parse(writeTemp(t, "claims.xes", claimsXES))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c1, _ := log.Case("C1")
	attrs := c1.Event(0).Attributes()
	if attrs["lifecycle:transition"] != "complete" || attrs["Amount"] != "250" {
		t.Errorf("Expected lifecycle and Amount, got %v", attrs)
	}
	if _, ok := attrs["concept:name"]; ok {
		t.Error("concept:name is the event name, not payload")
	}
	if _, ok := attrs["time:timestamp"]; ok {
		t.Error("time:timestamp is the event time, not payload")
	}
}

func TestParseStructured_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    perrors.Code
	}{
		{"csv input", "log.csv", "case,event,time\nC1,A,01.01.21 10:00\n", perrors.CodeUnrecognizedFormat},
		{"empty file", "empty.xes", "", perrors.CodeUnrecognizedFormat},
		{"truncated xml", "cut.xes", "<log><trace><string key=\"concept:name\" value=\"C1\"/>", perrors.CodeDecodeFailure},
		{"bad date", "date.xes", `<log><trace><string key="concept:name" value="C1"/><event><string key="concept:name" value="A"/><date key="time:timestamp" value="soon"/></event></trace></log>`, perrors.CodeDecodeFailure},
		{"no log element", "html.xes", "<html><body/></html>", perrors.CodeEmptyLog},
		{"trace without name", "anon.xes", `<log><trace><event/></trace></log>`, perrors.CodeDecodeFailure},
		{"event without name", "noname.xes", `<log><trace><string key="concept:name" value="C1"/><event><date key="time:timestamp" value="2021-01-01T00:00:00Z"/></event></trace></log>`, perrors.CodeDecodeFailure},
		{"event without time", "notime.xes", `<log><trace><string key="concept:name" value="C1"/><event><string key="concept:name" value="A"/></event></trace></log>`, perrors.CodeDecodeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := ParseStructured(writeTemp(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Expected error")
			}
			if log != nil {
				t.Error("No partial log may accompany an error")
			}
			if got := perrors.GetCode(err); got != tt.code {
				t.Errorf("Code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestParseStructured_NonXMLIsUnrecognized(t *testing.T) {
	_, err := ParseStructured(writeTemp(t, "data.bin", "just some text"))
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("Expected UnrecognizedFormat, got %v", err)
	}
}

func TestParseStructured_MissingFile(t *testing.T) {
	_, err := ParseStructured(filepath.Join(t.TempDir(), "missing.xes"))
	if !errors.Is(err, ErrIOFailure) {
		t.Errorf("Expected IOFailure, got %v", err)
	}
}

func TestParseStructured_DecodeFailureKeepsCause(t *testing.T) {
	_, err := ParseStructured(writeTemp(t, "bad.xes", `<log><trace></event></log>`))
	var pErr *perrors.ParseError
	if !errors.As(err, &pErr) {
		t.Fatalf("Expected *ParseError, got %T", err)
	}
	if pErr.Cause == nil {
		t.Error("DecodeFailure must carry the decoder error")
	}
}

func TestParseStructured_FirstLogOnly(t *testing.T) {
	doc := `<logs>
	<log><trace><string key="concept:name" value="A1"/></trace></log>
	<log><trace><string key="concept:name" value="B1"/></trace></log>
</logs>`

	core, logs := observer.New(zap.WarnLevel)
	log, err := NewStructuredReader(DefaultConfig(), WithLogger(zap.New(core))).Parse(writeTemp(t, "two.xes", doc))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, ok := log.Case("A1"); !ok || log.Len() != 1 {
		t.Errorf("Expected only the first log's case, got %v", log.CaseIDs())
	}
	if logs.Len() != 1 {
		t.Errorf("Expected one warning about extra logs, got %d", logs.Len())
	}
}

func TestParseStructured_DuplicateTraceIDsMerge(t *testing.T) {
	doc := `<log>
	<trace><string key="concept:name" value="C1"/><event><string key="concept:name" value="A"/><date key="time:timestamp" value="2021-01-01T00:00:00Z"/></event></trace>
	<trace><string key="concept:name" value="C1"/><event><string key="concept:name" value="B"/><date key="time:timestamp" value="2021-01-01T00:00:00Z"/></event></trace>
</log>`
	log, err := ParseStructured(writeTemp(t, "dup.xes", doc))
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}
	c, _ := log.Case("C1")
	if log.Len() != 1 || c.Len() != 2 {
		t.Errorf("Expected one merged case with 2 events, got %d cases / %d events", log.Len(), c.Len())
	}
}

func TestParseStructured_Gzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(claimsXES)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	log, err := ParseStructured(writeTemp(t, "claims.xes.gz", buf.String()))
	if err != nil {
		t.Fatalf("ParseStructured failed: %v", err)
	}
	if log.NumEvents() != 3 {
		t.Errorf("Expected 3 events, got %d", log.NumEvents())
	}
}
