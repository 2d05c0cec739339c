// Package generators provides test data generation utilities.
package generators

import (
	"encoding/xml"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// Row is one generated event as it was written.
type Row struct {
	CaseID     string
	Activity   string
	Timestamp  time.Time
	Attributes map[string]string
}

// EventLogGenerator produces random event logs in the delimited and XES
// formats together with the rows it wrote, so tests can compare.
type EventLogGenerator struct {
	rng *rand.Rand

	// Schema
	Activities []string
	Attributes []AttributeSpec

	// Output settings
	Delimiters string // separators to pick from per field
	Cases      int    // number of distinct case ids

	// Data characteristics
	EmptyRate float64 // probability of an empty attribute value
	MinTime   time.Time
	MaxTime   time.Time
}

// AttributeSpec defines an attribute column's generation rules.
type AttributeSpec struct {
	Name   string
	Values []string // enum values; empty means a random integer
}

// NewEventLogGenerator creates a generator with default settings.
func NewEventLogGenerator(seed int64) *EventLogGenerator {
	return &EventLogGenerator{
		rng: rand.New(rand.NewSource(seed)),
		Activities: []string{
			"Submit Order", "Approve Order", "Process Payment",
			"Ship Order", "Deliver Order", "Close Order",
		},
		Attributes: []AttributeSpec{
			{Name: "Resource", Values: []string{"Alice", "Bob", "Charlie", "Diana", "Eve"}},
			{Name: "Amount"},
			{Name: "Status", Values: []string{"Open", "Closed", "Pending"}},
		},
		Delimiters: ",;",
		Cases:      10,
		EmptyRate:  0.05,
		MinTime:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxTime:    time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
	}
}

// Rows generates n events spread over the configured number of cases.
func (g *EventLogGenerator) Rows(n int) []Row {
	cases := g.Cases
	if cases <= 0 {
		cases = 1
	}
	rows := make([]Row, n)
	for i := range rows {
		attrs := make(map[string]string, len(g.Attributes))
		for _, spec := range g.Attributes {
			attrs[spec.Name] = g.value(spec)
		}
		rows[i] = Row{
			CaseID:     "case-" + strconv.Itoa(g.rng.Intn(cases)+1),
			Activity:   g.Activities[g.rng.Intn(len(g.Activities))],
			Timestamp:  g.timestamp(),
			Attributes: attrs,
		}
	}
	return rows
}

// WriteDelimited writes rows in the delimited format with a header line.
// Timestamps use dd.MM.yy HH:mm.
func (g *EventLogGenerator) WriteDelimited(w io.Writer, rows []Row) error {
	header := []string{"case", "event", "time"}
	for _, spec := range g.Attributes {
		header = append(header, spec.Name)
	}
	if _, err := io.WriteString(w, g.join(header)+"\n"); err != nil {
		return err
	}

	fields := make([]string, 0, len(header))
	for _, r := range rows {
		fields = append(fields[:0], r.CaseID, r.Activity, r.Timestamp.Format("02.01.06 15:04"))
		for _, spec := range g.Attributes {
			fields = append(fields, r.Attributes[spec.Name])
		}
		if _, err := io.WriteString(w, g.join(fields)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteXES writes rows as an XES document, one trace per case in order of
// first appearance. Each event also gets a lower-case lifecycle attribute.
func (g *EventLogGenerator) WriteXES(w io.Writer, rows []Row) error {
	var order []string
	byCase := make(map[string][]Row)
	for _, r := range rows {
		if _, ok := byCase[r.CaseID]; !ok {
			order = append(order, r.CaseID)
		}
		byCase[r.CaseID] = append(byCase[r.CaseID], r)
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<log xes.version="1.0">` + "\n")
	for _, id := range order {
		sb.WriteString("  <trace>\n")
		writeAttr(&sb, "    ", "string", "concept:name", id)
		for _, r := range byCase[id] {
			sb.WriteString("    <event>\n")
			writeAttr(&sb, "      ", "string", "concept:name", r.Activity)
			writeAttr(&sb, "      ", "string", "lifecycle:transition", "complete")
			writeAttr(&sb, "      ", "date", "time:timestamp", r.Timestamp.Format(time.RFC3339))
			for _, spec := range g.Attributes {
				writeAttr(&sb, "      ", "string", spec.Name, r.Attributes[spec.Name])
			}
			sb.WriteString("    </event>\n")
		}
		sb.WriteString("  </trace>\n")
	}
	sb.WriteString("</log>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeAttr(sb *strings.Builder, indent, typ, key, value string) {
	var k, v strings.Builder
	xml.EscapeText(&k, []byte(key))
	xml.EscapeText(&v, []byte(value))
	fmt.Fprintf(sb, "%s<%s key=\"%s\" value=\"%s\"/>\n", indent, typ, k.String(), v.String())
}

// join separates fields with delimiters picked at random from the set.
func (g *EventLogGenerator) join(fields []string) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(g.Delimiters[g.rng.Intn(len(g.Delimiters))])
		}
		sb.WriteString(f)
	}
	return sb.String()
}

func (g *EventLogGenerator) value(spec AttributeSpec) string {
	if g.EmptyRate > 0 && g.rng.Float64() < g.EmptyRate {
		return ""
	}
	if len(spec.Values) == 0 {
		return strconv.Itoa(g.rng.Intn(100000))
	}
	return spec.Values[g.rng.Intn(len(spec.Values))]
}

// timestamp returns a minute-aligned instant, the resolution of dd.MM.yy HH:mm.
func (g *EventLogGenerator) timestamp() time.Time {
	minutes := int64(g.MaxTime.Sub(g.MinTime) / time.Minute)
	if minutes <= 0 {
		return g.MinTime.Truncate(time.Minute)
	}
	return g.MinTime.Truncate(time.Minute).Add(time.Duration(g.rng.Int63n(minutes)) * time.Minute)
}
