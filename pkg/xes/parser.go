package xes

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/html/charset"
)

// sniffSize is how many leading bytes CanParse inspects.
const sniffSize = 512

// ErrUnexpectedEOF is returned when the document ends inside an element.
var ErrUnexpectedEOF = errors.New("xes: unexpected end of document")

// timestampLayouts are the xs:dateTime renderings seen in XES files.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// XMLParser decodes plain or gzip-compressed XES documents.
// It holds no state and is safe for concurrent use.
type XMLParser struct{}

// NewXMLParser creates a new parser.
func NewXMLParser() *XMLParser {
	return &XMLParser{}
}

// CanParse reports whether path looks like an XES document.
func (p *XMLParser) CanParse(path string) bool {
	ok, err := p.Recognize(path)
	return err == nil && ok
}

// Recognize is CanParse with the I/O error reported separately from the
// verdict: the content must start with '<' once an optional gzip wrapper,
// UTF-8 BOM and leading whitespace are removed.
func (p *XMLParser) Recognize(path string) (bool, error) {
	rc, err := open(path)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			return false, err
		}
		// Gzip magic without a valid gzip header.
		return false, nil
	}
	defer rc.Close()

	sample, err := bufio.NewReaderSize(rc, sniffSize).Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		// A corrupt gzip stream is not a failure of the file itself.
		var pe *os.PathError
		if errors.As(err, &pe) {
			return false, err
		}
		return false, nil
	}
	return looksLikeXML(sample), nil
}

func looksLikeXML(sample []byte) bool {
	sample = bytes.TrimPrefix(sample, []byte{0xEF, 0xBB, 0xBF})
	sample = bytes.TrimLeft(sample, " \t\r\n")
	return len(sample) > 0 && sample[0] == '<'
}

// Parse decodes every log in the file at path.
func (p *XMLParser) Parse(path string) ([]*Log, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return p.ParseReader(rc)
}

// ParseReader decodes every <log> element in r, in document order.
func (p *XMLParser) ParseReader(r io.Reader) ([]*Log, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var logs []*Log
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xes: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "log" {
			continue
		}
		log, err := decodeLog(dec)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, nil
}

// walkChildren calls fn for each child element of the element whose start
// tag was just consumed, returning at its end tag. fn must consume the child.
func walkChildren(dec *xml.Decoder, fn func(xml.StartElement) error) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ErrUnexpectedEOF
		}
		if err != nil {
			return fmt.Errorf("xes: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := fn(t); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

func decodeLog(dec *xml.Decoder) (*Log, error) {
	log := &Log{Globals: make(map[string]*AttributeMap)}
	err := walkChildren(dec, func(se xml.StartElement) error {
		switch se.Name.Local {
		case "trace":
			tr, err := decodeTrace(dec)
			if err != nil {
				return err
			}
			log.Traces = append(log.Traces, tr)
			return nil
		case "extension":
			log.Extensions = append(log.Extensions, Extension{
				Name:   attr(se, "name"),
				Prefix: attr(se, "prefix"),
				URI:    attr(se, "uri"),
			})
			return dec.Skip()
		case "classifier":
			log.Classifiers = append(log.Classifiers, Classifier{
				Name: attr(se, "name"),
				Keys: strings.Fields(attr(se, "keys")),
			})
			return dec.Skip()
		case "global":
			scope := attr(se, "scope")
			if scope == "" {
				scope = "event"
			}
			am := &AttributeMap{}
			if err := decodeAttributes(dec, am); err != nil {
				return err
			}
			log.Globals[scope] = am
			return nil
		}
		return decodeAttributeOrSkip(dec, se, log.Attributes())
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func decodeTrace(dec *xml.Decoder) (*Trace, error) {
	tr := &Trace{}
	err := walkChildren(dec, func(se xml.StartElement) error {
		if se.Name.Local == "event" {
			ev := &Event{}
			if err := decodeAttributes(dec, ev.Attributes()); err != nil {
				return err
			}
			tr.Events = append(tr.Events, ev)
			return nil
		}
		return decodeAttributeOrSkip(dec, se, tr.Attributes())
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// decodeAttributes reads attribute children into am, skipping anything else.
func decodeAttributes(dec *xml.Decoder, am *AttributeMap) error {
	return walkChildren(dec, func(se xml.StartElement) error {
		return decodeAttributeOrSkip(dec, se, am)
	})
}

func decodeAttributeOrSkip(dec *xml.Decoder, se xml.StartElement, am *AttributeMap) error {
	if _, ok := attributeTypes[se.Name.Local]; !ok {
		return dec.Skip()
	}
	a, err := decodeAttribute(dec, se)
	if err != nil {
		return err
	}
	am.Put(a)
	return nil
}

func decodeAttribute(dec *xml.Decoder, se xml.StartElement) (Attribute, error) {
	a := Attribute{
		Key:  attr(se, "key"),
		Type: attributeTypes[se.Name.Local],
		Raw:  attr(se, "value"),
	}
	if a.Key == "" {
		return a, fmt.Errorf("xes: <%s> element without key", se.Name.Local)
	}
	if err := a.parseValue(); err != nil {
		return a, err
	}

	err := walkChildren(dec, func(child xml.StartElement) error {
		switch {
		case a.Type == TypeList && child.Name.Local == "values":
			return walkChildren(dec, func(v xml.StartElement) error {
				return a.appendValue(dec, v)
			})
		case a.Type == TypeContainer:
			return a.appendValue(dec, child)
		}
		return decodeAttributeOrSkip(dec, child, &a.Meta)
	})
	return a, err
}

func (a *Attribute) appendValue(dec *xml.Decoder, se xml.StartElement) error {
	if _, ok := attributeTypes[se.Name.Local]; !ok {
		return dec.Skip()
	}
	v, err := decodeAttribute(dec, se)
	if err != nil {
		return err
	}
	a.Values = append(a.Values, v)
	return nil
}

func (a *Attribute) parseValue() error {
	var err error
	switch a.Type {
	case TypeDate:
		a.Time, err = parseTimestamp(a.Raw)
	case TypeInt:
		a.Int, err = strconv.ParseInt(strings.TrimSpace(a.Raw), 10, 64)
	case TypeFloat:
		a.Float, err = strconv.ParseFloat(strings.TrimSpace(a.Raw), 64)
	case TypeBoolean:
		a.Bool, err = strconv.ParseBool(strings.TrimSpace(a.Raw))
	}
	if err != nil {
		return fmt.Errorf("xes: attribute %q: invalid %s value %q", a.Key, a.Type, a.Raw)
	}
	return nil
}

// parseTimestamp parses an xs:dateTime value. Values without a zone are UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("xes: could not parse timestamp: %s", s)
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// gzipFile closes both the decompressor and the file.
type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	g.Reader.Close()
	return g.f.Close()
}

// bufferedFile keeps the peeked bytes in front of the file contents.
type bufferedFile struct {
	*bufio.Reader
	f *os.File
}

func (b *bufferedFile) Close() error { return b.f.Close() }

// open returns the file contents, transparently decompressing gzip.
func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("xes: %w", err)
		}
		return &gzipFile{Reader: zr, f: f}, nil
	}
	return &bufferedFile{Reader: br, f: f}, nil
}
