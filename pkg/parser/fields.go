package parser

// scanState represents the current state of the field scanner.
type scanState uint8

const (
	stateFieldStart scanState = iota
	stateInField
	stateInQuotedField
	stateQuoteInQuotedField
)

// FieldScanner splits a delimited line using a finite state machine.
// Any byte in the delimiter set separates fields, so "a,b;c" yields three
// fields under the default set. Quotes are ordinary characters unless the
// scanner was built with quoting enabled; then a field starting with a
// double quote may contain delimiters, and a doubled quote inside it stands
// for one quote.
type FieldScanner struct {
	delims [256]bool
	quotes bool
}

// NewFieldScanner creates a scanner for the given delimiter bytes.
func NewFieldScanner(delimiters string, quotes bool) *FieldScanner {
	s := &FieldScanner{quotes: quotes}
	for i := 0; i < len(delimiters); i++ {
		s.delims[delimiters[i]] = true
	}
	return s
}

// ScanLine splits line into fields. Empty fields are kept as "".
func (s *FieldScanner) ScanLine(line string) []string {
	if len(line) == 0 {
		return nil
	}

	fields := make([]string, 0, 16)
	state := stateFieldStart
	start, end := 0, 0
	escaped := false

	for i := 0; i <= len(line); i++ {
		atEnd := i == len(line)
		var c byte
		if !atEnd {
			c = line[i]
		}

		switch state {
		case stateFieldStart:
			switch {
			case atEnd:
				fields = append(fields, "")
			case s.delims[c]:
				fields = append(fields, "")
			case c == '"' && s.quotes:
				start = i + 1
				escaped = false
				state = stateInQuotedField
			default:
				start = i
				state = stateInField
			}

		case stateInField:
			if atEnd || s.delims[c] {
				fields = append(fields, line[start:i])
				state = stateFieldStart
			}

		case stateInQuotedField:
			if atEnd {
				// Unterminated quote: the field is taken literally.
				fields = append(fields, line[start-1:i])
				continue
			}
			if c == '"' {
				end = i
				state = stateQuoteInQuotedField
			}

		case stateQuoteInQuotedField:
			switch {
			case atEnd || s.delims[c]:
				fields = append(fields, unescape(line[start:end], escaped))
				state = stateFieldStart
			case c == '"':
				escaped = true
				state = stateInQuotedField
			default:
				// Text after the closing quote: the field is taken literally
				// up to the next delimiter.
				start--
				state = stateInField
			}
		}
	}

	return fields
}

// unescape replaces "" with " when the field contained escapes.
func unescape(field string, escaped bool) string {
	if !escaped {
		return field
	}
	buf := make([]byte, 0, len(field))
	for i := 0; i < len(field); i++ {
		if field[i] == '"' && i+1 < len(field) && field[i+1] == '"' {
			i++
		}
		buf = append(buf, field[i])
	}
	return string(buf)
}
