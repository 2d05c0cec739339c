// Package xes reads IEEE 1849 XES event logs into an in-memory document model.
//
// The model mirrors the standard: a document holds logs, a log holds traces,
// a trace holds events, and each of them carries typed attributes. Standard
// extensions (concept, time, lifecycle, org) are read through the extension
// helpers in extension.go.
package xes

import (
	"strconv"
	"strings"
	"time"
)

// AttributeType is the XES type of an attribute element.
type AttributeType uint8

const (
	TypeString AttributeType = iota
	TypeDate
	TypeInt
	TypeFloat
	TypeBoolean
	TypeID
	TypeList
	TypeContainer
)

// String returns the XML element name of the type.
func (t AttributeType) String() string {
	switch t {
	case TypeDate:
		return "date"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBoolean:
		return "boolean"
	case TypeID:
		return "id"
	case TypeList:
		return "list"
	case TypeContainer:
		return "container"
	default:
		return "string"
	}
}

// attributeTypes maps element names to attribute types.
var attributeTypes = map[string]AttributeType{
	"string":    TypeString,
	"date":      TypeDate,
	"int":       TypeInt,
	"float":     TypeFloat,
	"boolean":   TypeBoolean,
	"id":        TypeID,
	"list":      TypeList,
	"container": TypeContainer,
}

// Attribute is a typed key/value pair. Only the field matching Type is set;
// Raw always holds the literal from the document.
type Attribute struct {
	Key  string
	Type AttributeType
	Raw  string

	Time  time.Time
	Int   int64
	Float float64
	Bool  bool

	// Values holds the members of a list or container.
	Values []Attribute

	// Meta holds nested meta-attributes.
	Meta AttributeMap
}

// String coerces the value to its string representation.
func (a Attribute) String() string {
	switch a.Type {
	case TypeDate:
		return a.Time.Format(time.RFC3339Nano)
	case TypeInt:
		return strconv.FormatInt(a.Int, 10)
	case TypeFloat:
		return strconv.FormatFloat(a.Float, 'f', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(a.Bool)
	case TypeList, TypeContainer:
		parts := make([]string, len(a.Values))
		for i, v := range a.Values {
			parts[i] = v.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return a.Raw
	}
}

// AttributeMap is a keyed set of attributes that remembers the order in
// which keys first appeared. The zero value is ready to use.
type AttributeMap struct {
	keys []string
	m    map[string]Attribute
}

// Put stores a. A repeated key keeps its position and takes the new value.
func (am *AttributeMap) Put(a Attribute) {
	if am.m == nil {
		am.m = make(map[string]Attribute)
	}
	if _, ok := am.m[a.Key]; !ok {
		am.keys = append(am.keys, a.Key)
	}
	am.m[a.Key] = a
}

// Get returns the attribute stored under key.
func (am *AttributeMap) Get(key string) (Attribute, bool) {
	a, ok := am.m[key]
	return a, ok
}

// Len returns the number of keys.
func (am *AttributeMap) Len() int { return len(am.keys) }

// Keys returns the keys in document order.
func (am *AttributeMap) Keys() []string {
	keys := make([]string, len(am.keys))
	copy(keys, am.keys)
	return keys
}

// All returns the attributes in document order.
func (am *AttributeMap) All() []Attribute {
	out := make([]Attribute, len(am.keys))
	for i, k := range am.keys {
		out[i] = am.m[k]
	}
	return out
}

// Attributable is anything carrying an attribute map.
type Attributable interface {
	Attributes() *AttributeMap
}

type element struct {
	attrs AttributeMap
}

// Attributes returns the element's attribute map.
func (e *element) Attributes() *AttributeMap { return &e.attrs }

// Event is a single XES event.
type Event struct {
	element
}

// Trace is the XES counterpart of a case.
type Trace struct {
	element
	Events []*Event
}

// Extension is a declared XES extension.
type Extension struct {
	Name   string
	Prefix string
	URI    string
}

// Classifier is a named list of event attribute keys.
type Classifier struct {
	Name string
	Keys []string
}

// Log is one <log> element.
type Log struct {
	element
	Extensions  []Extension
	Classifiers []Classifier
	// Globals maps a scope ("trace" or "event") to its default attributes.
	Globals map[string]*AttributeMap
	Traces  []*Trace
}
