// Package model defines the normalized event log shared by every reader.
// Values are immutable once built: accessors hand out copies.
package model

import (
	"sort"
	"time"
)

// Event is a single timestamped occurrence within a case.
type Event struct {
	name       string
	timestamp  time.Time
	attributes map[string]string
}

// NewEvent creates an event. The attribute map is copied.
func NewEvent(name string, timestamp time.Time, attributes map[string]string) Event {
	attrs := make(map[string]string, len(attributes))
	for k, v := range attributes {
		attrs[k] = v
	}
	return Event{
		name:       name,
		timestamp:  timestamp,
		attributes: attrs,
	}
}

// Name returns the activity label.
func (e Event) Name() string { return e.name }

// Timestamp returns when the event occurred.
func (e Event) Timestamp() time.Time { return e.timestamp }

// Attribute returns a single attribute value.
func (e Event) Attribute(key string) (string, bool) {
	v, ok := e.attributes[key]
	return v, ok
}

// Attributes returns a copy of the attribute payload.
func (e Event) Attributes() map[string]string {
	attrs := make(map[string]string, len(e.attributes))
	for k, v := range e.attributes {
		attrs[k] = v
	}
	return attrs
}

// AttributeKeys returns the attribute names in sorted order.
func (e Event) AttributeKeys() []string {
	keys := make([]string, 0, len(e.attributes))
	for k := range e.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NumAttributes returns the payload size.
func (e Event) NumAttributes() int { return len(e.attributes) }

// Equal reports whether two events carry the same name, instant and payload.
func (e Event) Equal(other Event) bool {
	if e.name != other.name || !e.timestamp.Equal(other.timestamp) {
		return false
	}
	if len(e.attributes) != len(other.attributes) {
		return false
	}
	for k, v := range e.attributes {
		if ov, ok := other.attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
