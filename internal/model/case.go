package model

// Case is one process instance: an identified sequence of events in source order.
type Case struct {
	id     string
	events []Event
}

// NewCase creates a case. The event slice is copied.
func NewCase(id string, events []Event) *Case {
	evs := make([]Event, len(events))
	copy(evs, events)
	return &Case{id: id, events: evs}
}

// ID returns the case identifier.
func (c *Case) ID() string { return c.id }

// Len returns the number of events.
func (c *Case) Len() int { return len(c.events) }

// Event returns the i-th event.
func (c *Case) Event(i int) Event { return c.events[i] }

// Events returns a copy of the event sequence.
func (c *Case) Events() []Event {
	evs := make([]Event, len(c.events))
	copy(evs, c.events)
	return evs
}

// Activities returns the event names in order.
func (c *Case) Activities() []string {
	names := make([]string, len(c.events))
	for i, e := range c.events {
		names[i] = e.name
	}
	return names
}

// Equal compares id and the full event sequence.
func (c *Case) Equal(other *Case) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.id != other.id || len(c.events) != len(other.events) {
		return false
	}
	for i := range c.events {
		if !c.events[i].Equal(other.events[i]) {
			return false
		}
	}
	return true
}
