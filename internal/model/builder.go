package model

// Builder accumulates events per case id in insertion order.
// It is the only mutable stage; Build publishes an immutable EventLog.
type Builder struct {
	order  []string
	events map[string][]Event
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{events: make(map[string][]Event)}
}

// Append adds an event to the case, creating the case on first sight.
func (b *Builder) Append(caseID string, e Event) {
	evs, ok := b.events[caseID]
	if !ok {
		b.order = append(b.order, caseID)
	}
	b.events[caseID] = append(evs, e)
}

// AppendCase adds a whole sequence. An id seen before is extended, not replaced.
func (b *Builder) AppendCase(caseID string, events []Event) {
	evs, ok := b.events[caseID]
	if !ok {
		b.order = append(b.order, caseID)
		evs = make([]Event, 0, len(events))
	}
	b.events[caseID] = append(evs, events...)
}

// Len returns the number of distinct case ids seen so far.
func (b *Builder) Len() int { return len(b.order) }

// Build materializes the log and resets the builder.
func (b *Builder) Build() *EventLog {
	log := &EventLog{
		cases: make([]*Case, len(b.order)),
		index: make(map[string]int, len(b.order)),
	}
	for i, id := range b.order {
		log.cases[i] = &Case{id: id, events: b.events[id]}
		log.index[id] = i
	}
	b.order = nil
	b.events = make(map[string][]Event)
	return log
}
