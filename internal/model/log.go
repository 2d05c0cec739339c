package model

// EventLog is the parse result: one Case per distinct case identifier.
// Case order follows first appearance in the source and carries no meaning.
type EventLog struct {
	cases []*Case
	index map[string]int
}

// NewEventLog wraps cases into a log. Cases sharing an id are merged in order.
func NewEventLog(cases []*Case) *EventLog {
	b := NewBuilder()
	for _, c := range cases {
		b.AppendCase(c.id, c.events)
	}
	return b.Build()
}

// Len returns the number of cases.
func (l *EventLog) Len() int { return len(l.cases) }

// Cases returns the cases. The slice is a copy; cases themselves are immutable.
func (l *EventLog) Cases() []*Case {
	cs := make([]*Case, len(l.cases))
	copy(cs, l.cases)
	return cs
}

// Case looks up a case by id.
func (l *EventLog) Case(id string) (*Case, bool) {
	i, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return l.cases[i], true
}

// CaseIDs returns the case ids in log order.
func (l *EventLog) CaseIDs() []string {
	ids := make([]string, len(l.cases))
	for i, c := range l.cases {
		ids[i] = c.id
	}
	return ids
}

// NumEvents returns the total number of events across all cases.
func (l *EventLog) NumEvents() int {
	n := 0
	for _, c := range l.cases {
		n += len(c.events)
	}
	return n
}

// Equal reports structural equality: same case ids with equal event
// sequences. Case order is ignored.
func (l *EventLog) Equal(other *EventLog) bool {
	if l == nil || other == nil {
		return l == other
	}
	if len(l.cases) != len(other.cases) {
		return false
	}
	for _, c := range l.cases {
		oc, ok := other.Case(c.id)
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}
