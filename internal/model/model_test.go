package model

import (
	"testing"
	"time"
)

func ts(h, m int) time.Time {
	return time.Date(2021, 1, 1, h, m, 0, 0, time.UTC)
}

func TestEvent_CopiesAttributes(t *testing.T) {
	attrs := map[string]string{"Amount": "100"}
	e := NewEvent("Submit", ts(10, 0), attrs)

	attrs["Amount"] = "999"
	if v, _ := e.Attribute("Amount"); v != "100" {
		t.Errorf("Expected event to keep its own copy, got %q", v)
	}

	out := e.Attributes()
	out["Amount"] = "1"
	if v, _ := e.Attribute("Amount"); v != "100" {
		t.Errorf("Attributes() leaked internal map, got %q", v)
	}
}

func TestEvent_AttributeKeysSorted(t *testing.T) {
	e := NewEvent("A", ts(1, 0), map[string]string{"Status": "", "Amount": "1", "Owner": "x"})
	keys := e.AttributeKeys()
	want := []string{"Amount", "Owner", "Status"}
	if len(keys) != len(want) {
		t.Fatalf("Expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestBuilder_PreservesInsertionOrder(t *testing.T) {
	b := NewBuilder()
	b.Append("C2", NewEvent("a", ts(1, 0), nil))
	b.Append("C1", NewEvent("b", ts(2, 0), nil))
	b.Append("C2", NewEvent("c", ts(0, 30), nil))

	log := b.Build()
	if log.Len() != 2 {
		t.Fatalf("Expected 2 cases, got %d", log.Len())
	}

	ids := log.CaseIDs()
	if ids[0] != "C2" || ids[1] != "C1" {
		t.Errorf("Expected first-seen order [C2 C1], got %v", ids)
	}

	c2, ok := log.Case("C2")
	if !ok {
		t.Fatal("Case C2 missing")
	}
	acts := c2.Activities()
	// Source order, not timestamp order.
	if len(acts) != 2 || acts[0] != "a" || acts[1] != "c" {
		t.Errorf("Expected [a c], got %v", acts)
	}
	if log.NumEvents() != 3 {
		t.Errorf("Expected 3 events, got %d", log.NumEvents())
	}
}

func TestBuilder_ResetAfterBuild(t *testing.T) {
	b := NewBuilder()
	b.Append("C1", NewEvent("a", ts(1, 0), nil))
	first := b.Build()

	b.Append("C1", NewEvent("b", ts(2, 0), nil))
	second := b.Build()

	c, _ := first.Case("C1")
	if c.Len() != 1 {
		t.Errorf("Published log mutated by later appends: %d events", c.Len())
	}
	c, _ = second.Case("C1")
	if c.Len() != 1 {
		t.Errorf("Expected fresh builder state, got %d events", c.Len())
	}
}

func TestNewEventLog_MergesDuplicateIDs(t *testing.T) {
	log := NewEventLog([]*Case{
		NewCase("C1", []Event{NewEvent("a", ts(1, 0), nil)}),
		NewCase("C2", []Event{NewEvent("x", ts(1, 0), nil)}),
		NewCase("C1", []Event{NewEvent("b", ts(2, 0), nil)}),
	})

	if log.Len() != 2 {
		t.Fatalf("Expected 2 cases, got %d", log.Len())
	}
	c, _ := log.Case("C1")
	if acts := c.Activities(); len(acts) != 2 || acts[1] != "b" {
		t.Errorf("Expected merged [a b], got %v", acts)
	}
}

func TestEventLog_Equal(t *testing.T) {
	build := func(order ...string) *EventLog {
		b := NewBuilder()
		for _, id := range order {
			b.Append(id, NewEvent("a", ts(1, 0), map[string]string{"K": id}))
		}
		return b.Build()
	}

	if !build("C1", "C2").Equal(build("C2", "C1")) {
		t.Error("Case order must not affect equality")
	}
	if build("C1").Equal(build("C1", "C2")) {
		t.Error("Different case sets reported equal")
	}

	a := NewEventLog([]*Case{NewCase("C1", []Event{NewEvent("a", ts(1, 0), map[string]string{"K": "1"})})})
	b := NewEventLog([]*Case{NewCase("C1", []Event{NewEvent("a", ts(1, 0), map[string]string{"K": "2"})})})
	if a.Equal(b) {
		t.Error("Different attribute values reported equal")
	}
}

func TestCase_EventsIsCopy(t *testing.T) {
	c := NewCase("C1", []Event{NewEvent("a", ts(1, 0), nil)})
	evs := c.Events()
	evs[0] = NewEvent("changed", ts(1, 0), nil)
	if c.Event(0).Name() != "a" {
		t.Error("Events() leaked internal slice")
	}
}
