package domain

import (
	"strconv"
	"strings"
)

// Condition is a boolean expression deciding whether a question is skipped.
// The set of implementations is closed: FieldEquals, FieldIn, UserExists,
// EventTypeIs, And, Or and Not.
type Condition interface {
	String() string
	condition()
}

// FieldEquals holds when the answer to Field equals Value.
type FieldEquals struct {
	Field string
	Value string
}

// FieldIn holds when the answer to Field is one of Values.
type FieldIn struct {
	Field  string
	Values []string
}

// UserExists holds when the host reports the user as already registered.
type UserExists struct{}

// EventTypeIs holds when the event being registered for has the given type.
type EventTypeIs struct {
	EventType string
}

// And holds when every child holds. An empty And holds.
type And []Condition

// Or holds when at least one child holds. An empty Or does not hold.
type Or []Condition

// Not inverts its child.
type Not struct {
	Child Condition
}

func (FieldEquals) condition() {}
func (FieldIn) condition()     {}
func (UserExists) condition()  {}
func (EventTypeIs) condition() {}
func (And) condition()         {}
func (Or) condition()          {}
func (Not) condition()         {}

func (c FieldEquals) String() string {
	return "field_equals(" + c.Field + ", " + strconv.Quote(c.Value) + ")"
}

func (c FieldIn) String() string {
	quoted := make([]string, len(c.Values))
	for i, v := range c.Values {
		quoted[i] = strconv.Quote(v)
	}
	return "field_in(" + c.Field + ", [" + strings.Join(quoted, ", ") + "])"
}

func (UserExists) String() string { return "user_exists" }

func (c EventTypeIs) String() string {
	return "event_type_is(" + strconv.Quote(c.EventType) + ")"
}

func (c And) String() string { return "and(" + joinConditions(c) + ")" }

func (c Or) String() string { return "or(" + joinConditions(c) + ")" }

func (c Not) String() string {
	if c.Child == nil {
		return "not()"
	}
	return "not(" + c.Child.String() + ")"
}

func joinConditions(cs []Condition) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if c == nil {
			continue
		}
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ", ")
}
