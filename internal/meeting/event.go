package meeting

import (
	"slices"
	"strings"
)

// AttendeeSet is an unordered set of attendee identifiers.
// Identifiers are opaque and compared by exact string equality.
type AttendeeSet map[string]struct{}

// NewAttendeeSet builds a set from ids, ignoring blank entries.
func NewAttendeeSet(ids ...string) AttendeeSet {
	set := make(AttendeeSet, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func (s AttendeeSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s AttendeeSet) Len() int { return len(s) }

func (s AttendeeSet) IsEmpty() bool { return len(s) == 0 }

// Intersects reports whether the two sets share at least one attendee.
func (s AttendeeSet) Intersects(other AttendeeSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for id := range small {
		if large.Has(id) {
			return true
		}
	}
	return false
}

// Sorted returns the identifiers in lexical order.
func (s AttendeeSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s AttendeeSet) clone() AttendeeSet {
	c := make(AttendeeSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Event is a block of time on the day occupied by a set of attendees.
type Event struct {
	title     string
	when      TimeRange
	attendees AttendeeSet
}

// NewEvent creates an event. An event with no attendees never makes anyone busy.
func NewEvent(title string, when TimeRange, attendees ...string) Event {
	return Event{title: title, when: when, attendees: NewAttendeeSet(attendees...)}
}

func (e Event) Title() string { return e.title }

func (e Event) When() TimeRange { return e.when }

// Attendees returns a copy of the event's attendee set.
func (e Event) Attendees() AttendeeSet { return e.attendees.clone() }
