package models

import "time"

// Event represents a standard calendar event.
// This is an internal representation, independent of any specific calendar provider.
type Event struct {
	ID          string    // Unique identifier for the event (e.g., from the source calendar)
	Title       string    // Summary or title of the event
	Description string    // Detailed description of the event
	StartTime   time.Time // Start time of the event
	EndTime     time.Time // End time of the event
	Location    string    // Location of the event
	Organizer   string    // Organizer's email
	Attendees   []string  // Emails of attendees who have not declined
	Transparent bool      // The event does not block time (shown as "free")
	Cancelled   bool      // The event was cancelled but is still listed by the provider
	Source      string    // The source of the event (e.g., "google-primary", "caldav", "ics")
	UID         string    // The iCalendar UID
}

// BlocksTime reports whether the event makes its attendees unavailable.
func (e *Event) BlocksTime() bool {
	return !e.Transparent && !e.Cancelled && e.EndTime.After(e.StartTime)
}

// Participants returns the organizer followed by the attendees, without duplicates.
func (e *Event) Participants() []string {
	seen := make(map[string]bool, len(e.Attendees)+1)
	var out []string
	for _, p := range append([]string{e.Organizer}, e.Attendees...) {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// Overlaps reports whether the event shares any instant with [start, end).
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.StartTime.Before(end) && e.EndTime.After(start)
}
