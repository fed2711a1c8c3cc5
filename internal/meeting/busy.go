package meeting

// CollectBusy returns the ranges of every event shared with at least one of
// the given attendees, sorted by start. Overlapping ranges are left as they are.
func CollectBusy(attendees AttendeeSet, events []Event) []TimeRange {
	var busy []TimeRange
	if attendees.IsEmpty() {
		return busy
	}
	for _, e := range events {
		if e.attendees.Intersects(attendees) {
			busy = append(busy, e.when)
		}
	}
	SortByStart(busy)
	return busy
}
