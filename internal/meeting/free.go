package meeting

// ComputeFree sweeps busy ranges, which must be sorted by start, and returns
// every gap of at least duration minutes. Overlapping busy ranges are merged by
// the advancing cursor. With a zero duration, back-to-back busy ranges still
// yield an empty gap between them.
func ComputeFree(busy []TimeRange, duration int) []TimeRange {
	var free []TimeRange
	cursor := StartOfDay
	for _, b := range busy {
		if b.start-cursor >= duration {
			free = append(free, TimeRange{start: cursor, end: b.start})
		}
		cursor = max(cursor, b.end)
	}
	if EndOfDay-cursor >= duration {
		free = append(free, TimeRange{start: cursor, end: EndOfDay, closesDay: true})
	}
	return free
}
