// Package meeting finds the windows of a single day in which a meeting fits
// around the attendees' existing events.
//
// Everything in this package is a pure function of its arguments and safe
// for concurrent use.
package meeting

// Query returns the windows in which the requested meeting can take place.
//
// Mandatory attendees are hard constraints. Optional attendees are honoured
// whenever at least one window suits everyone; otherwise they are ignored,
// unless there are no mandatory attendees, in which case no window is returned.
func Query(events []Event, request MeetingRequest) []TimeRange {
	busyMandatory := CollectBusy(request.mandatory, events)
	freeMandatory := ComputeFree(busyMandatory, request.duration)

	if !request.optional.IsEmpty() {
		busyOptional := CollectBusy(request.optional, events)

		busyAll := make([]TimeRange, 0, len(busyMandatory)+len(busyOptional))
		busyAll = append(busyAll, busyMandatory...)
		busyAll = append(busyAll, busyOptional...)
		SortByStart(busyAll)

		freeAll := ComputeFree(busyAll, request.duration)
		if len(freeAll) == 0 && request.mandatory.IsEmpty() {
			return nil
		}
		if len(freeAll) > 0 {
			return freeAll
		}
	}

	return freeMandatory
}
