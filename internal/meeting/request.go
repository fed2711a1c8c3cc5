package meeting

import (
	"errors"
	"fmt"
)

// ErrNegativeDuration is returned when a request asks for a meeting shorter than zero minutes.
var ErrNegativeDuration = errors.New("meeting duration must not be negative")

// MeetingRequest describes who must attend, who would ideally attend and for how long.
type MeetingRequest struct {
	mandatory AttendeeSet
	optional  AttendeeSet
	duration  int
}

// NewMeetingRequest validates and builds a request. duration is in minutes.
// A duration longer than a day is accepted; such a request simply never fits.
func NewMeetingRequest(mandatory, optional []string, duration int) (MeetingRequest, error) {
	if duration < 0 {
		return MeetingRequest{}, fmt.Errorf("%w: %d", ErrNegativeDuration, duration)
	}
	return MeetingRequest{
		mandatory: NewAttendeeSet(mandatory...),
		optional:  NewAttendeeSet(optional...),
		duration:  duration,
	}, nil
}

func (r MeetingRequest) Attendees() AttendeeSet { return r.mandatory.clone() }

func (r MeetingRequest) OptionalAttendees() AttendeeSet { return r.optional.clone() }

func (r MeetingRequest) Duration() int { return r.duration }
