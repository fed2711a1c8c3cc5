// Package ics converts between iCalendar data and the internal event model.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"findmeeting/internal/models"

	"github.com/emersion/go-ical"
)

const productID = "-//findmeeting//EN"

// Decode reads every VCALENDAR in r and returns its timed events.
// Floating times are interpreted in loc.
func Decode(r io.Reader, loc *time.Location, source string) ([]*models.Event, error) {
	dec := ical.NewDecoder(r)
	var events []*models.Event
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}
		converted, err := FromCalendar(cal, loc, source)
		if err != nil {
			return nil, err
		}
		events = append(events, converted...)
	}
	return events, nil
}

// FromCalendar converts the VEVENTs of cal. All-day events are skipped.
func FromCalendar(cal *ical.Calendar, loc *time.Location, source string) ([]*models.Event, error) {
	var events []*models.Event
	for _, ve := range cal.Events() {
		startProp := ve.Props.Get(ical.PropDateTimeStart)
		if startProp == nil || startProp.ValueType() == ical.ValueDate {
			continue
		}
		event, err := fromVEvent(ve, loc, source)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func fromVEvent(ve ical.Event, loc *time.Location, source string) (*models.Event, error) {
	uid, _ := ve.Props.Text(ical.PropUID)

	start, err := ve.DateTimeStart(loc)
	if err != nil {
		return nil, fmt.Errorf("event %q: invalid DTSTART: %w", uid, err)
	}
	end, err := ve.DateTimeEnd(loc)
	if err != nil {
		return nil, fmt.Errorf("event %q: invalid DTEND: %w", uid, err)
	}

	event := &models.Event{
		ID:        uid,
		UID:       uid,
		StartTime: start,
		EndTime:   end,
		Source:    source,
	}
	event.Title, _ = ve.Props.Text(ical.PropSummary)
	event.Description, _ = ve.Props.Text(ical.PropDescription)
	event.Location, _ = ve.Props.Text(ical.PropLocation)

	if p := ve.Props.Get(ical.PropOrganizer); p != nil {
		event.Organizer = stripMailto(p.Value)
	}
	for _, p := range ve.Props.Values(ical.PropAttendee) {
		if strings.EqualFold(p.Params.Get(ical.ParamParticipationStatus), "DECLINED") {
			continue
		}
		event.Attendees = append(event.Attendees, stripMailto(p.Value))
	}

	transp, _ := ve.Props.Text(ical.PropTransparency)
	event.Transparent = strings.EqualFold(transp, "TRANSPARENT")
	status, _ := ve.Props.Text(ical.PropStatus)
	event.Cancelled = strings.EqualFold(status, "CANCELLED")

	return event, nil
}

// ToCalendar wraps event in a VCALENDAR ready to be encoded.
func ToCalendar(event *models.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, toVEvent(event))
	return cal
}

// toVEvent converts an internal Event model to an ical.Component (VEvent).
func toVEvent(event *models.Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime)
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime)

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		ve.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.Organizer != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.SetText(fmt.Sprintf("mailto:%s", event.Organizer))
		ve.Props.Add(p)
	}
	for _, attendee := range event.Attendees {
		p := ical.NewProp(ical.PropAttendee)
		p.SetText(fmt.Sprintf("mailto:%s", attendee))
		ve.Props.Add(p)
	}
	return ve
}

// Encode writes event as a single-event iCalendar stream.
func Encode(w io.Writer, event *models.Event) error {
	if err := ical.NewEncoder(w).Encode(ToCalendar(event)); err != nil {
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	return nil
}

func stripMailto(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		v = v[7:]
	}
	return strings.TrimSpace(v)
}
