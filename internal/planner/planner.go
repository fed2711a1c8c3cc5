package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"findmeeting/internal/meeting"
	"findmeeting/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrNoEvents is returned when every configured event source failed.
	ErrNoEvents = errors.New("no event source could be read")
	// ErrNoBooker is returned by Book when no writable calendar is configured.
	ErrNoBooker = errors.New("no calendar configured for booking")
)

// EventSource supplies the events of one calendar, or group of calendars.
type EventSource interface {
	Name() string
	EventsBetween(ctx context.Context, start, end time.Time) ([]*models.Event, error)
}

// Booker writes a new event into a calendar.
type Booker interface {
	CreateEvent(ctx context.Context, event *models.Event) error
}

// Slot is a window in which the meeting fits, in wall-clock time.
type Slot struct {
	Start   time.Time         `json:"start"`
	End     time.Time         `json:"end"`
	Minutes int               `json:"minutes"`
	Range   meeting.TimeRange `json:"-"`
}

// Planner loads a day of events from its sources and finds meeting windows in it.
type Planner struct {
	logger          *slog.Logger
	sources         []EventSource
	booker          Booker
	dryRun          bool
	primaryTimeZone *time.Location
}

// NewPlanner creates a new Planner. booker may be nil when booking is not needed.
func NewPlanner(logger *slog.Logger, sources []EventSource, booker Booker, dryRun bool, tz *time.Location) *Planner {
	if tz == nil {
		tz = time.UTC
	}
	return &Planner{
		logger:          logger,
		sources:         sources,
		booker:          booker,
		dryRun:          dryRun,
		primaryTimeZone: tz,
	}
}

// NewRequest builds a meeting request with attendee identifiers normalized the
// same way as the attendees of fetched events.
func NewRequest(mandatory, optional []string, duration int) (meeting.MeetingRequest, error) {
	return meeting.NewMeetingRequest(normalizeAll(mandatory), normalizeAll(optional), duration)
}

// DayBounds returns midnight of day's date and the following midnight in the planner's time zone.
func (p *Planner) DayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.In(p.primaryTimeZone).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, p.primaryTimeZone)
	return start, start.AddDate(0, 0, 1)
}

// FindSlots returns the windows on day in which request can be held.
func (p *Planner) FindSlots(ctx context.Context, day time.Time, request meeting.MeetingRequest) ([]Slot, error) {
	dayStart, dayEnd := p.DayBounds(day)
	p.logger.Info("Searching for meeting slots.", "day", dayStart.Format(time.DateOnly), "duration", request.Duration())

	events, err := p.fetchAllEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	dayEvents := Project(events, dayStart, dayEnd)
	p.logger.Debug("Projected events onto the day.", "fetched", len(events), "blocking", len(dayEvents))

	ranges := meeting.Query(dayEvents, request)
	slots := make([]Slot, 0, len(ranges))
	for _, r := range ranges {
		slots = append(slots, Slot{
			Start:   dayStart.Add(time.Duration(r.Start()) * time.Minute),
			End:     dayStart.Add(time.Duration(r.End()) * time.Minute),
			Minutes: r.Duration(),
			Range:   r,
		})
	}

	p.logger.Info("Found meeting slots.", "count", len(slots))
	return slots, nil
}

// fetchAllEvents retrieves events from all configured sources.
// A failing source is skipped unless all of them fail.
func (p *Planner) fetchAllEvents(ctx context.Context, start, end time.Time) ([]*models.Event, error) {
	var all []*models.Event
	var errs []error
	for _, src := range p.sources {
		events, err := src.EventsBetween(ctx, start, end)
		if err != nil {
			p.logger.Error("Could not fetch events from source", "source", src.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		p.logger.Debug("Fetched events from source.", "source", src.Name(), "count", len(events))
		all = append(all, events...)
	}
	if len(p.sources) > 0 && len(errs) == len(p.sources) {
		return nil, fmt.Errorf("%w: %w", ErrNoEvents, errors.Join(errs...))
	}
	return all, nil
}

// Project converts the events that block time within [dayStart, dayEnd) into
// minute-of-day events. Start times are rounded down and end times up, then
// clamped to the day. Events left with no length are dropped.
func Project(events []*models.Event, dayStart, dayEnd time.Time) []meeting.Event {
	var out []meeting.Event
	for _, e := range events {
		if !e.BlocksTime() || !e.Overlaps(dayStart, dayEnd) {
			continue
		}
		start := clampMinute(e.StartTime.Sub(dayStart) / time.Minute)
		end := clampMinute((e.EndTime.Sub(dayStart) + time.Minute - 1) / time.Minute)
		if end <= start {
			continue
		}
		when, err := meeting.FromStartEnd(start, end, false)
		if err != nil {
			continue
		}
		out = append(out, meeting.NewEvent(e.Title, when, normalizeAll(e.Participants())...))
	}
	return out
}

func clampMinute(m time.Duration) int {
	return int(min(max(m, meeting.StartOfDay), meeting.EndOfDay))
}

// Book creates an event for request at the start of slot in the booking calendar.
func (p *Planner) Book(ctx context.Context, slot Slot, title string, request meeting.MeetingRequest) (*models.Event, error) {
	if p.booker == nil {
		return nil, ErrNoBooker
	}
	if request.Duration() > slot.Minutes {
		return nil, fmt.Errorf("slot %s is shorter than %d minutes", slot.Range, request.Duration())
	}

	attendees := append(request.Attendees().Sorted(), request.OptionalAttendees().Sorted()...)
	event := &models.Event{
		UID:       uuid.New().String(),
		Title:     title,
		StartTime: slot.Start,
		EndTime:   slot.Start.Add(time.Duration(request.Duration()) * time.Minute),
		Attendees: attendees,
	}
	event.ID = event.UID

	if p.dryRun {
		p.logger.Info("[DRY RUN] Would book meeting", "title", title, "startTime", event.StartTime, "endTime", event.EndTime)
		return event, nil
	}

	if err := p.booker.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to book meeting: %w", err)
	}
	p.logger.Info("Booked meeting.", "title", title, "startTime", event.StartTime, "uid", event.UID)
	return event, nil
}

func normalizeAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.ToLower(strings.TrimSpace(id)))
	}
	return out
}
