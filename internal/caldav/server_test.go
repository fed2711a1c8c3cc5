package caldav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"findmeeting/internal/ics"
	"findmeeting/internal/models"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

const (
	testPrincipal = "/user/"
	testHomeSet   = "/user/calendars/"
	testWorkPath  = "/user/calendars/work/"
)

// memBackend is an in-memory CalDAV store. Objects whose time range cannot
// be evaluated are returned by queries, like a lenient server would.
type memBackend struct {
	mu        sync.Mutex
	calendars []caldav.Calendar
	objects   map[string]*ical.Calendar
}

var _ caldav.Backend = (*memBackend)(nil)

func newMemBackend() *memBackend {
	return &memBackend{
		calendars: []caldav.Calendar{
			{Path: testWorkPath, Name: "Work", SupportedComponentSet: []string{ical.CompEvent}},
			{Path: "/user/calendars/home/", Name: "Home", SupportedComponentSet: []string{ical.CompEvent}},
		},
		objects: make(map[string]*ical.Calendar),
	}
}

func (b *memBackend) CurrentUserPrincipal(ctx context.Context) (string, error) {
	return testPrincipal, nil
}

func (b *memBackend) CalendarHomeSetPath(ctx context.Context) (string, error) {
	return testHomeSet, nil
}

func (b *memBackend) CreateCalendar(ctx context.Context, calendar *caldav.Calendar) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calendars = append(b.calendars, *calendar)
	return nil
}

func (b *memBackend) ListCalendars(ctx context.Context) ([]caldav.Calendar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calendars), nil
}

func (b *memBackend) GetCalendar(ctx context.Context, path string) (*caldav.Calendar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cal := range b.calendars {
		if cal.Path == path {
			return &cal, nil
		}
	}
	return nil, webdav.NewHTTPError(http.StatusNotFound, fmt.Errorf("no calendar at %s", path))
}

func (b *memBackend) GetCalendarObject(ctx context.Context, path string, req *caldav.CalendarCompRequest) (*caldav.CalendarObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return nil, webdav.NewHTTPError(http.StatusNotFound, fmt.Errorf("no object at %s", path))
	}
	return &caldav.CalendarObject{Path: path, Data: data}, nil
}

func (b *memBackend) ListCalendarObjects(ctx context.Context, path string, req *caldav.CalendarCompRequest) ([]caldav.CalendarObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []caldav.CalendarObject
	for p, data := range b.objects {
		if strings.HasPrefix(p, path) {
			out = append(out, caldav.CalendarObject{Path: p, Data: data})
		}
	}
	return out, nil
}

func (b *memBackend) QueryCalendarObjects(ctx context.Context, path string, query *caldav.CalendarQuery) ([]caldav.CalendarObject, error) {
	objects, err := b.ListCalendarObjects(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	var out []caldav.CalendarObject
	for _, co := range objects {
		ok, err := caldav.Match(query.CompFilter, &co)
		if err != nil || ok {
			out = append(out, co)
		}
	}
	return out, nil
}

func (b *memBackend) PutCalendarObject(ctx context.Context, path string, calendar *ical.Calendar, opts *caldav.PutCalendarObjectOptions) (*caldav.CalendarObject, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = calendar
	return &caldav.CalendarObject{Path: path, Data: calendar}, nil
}

func (b *memBackend) DeleteCalendarObject(ctx context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, path)
	return nil
}

func (b *memBackend) put(path string, event *models.Event) *ical.Calendar {
	cal := ics.ToCalendar(event)
	b.objects[path] = cal
	return cal
}

func newTestServer(t *testing.T) (*memBackend, *httptest.Server) {
	t.Helper()
	b := newMemBackend()
	srv := httptest.NewServer(&caldav.Handler{Backend: b})
	t.Cleanup(srv.Close)
	return b, srv
}

func utcAt(day, h, m int) time.Time {
	return time.Date(2025, 3, day, h, m, 0, 0, time.UTC)
}

func TestNewClientDiscoversCalendar(t *testing.T) {
	_, srv := newTestServer(t)

	c, err := NewClient(context.Background(), slog.New(slog.DiscardHandler), srv.URL+"/", "u", "p", "Work")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if c.calendarPath != testWorkPath {
		t.Errorf("calendarPath = %q, want %q", c.calendarPath, testWorkPath)
	}
	if c.Name() != "caldav:Work" {
		t.Errorf("Name = %q", c.Name())
	}
}

func TestNewClientUnknownCalendar(t *testing.T) {
	_, srv := newTestServer(t)

	_, err := NewClient(context.Background(), slog.New(slog.DiscardHandler), srv.URL+"/", "u", "p", "Missing")
	if !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("error = %v, want ErrCalendarNotFound", err)
	}
}

func TestEventsBetween(t *testing.T) {
	b, srv := newTestServer(t)
	b.put(testWorkPath+"standup.ics", &models.Event{
		UID: "standup", Title: "Standup", StartTime: utcAt(10, 9, 0), EndTime: utcAt(10, 9, 30),
		Attendees: []string{"alice@example.com"},
	})
	b.put(testWorkPath+"tomorrow.ics", &models.Event{
		UID: "tomorrow", Title: "Tomorrow", StartTime: utcAt(11, 9, 0), EndTime: utcAt(11, 10, 0),
	})
	b.put("/user/calendars/home/dentist.ics", &models.Event{
		UID: "dentist", Title: "Dentist", StartTime: utcAt(10, 11, 0), EndTime: utcAt(10, 12, 0),
	})
	broken := b.put(testWorkPath+"broken.ics", &models.Event{
		UID: "broken", Title: "Broken", StartTime: utcAt(10, 14, 0), EndTime: utcAt(10, 15, 0),
	})
	broken.Children[0].Props.SetText(ical.PropDateTimeEnd, "not-a-date")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	c, err := NewClient(context.Background(), logger, srv.URL+"/", "u", "p", "Work")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	events, err := c.EventsBetween(context.Background(), utcAt(10, 0, 0), utcAt(11, 0, 0))
	if err != nil {
		t.Fatalf("EventsBetween error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1: %+v", len(events), events)
	}
	got := events[0]
	if got.UID != "standup" || !got.StartTime.Equal(utcAt(10, 9, 0)) || !got.EndTime.Equal(utcAt(10, 9, 30)) {
		t.Errorf("event = %+v", got)
	}
	if got.Source != "caldav:Work" {
		t.Errorf("Source = %q", got.Source)
	}
	if !slices.Equal(got.Attendees, []string{"alice@example.com"}) {
		t.Errorf("Attendees = %v", got.Attendees)
	}
	if !strings.Contains(logs.String(), "Skipping unreadable calendar object") || !strings.Contains(logs.String(), "broken.ics") {
		t.Errorf("expected a warning for the unreadable object, logs:\n%s", logs.String())
	}
}

func TestCreateEvent(t *testing.T) {
	b, srv := newTestServer(t)
	c, err := NewClient(context.Background(), slog.New(slog.DiscardHandler), srv.URL+"/", "u", "p", "Work")
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	event := &models.Event{
		Title:     "Design review",
		StartTime: utcAt(10, 13, 0),
		EndTime:   utcAt(10, 13, 45),
		Attendees: []string{"alice@example.com", "bob@example.com"},
	}
	if err := c.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("CreateEvent error: %v", err)
	}
	if event.UID == "" {
		t.Fatal("expected a generated UID")
	}

	b.mu.Lock()
	_, stored := b.objects[testWorkPath+event.UID+".ics"]
	b.mu.Unlock()
	if !stored {
		t.Fatalf("event not stored under %s", testWorkPath+event.UID+".ics")
	}

	events, err := c.EventsBetween(context.Background(), utcAt(10, 0, 0), utcAt(11, 0, 0))
	if err != nil {
		t.Fatalf("EventsBetween error: %v", err)
	}
	if len(events) != 1 || events[0].UID != event.UID || events[0].Title != "Design review" {
		t.Fatalf("events = %+v", events)
	}
	if !events[0].EndTime.Equal(utcAt(10, 13, 45)) {
		t.Errorf("EndTime = %v", events[0].EndTime)
	}
	if want := []string{"alice@example.com", "bob@example.com"}; !slices.Equal(events[0].Attendees, want) {
		t.Errorf("Attendees = %v, want %v", events[0].Attendees, want)
	}
}
