package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"findmeeting/internal/ics"
	"findmeeting/internal/models"

	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const (
	// DefaultEndpoint is the iCloud CalDAV server.
	DefaultEndpoint = "https://caldav.icloud.com/"
)

// ErrCalendarNotFound is returned when no calendar on the server has the requested name.
var ErrCalendarNotFound = errors.New("calendar not found")

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "findmeeting/1.0")
	return t.Transport.RoundTrip(req)
}

// Client reads events from and books meetings into one calendar on a CalDAV server.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	calendarName string
}

// NewClient creates a client and resolves calendarName on the server at endpoint.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &Client{
		caldavClient: caldavClient,
		logger:       logger,
		calendarName: calendarName,
	}

	logger.Info("Finding CalDAV calendar", "endpoint", endpoint, "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

func (c *Client) Name() string {
	return "caldav:" + c.calendarName
}

// EventsBetween runs a calendar-query for the VEVENTs overlapping [start, end).
func (c *Client) EventsBetween(ctx context.Context, start, end time.Time) ([]*models.Event, error) {
	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, timeRangeQuery(start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}

	var events []*models.Event
	for _, obj := range objects {
		converted, err := ics.FromCalendar(obj.Data, start.Location(), c.Name())
		if err != nil {
			c.logger.Warn("Skipping unreadable calendar object", "path", obj.Path, "error", err)
			continue
		}
		events = append(events, converted...)
	}

	c.logger.Info("Successfully fetched events from CalDAV", "count", len(events), "calendar", c.calendarName)
	return events, nil
}

// timeRangeQuery asks for the properties needed to compute availability of every
// VEVENT overlapping [start, end).
func timeRangeQuery(start, end time.Time) *caldav.CalendarQuery {
	return &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{{
				Name: "VEVENT",
				Props: []string{
					"UID", "SUMMARY", "DTSTART", "DTEND", "DURATION",
					"ORGANIZER", "ATTENDEE", "TRANSP", "STATUS",
				},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: start.UTC(),
				End:   end.UTC(),
			}},
		},
	}
}

// CreateEvent writes event into the calendar. A UID is generated when the event has none.
func (c *Client) CreateEvent(ctx context.Context, event *models.Event) error {
	if event.UID == "" {
		event.UID = GenerateUID()
	}
	c.logger.Debug("Creating event on CalDAV server", "eventTitle", event.Title, "uid", event.UID)

	eventPath := path.Join(c.calendarPath, fmt.Sprintf("%s.ics", event.UID))

	if _, err := c.caldavClient.PutCalendarObject(ctx, eventPath, ics.ToCalendar(event)); err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}

	c.logger.Info("Successfully created event", "eventTitle", event.Title, "uid", event.UID)
	return nil
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *Client) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("%w: no calendar named '%s'", ErrCalendarNotFound, name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
