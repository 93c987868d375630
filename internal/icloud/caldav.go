package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-webdav/caldav"

	"meetprep/internal/feed"
	"meetprep/internal/models"
)

const iCloudCalDAVEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "meetprep/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient reads events from a single CalDAV (iCloud) calendar.
type CalDAVClient struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	calendarPath string
	calendarName string
	loc          *time.Location
}

// NewClient creates a CalDAVClient for the named iCloud calendar, discovering
// its path via the principal and calendar home set.
func NewClient(ctx context.Context, logger *slog.Logger, username, password, calendarName string, loc *time.Location) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	c := &CalDAVClient{
		caldavClient: caldavClient,
		logger:       logger,
		calendarName: calendarName,
		loc:          loc,
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found iCloud calendar", "path", calendarPath)

	return c, nil
}

// Name identifies this source in logs and meeting records.
func (c *CalDAVClient) Name() string { return "caldav:" + c.calendarName }

// Fetch queries the calendar for events in [from, to) and converts them to
// meetings.
func (c *CalDAVClient) Fetch(ctx context.Context, from, to time.Time) ([]*models.Meeting, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: from.UTC(),
				End:   to.UTC(),
			}},
		},
	}

	objects, err := c.caldavClient.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query caldav calendar: %w", err)
	}

	var meetings []*models.Meeting
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		meetings = append(meetings, feed.FromCalendar(obj.Data, c.loc, c.Name())...)
	}

	c.logger.Info("Fetched events from CalDAV", "calendarName", c.calendarName, "count", len(meetings))
	return meetings, nil
}

// findCalendar discovers the user's calendars and returns the path for the one
// with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
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
		if strings.EqualFold(cal.Name, name) {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
