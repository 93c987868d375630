package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"meetprep/internal/models"
)

const fetchTimeout = 30 * time.Second

// Client fetches a single ICS feed over HTTP and parses it into meetings.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
	loc        *time.Location
}

// NewClient creates a feed client for the given ICS URL. webcal:// URLs are
// rewritten to https://, which is what calendar apps do with them anyway.
func NewClient(logger *slog.Logger, url string, loc *time.Location) *Client {
	if strings.HasPrefix(url, "webcal://") {
		url = "https://" + strings.TrimPrefix(url, "webcal://")
	}
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
		loc:        loc,
	}
}

// Name identifies this source in logs and meeting records.
func (c *Client) Name() string { return c.url }

// Fetch downloads the feed and returns the meetings that start within
// [from, to).
func (c *Client) Fetch(ctx context.Context, from, to time.Time) ([]*models.Meeting, error) {
	c.logger.Debug("Fetching ICS feed", "url", c.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	meetings, err := Parse(resp.Body, c.loc, c.url)
	if err != nil {
		return nil, err
	}

	filtered := meetings[:0]
	for _, m := range meetings {
		if !m.StartTime.Before(from) && m.StartTime.Before(to) {
			filtered = append(filtered, m)
		}
	}

	c.logger.Info("Fetched ICS feed", "url", c.url, "events", len(filtered))
	return filtered, nil
}

// Parse reads one or more iCalendar objects from r and converts their events
// to meetings. Events whose start time cannot be parsed are skipped.
func Parse(r io.Reader, loc *time.Location, source string) ([]*models.Meeting, error) {
	var meetings []*models.Meeting

	dec := ical.NewDecoder(r)
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse iCalendar data: %w", err)
		}
		meetings = append(meetings, FromCalendar(cal, loc, source)...)
	}

	return meetings, nil
}

// FromCalendar converts a parsed iCalendar object into meetings.
func FromCalendar(cal *ical.Calendar, loc *time.Location, source string) []*models.Meeting {
	var meetings []*models.Meeting

	for _, event := range cal.Events() {
		start, err := event.DateTimeStart(loc)
		if err != nil || start.IsZero() {
			continue
		}

		end, err := event.DateTimeEnd(loc)
		if err != nil || end.IsZero() {
			end = start
		}

		summary, _ := event.Props.Text(ical.PropSummary)
		location, _ := event.Props.Text(ical.PropLocation)
		description, _ := event.Props.Text(ical.PropDescription)
		uid, _ := event.Props.Text(ical.PropUID)

		m := &models.Meeting{
			UID:         uid,
			Title:       summary,
			Description: description,
			StartTime:   start,
			EndTime:     end,
			Location:    location,
			Organizer:   organizer(event.Props.Get(ical.PropOrganizer)),
			Attendees:   attendees(event.Props.Values(ical.PropAttendee)),
			AllDay:      isAllDay(event.Props.Get(ical.PropDateTimeStart)),
			Source:      source,
		}
		meetings = append(meetings, m)
	}

	return meetings
}

func organizer(prop *ical.Prop) string {
	if prop == nil {
		return ""
	}
	return stripMailto(prop.Value)
}

func attendees(props []ical.Prop) []models.Attendee {
	var out []models.Attendee
	for _, prop := range props {
		email := stripMailto(prop.Value)
		if email == "" {
			continue
		}
		out = append(out, models.Attendee{
			Email:  email,
			Name:   prop.Params.Get("CN"),
			Status: prop.Params.Get("PARTSTAT"),
		})
	}
	return out
}

// isAllDay reports whether DTSTART is date-valued. Some feeds omit the
// VALUE=DATE parameter and just emit a bare YYYYMMDD, so check both.
func isAllDay(prop *ical.Prop) bool {
	if prop == nil {
		return false
	}
	return prop.ValueType() == ical.ValueDate || len(prop.Value) == 8
}

func stripMailto(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "mailto:")
	v = strings.TrimPrefix(v, "MAILTO:")
	return strings.ToLower(v)
}
