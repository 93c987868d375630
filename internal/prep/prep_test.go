package prep

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetprep/internal/crm"
	"meetprep/internal/enrich"
	"meetprep/internal/models"
	"meetprep/internal/search"
	"meetprep/internal/state"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// stubSource serves a fixed meeting list, or an error.
type stubSource struct {
	name     string
	meetings []*models.Meeting
	err      error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, from, to time.Time) ([]*models.Meeting, error) {
	return s.meetings, s.err
}

func meeting(uid string, start time.Time, attendees ...models.Attendee) *models.Meeting {
	return &models.Meeting{
		UID:       uid,
		Title:     uid,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Attendees: attendees,
	}
}

func twoPeople() []models.Attendee {
	return []models.Attendee{
		{Email: "me@here.com", Status: "ACCEPTED"},
		{Email: "jane@acme.com", Status: "ACCEPTED"},
	}
}

func newTestPrep(t *testing.T, sources ...Source) *Prep {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := state.Load(filepath.Join(dir, "state.json"))
	require.NoError(t, err)

	enricher := enrich.New(logger, crm.NewDirectory(logger, filepath.Join(dir, "crm")), search.NewClient(logger, ""))
	p := New(logger, sources, enricher, st, "me@here.com", filepath.Join(dir, "briefings"), false, time.UTC)
	p.now = func() time.Time { return now }
	return p
}

func TestUpcomingFiltersAndSorts(t *testing.T) {
	later := meeting("later", now.Add(3*time.Hour), twoPeople()...)
	sooner := meeting("sooner", now.Add(1*time.Hour), twoPeople()...)
	past := meeting("past", now.Add(-1*time.Hour), twoPeople()...)
	solo := meeting("solo", now.Add(2*time.Hour), models.Attendee{Email: "me@here.com"})
	allDay := meeting("allday", now.Add(4*time.Hour), twoPeople()...)
	allDay.AllDay = true
	declined := meeting("declined", now.Add(5*time.Hour),
		models.Attendee{Email: "me@here.com", Status: "DECLINED"},
		models.Attendee{Email: "jane@acme.com"},
	)

	p := newTestPrep(t, &stubSource{name: "a", meetings: []*models.Meeting{later, sooner, past, solo, allDay, declined}})

	upcoming, err := p.Upcoming(t.Context(), 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "sooner", upcoming[0].UID)
	assert.Equal(t, "later", upcoming[1].UID)
}

func TestUpcomingSurvivesFailingSource(t *testing.T) {
	good := &stubSource{name: "good", meetings: []*models.Meeting{meeting("m1", now.Add(time.Hour), twoPeople()...)}}
	bad := &stubSource{name: "bad", err: errors.New("connection refused")}

	p := newTestPrep(t, bad, good)

	upcoming, err := p.Upcoming(t.Context(), 7)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "m1", upcoming[0].UID)
}

func TestNext(t *testing.T) {
	p := newTestPrep(t, &stubSource{name: "a", meetings: []*models.Meeting{meeting("m1", now.Add(time.Hour), twoPeople()...)}})

	m, text, err := p.Next(t.Context(), 7)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "m1", m.UID)
	assert.Contains(t, text, "📋 Meeting Briefing: m1")
	assert.Contains(t, text, "jane@acme.com")
}

func TestNextNoMeetings(t *testing.T) {
	p := newTestPrep(t, &stubSource{name: "a"})

	m, text, err := p.Next(t.Context(), 7)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Empty(t, text)
}

func TestAutoBriefsOncePerMeeting(t *testing.T) {
	inWindow := meeting("m1", now.Add(45*time.Minute), twoPeople()...)
	tooSoon := meeting("m2", now.Add(10*time.Minute), twoPeople()...)
	tooFar := meeting("m3", now.Add(2*time.Hour), twoPeople()...)

	p := newTestPrep(t, &stubSource{name: "a", meetings: []*models.Meeting{tooSoon, inWindow, tooFar}})

	m, text, err := p.Auto(t.Context(), 1, 30*time.Minute, 60*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "m1", m.UID)
	assert.Contains(t, text, "📋 Meeting Briefing: m1")

	// The state file now records the meeting, so a second run briefs nothing.
	m, _, err = p.Auto(t.Context(), 1, 30*time.Minute, 60*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestAutoArchivesBriefing(t *testing.T) {
	inWindow := meeting("m1", now.Add(45*time.Minute), twoPeople()...)
	p := newTestPrep(t, &stubSource{name: "a", meetings: []*models.Meeting{inWindow}})

	_, _, err := p.Auto(t.Context(), 1, 30*time.Minute, 60*time.Minute)
	require.NoError(t, err)

	entries, err := os.ReadDir(p.briefDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), now.Format("2006-01-02"))
}

func TestAutoDryRunRecordsNothing(t *testing.T) {
	inWindow := meeting("m1", now.Add(45*time.Minute), twoPeople()...)
	p := newTestPrep(t, &stubSource{name: "a", meetings: []*models.Meeting{inWindow}})
	p.dryRun = true

	m, text, err := p.Auto(t.Context(), 1, 30*time.Minute, 60*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotEmpty(t, text)

	assert.False(t, p.state.Contains(m.ID()))
	_, err = os.Stat(p.briefDir)
	assert.True(t, os.IsNotExist(err))

	// Dry run did not mark it briefed, so it comes up again.
	m, _, err = p.Auto(t.Context(), 1, 30*time.Minute, 60*time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestAutoNothingInWindow(t *testing.T) {
	p := newTestPrep(t, &stubSource{name: "a", meetings: []*models.Meeting{meeting("m1", now.Add(3*time.Hour), twoPeople()...)}})

	m, _, err := p.Auto(t.Context(), 1, 30*time.Minute, 60*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, m)
}
