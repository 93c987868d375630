package prep

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"meetprep/internal/briefing"
	"meetprep/internal/enrich"
	"meetprep/internal/models"
	"meetprep/internal/state"
)

// Source is any calendar backend that can produce meetings in a time range.
// ICS feeds, Google Calendar and CalDAV all implement it.
type Source interface {
	Name() string
	Fetch(ctx context.Context, from, to time.Time) ([]*models.Meeting, error)
}

// Prep orchestrates the pipeline: fetch meetings from every source, filter
// them down to real upcoming meetings, enrich attendees and render briefings.
type Prep struct {
	logger   *slog.Logger
	sources  []Source
	enricher *enrich.Enricher
	state    *state.State

	myEmail  string
	briefDir string
	dryRun   bool
	loc      *time.Location

	now func() time.Time
}

// New creates a Prep. myEmail may be empty, in which case the declined-meeting
// filter is skipped.
func New(logger *slog.Logger, sources []Source, enricher *enrich.Enricher, st *state.State, myEmail, briefDir string, dryRun bool, loc *time.Location) *Prep {
	return &Prep{
		logger:   logger,
		sources:  sources,
		enricher: enricher,
		state:    st,
		myEmail:  myEmail,
		briefDir: briefDir,
		dryRun:   dryRun,
		loc:      loc,
		now:      time.Now,
	}
}

// Upcoming fetches all sources and returns the meetings worth briefing within
// the next `days` days, sorted by start time. Solo reminders, all-day events
// and meetings the user declined are filtered out. A source that fails to
// fetch is logged and skipped; the others still count.
func (p *Prep) Upcoming(ctx context.Context, days int) ([]*models.Meeting, error) {
	now := p.now()
	to := now.Add(time.Duration(days) * 24 * time.Hour)

	var all []*models.Meeting
	for _, src := range p.sources {
		meetings, err := src.Fetch(ctx, now, to)
		if err != nil {
			p.logger.Warn("Failed to fetch calendar source", "source", src.Name(), "error", err)
			continue
		}
		all = append(all, meetings...)
	}

	var upcoming []*models.Meeting
	for _, m := range all {
		if !p.keep(m, now) {
			continue
		}
		m.StartTime = m.StartTime.In(p.loc)
		m.EndTime = m.EndTime.In(p.loc)
		upcoming = append(upcoming, m)
	}

	sort.Slice(upcoming, func(i, j int) bool {
		return upcoming[i].StartTime.Before(upcoming[j].StartTime)
	})

	p.logger.Info("Collected upcoming meetings", "total", len(all), "kept", len(upcoming))
	return upcoming, nil
}

// keep applies the briefing-worthiness filters to one meeting.
func (p *Prep) keep(m *models.Meeting, now time.Time) bool {
	switch {
	case m.StartTime.IsZero() || m.StartTime.Before(now):
		return false
	case m.AllDay:
		return false
	case len(m.Attendees) <= 1:
		// Solo reminders are not meetings.
		return false
	case p.myEmail != "" && m.Declined(p.myEmail):
		return false
	}
	return true
}

// Brief enriches a meeting's attendees and renders its briefing text.
func (p *Prep) Brief(ctx context.Context, m *models.Meeting) string {
	profiles := p.enricher.ProfileAll(ctx, m.Attendees)
	return briefing.Render(m, profiles)
}

// Next returns the briefing for the soonest upcoming meeting, or ok=false if
// there is none.
func (p *Prep) Next(ctx context.Context, days int) (*models.Meeting, string, error) {
	upcoming, err := p.Upcoming(ctx, days)
	if err != nil {
		return nil, "", err
	}
	if len(upcoming) == 0 {
		return nil, "", nil
	}
	m := upcoming[0]
	return m, p.Brief(ctx, m), nil
}

// Auto briefs at most one meeting starting within [leadMin, leadMax] from now
// that has not been briefed before, records it in the state file and archives
// the briefing text. It returns the briefed meeting and text, or a nil
// meeting when nothing was due.
func (p *Prep) Auto(ctx context.Context, days int, leadMin, leadMax time.Duration) (*models.Meeting, string, error) {
	upcoming, err := p.Upcoming(ctx, days)
	if err != nil {
		return nil, "", err
	}

	now := p.now()
	windowStart := now.Add(leadMin)
	windowEnd := now.Add(leadMax)

	for _, m := range upcoming {
		if m.StartTime.Before(windowStart) || m.StartTime.After(windowEnd) {
			continue
		}
		if p.state.Contains(m.ID()) {
			p.logger.Debug("Meeting already briefed, skipping", "title", m.Title, "id", m.ID())
			continue
		}

		text := p.Brief(ctx, m)

		if p.dryRun {
			p.logger.Info("[DRY RUN] Would brief meeting", "title", m.Title, "startTime", m.StartTime)
			return m, text, nil
		}

		if path, err := briefing.Archive(p.briefDir, m, text); err != nil {
			p.logger.Error("Failed to archive briefing", "title", m.Title, "error", err)
		} else {
			p.logger.Debug("Archived briefing", "path", path)
		}

		p.state.Add(m.ID())
		if err := p.state.Save(); err != nil {
			return nil, "", fmt.Errorf("failed to save state: %w", err)
		}
		return m, text, nil
	}

	return nil, "", nil
}
