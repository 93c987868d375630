package briefing

import (
	"fmt"
	"strings"

	"meetprep/internal/enrich"
	"meetprep/internal/models"
)

// Render produces the text briefing for a meeting. The layout is fixed:
// header lines for title, location and time, then one bullet per attendee
// with whatever enrichment was found.
func Render(m *models.Meeting, profiles []*enrich.Profile) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📋 Meeting Briefing: %s\n", title(m))
	if m.Location != "" {
		fmt.Fprintf(&sb, "📍 %s\n", m.Location)
	}
	if !m.StartTime.IsZero() {
		fmt.Fprintf(&sb, "⏰ %s on %s\n", m.StartTime.Format("3:04 PM"), m.StartTime.Format("Jan 2"))
	}

	sb.WriteString("\n👥 Attendees:\n")
	for _, p := range profiles {
		sb.WriteString(attendeeLine(p))
		for _, hit := range p.WebHits {
			fmt.Fprintf(&sb, "    - %s (%s)\n", hit.Title, hit.URL)
		}
	}

	if notes := collectNotes(profiles); len(notes) > 0 {
		sb.WriteString("\n📝 Notes:\n")
		for _, n := range notes {
			fmt.Fprintf(&sb, "%s\n", n)
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func attendeeLine(p *enrich.Profile) string {
	name := p.Attendee.DisplayName()
	if p.Known() && p.Title != "" {
		return fmt.Sprintf("• %s (%s) - %s @ %s\n", name, p.Attendee.Email, p.Title, p.Company)
	}
	return fmt.Sprintf("• %s (%s) - %s\n", name, p.Attendee.Email, p.Company)
}

func collectNotes(profiles []*enrich.Profile) []string {
	var notes []string
	for _, p := range profiles {
		if p.Notes != "" {
			notes = append(notes, fmt.Sprintf("%s:\n%s", p.Attendee.DisplayName(), p.Notes))
		}
	}
	return notes
}

func title(m *models.Meeting) string {
	if m.Title == "" {
		return "Meeting"
	}
	return m.Title
}
