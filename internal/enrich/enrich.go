package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"meetprep/internal/crm"
	"meetprep/internal/models"
	"meetprep/internal/search"
)

// Profile is the merged result of enriching one attendee: the CRM record when
// one exists, prior notes, and web search hits. Company falls back to the
// email domain when the CRM has nothing better.
type Profile struct {
	Attendee models.Attendee
	Contact  *models.Contact
	Notes    string
	WebHits  []search.Result

	Company string
	Title   string
}

// Known reports whether the attendee was found in the CRM.
func (p *Profile) Known() bool { return p.Contact != nil }

// Enricher performs the per-attendee lookups and merges their results.
// Lookups run sequentially; attendee lists are short and the search API is
// rate limited anyway.
type Enricher struct {
	crm    *crm.Directory
	search *search.Client
	logger *slog.Logger
}

// New creates an Enricher. The search client may be disabled (no API key);
// enrichment then uses only the CRM and notes.
func New(logger *slog.Logger, directory *crm.Directory, searcher *search.Client) *Enricher {
	return &Enricher{crm: directory, search: searcher, logger: logger}
}

// Profile enriches a single attendee. Lookup failures degrade the profile
// rather than failing it: a briefing with partial data beats no briefing.
func (e *Enricher) Profile(ctx context.Context, att models.Attendee) *Profile {
	p := &Profile{
		Attendee: att,
		Company:  att.Domain(),
	}

	contact, err := e.crm.Lookup(att.Email)
	if err != nil {
		e.logger.Warn("CRM lookup failed", "email", att.Email, "error", err)
	}
	if contact != nil {
		p.Contact = contact
		if contact.Company != "" {
			p.Company = contact.Company
		}
		p.Title = contact.Title
		if att.Name == "" && contact.Name != "" {
			p.Attendee.Name = contact.Name
		}
	}

	p.Notes = e.crm.Notes(contact, att.Email)

	if e.search.Enabled() {
		hits, err := e.search.Search(ctx, e.query(p))
		if err != nil {
			e.logger.Warn("Web search failed", "email", att.Email, "error", err)
		}
		p.WebHits = hits
	}

	return p
}

// ProfileAll enriches every attendee on a meeting, in invite order.
func (e *Enricher) ProfileAll(ctx context.Context, attendees []models.Attendee) []*Profile {
	profiles := make([]*Profile, 0, len(attendees))
	for _, att := range attendees {
		profiles = append(profiles, e.Profile(ctx, att))
	}
	return profiles
}

func (e *Enricher) query(p *Profile) string {
	return fmt.Sprintf("%q %s", p.Attendee.DisplayName(), p.Company)
}
