package enrich

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetprep/internal/crm"
	"meetprep/internal/models"
	"meetprep/internal/search"
)

func testEnricher(t *testing.T) (*Enricher, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Search stays disabled here; the search package has its own tests.
	return New(logger, crm.NewDirectory(logger, dir), search.NewClient(logger, "")), dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestProfileKnownContact(t *testing.T) {
	e, dir := testEnricher(t)
	writeFile(t, dir, "jane.json", `{"email":"jane@acme.com","name":"Jane Doe","company":"Acme Corp","title":"CTO","notes":"jane.md"}`)
	writeFile(t, dir, "jane.md", "Met at FooConf.")

	p := e.Profile(t.Context(), models.Attendee{Email: "jane@acme.com"})

	assert.True(t, p.Known())
	assert.Equal(t, "Acme Corp", p.Company)
	assert.Equal(t, "CTO", p.Title)
	assert.Equal(t, "Met at FooConf.", p.Notes)
	// The CRM name fills in when the invite had none.
	assert.Equal(t, "Jane Doe", p.Attendee.Name)
}

func TestProfileUnknownContactFallsBackToDomain(t *testing.T) {
	e, _ := testEnricher(t)

	p := e.Profile(t.Context(), models.Attendee{Email: "stranger@bigco.io", Name: "Stranger"})

	assert.False(t, p.Known())
	assert.Equal(t, "bigco.io", p.Company)
	assert.Empty(t, p.Title)
	assert.Empty(t, p.Notes)
	assert.Equal(t, "Stranger", p.Attendee.Name)
}

func TestProfileInviteNameWins(t *testing.T) {
	e, dir := testEnricher(t)
	writeFile(t, dir, "jane.json", `{"email":"jane@acme.com","name":"J. Doe"}`)

	p := e.Profile(t.Context(), models.Attendee{Email: "jane@acme.com", Name: "Jane Doe"})
	assert.Equal(t, "Jane Doe", p.Attendee.Name)
}

func TestProfileAllKeepsInviteOrder(t *testing.T) {
	e, _ := testEnricher(t)

	attendees := []models.Attendee{
		{Email: "b@x.com"},
		{Email: "a@y.com"},
	}
	profiles := e.ProfileAll(t.Context(), attendees)
	require.Len(t, profiles, 2)
	assert.Equal(t, "b@x.com", profiles[0].Attendee.Email)
	assert.Equal(t, "a@y.com", profiles[1].Attendee.Email)
}

func TestQuery(t *testing.T) {
	e, _ := testEnricher(t)
	p := e.Profile(t.Context(), models.Attendee{Email: "jane@acme.com", Name: "Jane Doe"})
	assert.Equal(t, `"Jane Doe" acme.com`, e.query(p))
}
