package briefing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"meetprep/internal/models"
)

// Archive writes a rendered briefing to the archive directory, creating it if
// needed, and returns the path written. Filenames follow
// <date>-<id8>.txt; meetings without a UID get a generated id so two such
// meetings on the same day cannot clobber each other.
func Archive(dir string, m *models.Meeting, text string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create briefing directory: %w", err)
	}

	id := m.UID
	if id == "" {
		id = uuid.New().String()
	}
	if len(id) > 8 {
		id = id[:8]
	}

	name := fmt.Sprintf("%s-%s.txt", m.StartTime.Format("2006-01-02"), id)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write briefing file: %w", err)
	}
	return path, nil
}
