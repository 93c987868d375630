package crm

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"meetprep/internal/models"
)

// Directory looks up contacts in a local folder of JSON files. Each file may
// hold a single contact object or an array of them; files that fail to parse
// are skipped.
type Directory struct {
	path   string
	logger *slog.Logger
}

// NewDirectory creates a Directory rooted at path. The path does not have to
// exist; lookups against a missing directory simply find nothing.
func NewDirectory(logger *slog.Logger, path string) *Directory {
	return &Directory{path: path, logger: logger}
}

// Lookup finds the first contact whose email matches, case-insensitively.
// Returns nil when no contact matches.
func (d *Directory) Lookup(email string) (*models.Contact, error) {
	email = strings.ToLower(email)

	if _, err := os.Stat(d.path); os.IsNotExist(err) {
		return nil, nil
	}

	var found *models.Contact
	err := filepath.WalkDir(d.path, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || found != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			return nil
		}

		contacts, err := loadFile(path)
		if err != nil {
			d.logger.Debug("Skipping unreadable CRM file", "file", path, "error", err)
			return nil
		}
		for i := range contacts {
			if strings.ToLower(contacts[i].Email) == email {
				found = &contacts[i]
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan CRM directory: %w", err)
	}

	return found, nil
}

// Notes returns the prior-notes text for a contact, if any. The contact's
// Notes field names a file relative to the CRM directory; when it is empty,
// a file named <email>.md next to the contacts is tried instead.
func (d *Directory) Notes(contact *models.Contact, email string) string {
	candidates := []string{}
	if contact != nil && contact.Notes != "" {
		candidates = append(candidates, contact.Notes)
	}
	if email != "" {
		candidates = append(candidates, email+".md")
	}

	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(d.path, name))
		if err != nil {
			continue
		}
		return strings.TrimSpace(string(data))
	}
	return ""
}

// loadFile parses a CRM file holding either one contact or an array.
func loadFile(path string) ([]models.Contact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var one models.Contact
	if err := json.Unmarshal(data, &one); err == nil && one.Email != "" {
		return []models.Contact{one}, nil
	}

	var many []models.Contact
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}

	return nil, fmt.Errorf("not a contact object or array: %s", path)
}
