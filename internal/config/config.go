package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults for optional settings.
const (
	DefaultCRMPath     = "./crm/"
	DefaultStateFile   = ".prep_state.json"
	DefaultBriefingDir = ".meetprep/briefings"
)

// Config holds everything meetprep reads from the environment. Callers are
// expected to load a .env file (via godotenv) before calling FromEnv.
type Config struct {
	// Calendars is the CALENDARS env var split on commas. Each entry is a
	// source spec: an http(s)/webcal ICS URL, "google:<calendarID>" or
	// "caldav:<calendarName>".
	Calendars []string

	CRMPath     string
	BraveAPIKey string
	StateFile   string
	BriefingDir string

	// MyEmail identifies the user on invites so declined meetings can be
	// skipped. Optional.
	MyEmail string

	Timezone *time.Location

	GoogleClientID     string
	GoogleClientSecret string

	ICloudUsername string
	ICloudPassword string
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (*Config, error) {
	cfg := &Config{
		CRMPath:            getenv("CRM_PATH", DefaultCRMPath),
		BraveAPIKey:        os.Getenv("BRAVE_API_KEY"),
		StateFile:          getenv("STATE_FILE", DefaultStateFile),
		BriefingDir:        getenv("BRIEFING_DIR", DefaultBriefingDir),
		MyEmail:            strings.ToLower(os.Getenv("MY_EMAIL")),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		ICloudUsername:     os.Getenv("ICLOUD_USERNAME"),
		ICloudPassword:     os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"),
	}

	for _, c := range strings.Split(os.Getenv("CALENDARS"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			cfg.Calendars = append(cfg.Calendars, c)
		}
	}

	tzStr := getenv("PRIMARY_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tzStr)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone '%s': %w", tzStr, err)
	}
	cfg.Timezone = loc

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
