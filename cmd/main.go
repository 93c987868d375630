package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"meetprep/internal/config"
	"meetprep/internal/crm"
	"meetprep/internal/enrich"
	"meetprep/internal/feed"
	"meetprep/internal/google"
	"meetprep/internal/icloud"
	"meetprep/internal/prep"
	"meetprep/internal/search"
	"meetprep/internal/state"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "meetprep",
		Usage: "Generate attendee briefings ahead of your meetings.",
		Commands: []*cli.Command{
			authCommand(),
			checkCommand(),
			nextCommand(),
			autoCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "List upcoming meetings with attendees.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days ahead to look."},
			&cli.IntFlag{Name: "limit", Value: 10, Usage: "Maximum number of meetings to list."},
		},
		Action: func(c *cli.Context) error {
			p, _, err := buildPrep(c, false)
			if err != nil {
				return err
			}

			upcoming, err := p.Upcoming(c.Context, c.Int("days"))
			if err != nil {
				return err
			}

			fmt.Printf("Found %d upcoming meetings with attendees:\n\n", len(upcoming))
			limit := c.Int("limit")
			for i, m := range upcoming {
				if i >= limit {
					break
				}
				title := m.Title
				if title == "" {
					title = "Meeting"
				}
				fmt.Printf("  %s - %s (%d attendees)\n", m.StartTime.Format("Jan 2 3:04 PM"), title, len(m.Attendees))
			}
			return nil
		},
	}
}

func nextCommand() *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Print a briefing for the next upcoming meeting.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days ahead to look."},
		},
		Action: func(c *cli.Context) error {
			p, _, err := buildPrep(c, false)
			if err != nil {
				return err
			}

			m, text, err := p.Next(c.Context, c.Int("days"))
			if err != nil {
				return err
			}
			if m == nil {
				fmt.Println("No upcoming meetings found.")
				return nil
			}
			fmt.Print(text)
			return nil
		},
	}
}

func autoCommand() *cli.Command {
	return &cli.Command{
		Name:  "auto",
		Usage: "Brief meetings starting within the lead window, once each.",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Value: 1, Usage: "How many days ahead to look."},
			&cli.DurationFlag{Name: "lead-min", Value: 30 * time.Minute, Usage: "Start of the briefing window before a meeting."},
			&cli.DurationFlag{Name: "lead-max", Value: 60 * time.Minute, Usage: "End of the briefing window before a meeting."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Render briefings without recording or archiving them."},
			&cli.IntFlag{Name: "watch", Usage: "Run every N seconds instead of once."},
		},
		Action: func(c *cli.Context) error {
			p, logger, err := buildPrep(c, c.Bool("dry-run"))
			if err != nil {
				return err
			}

			run := func(ctx context.Context) error {
				m, text, err := p.Auto(ctx, c.Int("days"), c.Duration("lead-min"), c.Duration("lead-max"))
				if err != nil {
					return err
				}
				if m == nil {
					fmt.Printf("No meetings in the %s-%s window.\n", c.Duration("lead-min"), c.Duration("lead-max"))
					return nil
				}
				fmt.Print(text)
				return nil
			}

			if c.IsSet("watch") {
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for ; true; <-ticker.C {
					if err := run(c.Context); err != nil {
						logger.Error("Briefing cycle failed", "error", err)
					}
				}
				return nil
			}
			return run(c.Context)
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

// buildPrep wires the whole pipeline from environment configuration.
func buildPrep(c *cli.Context, dryRun bool) (*prep.Prep, *slog.Logger, error) {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := setupLogger(logLevel)

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.Calendars) == 0 {
		return nil, nil, fmt.Errorf("CALENDARS environment variable not set")
	}

	sources, err := buildSources(c.Context, logger, cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := state.Load(cfg.StateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load state: %w", err)
	}

	enricher := enrich.New(logger, crm.NewDirectory(logger, cfg.CRMPath), search.NewClient(logger, cfg.BraveAPIKey))
	p := prep.New(logger, sources, enricher, st, cfg.MyEmail, cfg.BriefingDir, dryRun, cfg.Timezone)
	return p, logger, nil
}

// buildSources turns each CALENDARS entry into a calendar source. A source
// that fails to initialize is logged and skipped so one bad entry does not
// take down the rest.
func buildSources(ctx context.Context, logger *slog.Logger, cfg *config.Config) ([]prep.Source, error) {
	var sources []prep.Source

	for _, spec := range cfg.Calendars {
		switch {
		case strings.HasPrefix(spec, "google:"):
			calendarID := strings.TrimPrefix(spec, "google:")
			accounts, err := google.GetTokenAccounts()
			if err != nil || len(accounts) == 0 {
				logger.Warn("No google accounts found, skipping source. Run the 'auth' command first.", "source", spec)
				continue
			}
			for _, acc := range accounts {
				client, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, acc, calendarID)
				if err != nil {
					logger.Warn("Failed to create google client, skipping", "account", acc, "error", err)
					continue
				}
				sources = append(sources, client)
			}

		case strings.HasPrefix(spec, "caldav:"):
			name := strings.TrimPrefix(spec, "caldav:")
			client, err := icloud.NewClient(ctx, logger, cfg.ICloudUsername, cfg.ICloudPassword, name, cfg.Timezone)
			if err != nil {
				logger.Warn("Failed to create caldav client, skipping", "calendar", name, "error", err)
				continue
			}
			sources = append(sources, client)

		default:
			sources = append(sources, feed.NewClient(logger, spec, cfg.Timezone))
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no usable calendar sources in CALENDARS")
	}
	return sources, nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
