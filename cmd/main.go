package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"findmeeting/internal/caldav"
	"findmeeting/internal/config"
	"findmeeting/internal/google"
	"findmeeting/internal/ics"
	"findmeeting/internal/meeting"
	"findmeeting/internal/planner"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "findmeeting",
		Usage: "Find the times on a day when everyone is free to meet.",
		Commands: []*cli.Command{
			authCommand(),
			findCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)

			tokenFile, err := google.SaveToken(accountName, token)
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:  "find",
		Usage: "List the windows on a day in which a meeting fits.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Usage: "Day to search, as YYYY-MM-DD. Defaults to today."},
			&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Value: 30, Usage: "Meeting length in minutes."},
			&cli.StringSliceFlag{Name: "attendee", Aliases: []string{"a"}, Usage: "Required attendee (repeatable)."},
			&cli.StringSliceFlag{Name: "optional", Aliases: []string{"o"}, Usage: "Optional attendee (repeatable)."},
			&cli.StringFlag{Name: "request", Usage: "Read the meeting request from a YAML file. Flags override it."},
			&cli.StringSliceFlag{Name: "ics", Usage: "Read events from a local .ics file (repeatable)."},
			&cli.BoolFlag{Name: "google", Usage: "Read events from all authenticated Google accounts."},
			&cli.BoolFlag{Name: "caldav", Usage: "Read events from the configured CalDAV calendar."},
			&cli.BoolFlag{Name: "json", Usage: "Print the slots as JSON."},
			&cli.BoolFlag{Name: "book", Usage: "Book the first slot in the CalDAV calendar."},
			&cli.StringFlag{Name: "title", Usage: "Title of the booked meeting.", Value: "Meeting"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log the booking without creating it."},
		},
		Action: func(c *cli.Context) error {
			logLevel := os.Getenv("LOG_LEVEL")
			if logLevel == "" {
				logLevel = "info"
			}
			logger := setupLogger(logLevel)

			tzStr := os.Getenv("PRIMARY_TIMEZONE")
			if tzStr == "" {
				tzStr = "UTC"
			}
			loc, err := time.LoadLocation(tzStr)
			if err != nil {
				return fmt.Errorf("invalid timezone '%s': %w", tzStr, err)
			}

			reqFile := &config.RequestFile{}
			if path := c.String("request"); path != "" {
				reqFile, err = config.LoadRequest(path)
				if err != nil {
					return err
				}
			}
			mergeRequestFlags(c, reqFile)

			day := time.Now().In(loc)
			if d, ok := reqFile.Day(loc); ok {
				day = d
			}
			if s := c.String("date"); s != "" {
				day, err = time.ParseInLocation(time.DateOnly, s, loc)
				if err != nil {
					return fmt.Errorf("invalid date '%s': %w", s, err)
				}
			}

			request, err := planner.NewRequest(reqFile.Attendees, reqFile.Optional, *reqFile.Duration)
			if err != nil {
				return err
			}

			var sources []planner.EventSource
			for _, path := range c.StringSlice("ics") {
				sources = append(sources, ics.NewFileSource(logger, path))
			}

			if c.Bool("google") {
				gClients, err := googleClients(c, logger)
				if err != nil {
					return err
				}
				for _, gc := range gClients {
					sources = append(sources, gc)
				}
			}

			var booker planner.Booker
			if c.Bool("caldav") || c.Bool("book") {
				iClient, err := caldav.NewClient(c.Context, logger, os.Getenv("CALDAV_ENDPOINT"), os.Getenv("ICLOUD_USERNAME"), os.Getenv("ICLOUD_APP_SPECIFIC_PASSWORD"), os.Getenv("ICLOUD_CALENDAR_NAME"))
				if err != nil {
					return fmt.Errorf("failed to create caldav client: %w", err)
				}
				if c.Bool("caldav") {
					sources = append(sources, iClient)
				}
				booker = iClient
			}

			if len(sources) == 0 {
				logger.Warn("No event sources configured, every attendee is treated as free.")
			}

			p := planner.NewPlanner(logger, sources, booker, c.Bool("dry-run"), loc)
			slots, err := p.FindSlots(c.Context, day, request)
			if err != nil {
				return fmt.Errorf("failed to find slots: %w", err)
			}

			if err := printSlots(slots, c.Bool("json")); err != nil {
				return err
			}

			if c.Bool("book") {
				if len(slots) == 0 {
					return fmt.Errorf("no slot available to book")
				}
				event, err := p.Book(c.Context, slots[0], reqFile.Title, request)
				if err != nil {
					return err
				}
				if c.Bool("dry-run") {
					return ics.Encode(os.Stdout, event)
				}
			}
			return nil
		},
	}
}

// mergeRequestFlags lets command-line flags override the request file.
// Afterwards Duration is never nil.
func mergeRequestFlags(c *cli.Context, req *config.RequestFile) {
	if c.IsSet("duration") || req.Duration == nil {
		d := c.Int("duration")
		req.Duration = &d
	}
	if c.IsSet("attendee") {
		req.Attendees = c.StringSlice("attendee")
	}
	if c.IsSet("optional") {
		req.Optional = c.StringSlice("optional")
	}
	if c.IsSet("title") || req.Title == "" {
		req.Title = c.String("title")
	}
}

func googleClients(c *cli.Context, logger *slog.Logger) ([]*google.CalendarClient, error) {
	// Load all Google clients for all authenticated accounts
	accounts, err := google.GetTokenAccounts(".")
	if err != nil {
		return nil, fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
	}

	var calendarIDs []string
	for _, id := range strings.Split(os.Getenv("GOOGLE_CALENDAR_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			calendarIDs = append(calendarIDs, id)
		}
	}

	var gClients []*google.CalendarClient
	for _, acc := range accounts {
		gClient, err := google.NewClient(c.Context, logger, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), acc, calendarIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", acc, err)
		}
		gClients = append(gClients, gClient)
	}
	logger.Info("Initialized Google clients for all accounts.", "count", len(gClients))
	return gClients, nil
}

func printSlots(slots []planner.Slot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(slots)
	}
	if len(slots) == 0 {
		fmt.Println("No free slots.")
		return nil
	}
	for _, s := range slots {
		fmt.Printf("%s-%s  (%d min)\n", startClock(s), endClock(s), s.Minutes)
	}
	return nil
}

// startClock prints the empty slot at the very end of the day as 24:00.
func startClock(s planner.Slot) string {
	if s.Range.Start() == meeting.EndOfDay {
		return "24:00"
	}
	return s.Start.Format("15:04")
}

// endClock prints midnight at the end of the day as 24:00.
func endClock(s planner.Slot) string {
	if s.Range.ClosesDay() {
		return "24:00"
	}
	return s.End.Format("15:04")
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
