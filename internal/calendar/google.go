package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/amirbrooks/task-tracker/internal/config"
)

const (
	credentialsFileName = "credentials.json"
	tokenFileName       = "token.json"
	appDir              = "task-tracker"
)

// Paths returns the OAuth client secrets and token files, defaulting to
// ~/.config/task-tracker.
func Paths(cfg config.Calendar) (credentials, token string) {
	base := ""
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".config", appDir)
	}
	credentials, token = cfg.CredentialsFile, cfg.TokenFile
	if credentials == "" {
		credentials = filepath.Join(base, credentialsFileName)
	}
	if token == "" {
		token = filepath.Join(base, tokenFileName)
	}
	return credentials, token
}

// OAuthConfig reads the downloaded client secrets file.
func OAuthConfig(cfg config.Calendar) (*oauth2.Config, error) {
	credentials, _ := Paths(cfg)
	b, err := os.ReadFile(credentials)
	if err != nil {
		return nil, fmt.Errorf("calendar: read client secrets %s: %w", credentials, err)
	}
	oc, err := google.ConfigFromJSON(b, gcal.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse client secrets: %w", err)
	}
	return oc, nil
}

// AuthURL is the consent page to visit for an offline (refreshable) token.
func AuthURL(oc *oauth2.Config) string {
	return oc.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, cfg config.Calendar, oc *oauth2.Config, code string) (string, error) {
	tok, err := oc.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("calendar: exchange code: %w", err)
	}
	_, path := Paths(cfg)
	if err := saveToken(path, tok); err != nil {
		return "", err
	}
	return path, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("calendar: decode token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// GoogleSource pulls events from the Google Calendar API.
type GoogleSource struct {
	srv       *gcal.Service
	calendars map[string]string
	log       *logrus.Entry
}

// NewGoogleSource authenticates with the stored token. The returned client
// refreshes the access token on its own.
func NewGoogleSource(ctx context.Context, cfg config.Calendar, log *logrus.Entry) (*GoogleSource, error) {
	if len(cfg.Calendars) == 0 {
		return nil, ErrNoCalendars
	}
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	_, tokenPath := Paths(cfg)
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("calendar: no token at %s, run `tasktracker calendar auth` first", tokenPath)
		}
		return nil, err
	}
	srv, err := gcal.NewService(ctx, option.WithHTTPClient(oc.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}
	return &GoogleSource{srv: srv, calendars: cfg.Calendars, log: log}, nil
}

// Events lists timed events of day across every configured calendar. A
// calendar that fails is logged and skipped.
func (g *GoogleSource) Events(ctx context.Context, day time.Time) ([]Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 1)
	names := make([]string, 0, len(g.calendars))
	for name := range g.calendars {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Event
	for _, name := range names {
		id := g.calendars[name]
		res, err := g.srv.Events.List(id).
			Context(ctx).
			SingleEvents(true).
			OrderBy("startTime").
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			Do()
		if err != nil {
			if g.log != nil {
				g.log.WithError(err).WithField("calendar", name).Warn("calendar pull failed")
			}
			continue
		}
		label := ""
		if len(names) > 1 {
			label = name
		}
		out = append(out, convertEvents(name, label, res.Items)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// convertEvents keeps timed events, skipping birthdays and all-day entries.
// label, when set, is appended to each summary.
func convertEvents(calendar, label string, items []*gcal.Event) []Event {
	var out []Event
	for _, it := range items {
		if it == nil || it.EventType == "birthday" || it.Start == nil || it.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, it.Start.DateTime)
		if err != nil {
			continue
		}
		var end time.Time
		if it.End != nil && it.End.DateTime != "" {
			end, _ = time.Parse(time.RFC3339, it.End.DateTime)
		}
		summary := it.Summary
		if summary == "" {
			summary = "Untitled"
		}
		if label != "" {
			summary = fmt.Sprintf("%s (%s)", summary, label)
		}
		out = append(out, Event{Calendar: calendar, Summary: summary, Start: start, End: end})
	}
	return out
}
