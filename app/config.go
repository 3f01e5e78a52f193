package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"calendar-time-tracking/api/calendarapi"
	"calendar-time-tracking/api/notionapi"
)

type Config struct {
	Logger struct {
		ServiceName string `default:"calendar-time-tracking"`
		Level       string `default:"info"`
		Development bool   `default:"true"`
		// Output lists zap sinks. stdout carries reports, so logs default to stderr.
		Output []string `default:"stderr"`
	}
	GoogleCalendar struct {
		// CredentialsPath is the OAuth client JSON downloaded from the Cloud Console.
		CredentialsPath string `envconfig:"GOOGLE_CREDENTIALS_PATH"`
		// TokenPath defaults to token.json next to the credentials file.
		TokenPath string
		// CredentialsSecret and TokenSecret are Secret Manager version names
		// (projects/{project}/secrets/{secret}/versions/{version}) used instead of files.
		CredentialsSecret string
		TokenSecret       string
		RedirectPort      int `default:"8080"`
	}
	Notion struct {
		Token     string
		APISecret string
	}
	Server struct {
		Addr string `default:":8501"`
	}
	Cache struct {
		// TTL of fetched calendar data; zero keeps it for the whole session.
		TTL time.Duration `default:"0s"`
	}
	CalendarSettings calendarapi.Config
	NotionSettings   notionapi.Config
}

const (
	defaultAuthDir      = ".config/gcal_auth"
	credentialsFileName = "credentials.json"
	tokenFileName       = "token.json"
)

// ResolvePaths fills in the credential and token file locations. A configured
// credentials file is used only if it exists; otherwise both files default to
// ~/.config/gcal_auth.
func (c *Config) ResolvePaths() error {
	gc := &c.GoogleCalendar
	if gc.CredentialsSecret != "" {
		return nil
	}
	if gc.CredentialsPath != "" {
		if _, err := os.Stat(gc.CredentialsPath); err == nil {
			if gc.TokenPath == "" {
				gc.TokenPath = filepath.Join(filepath.Dir(gc.CredentialsPath), tokenFileName)
			}
			return nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve credentials path: %w", err)
	}
	dir := filepath.Join(home, defaultAuthDir)
	gc.CredentialsPath = filepath.Join(dir, credentialsFileName)
	if gc.TokenPath == "" {
		gc.TokenPath = filepath.Join(dir, tokenFileName)
	}
	return nil
}
