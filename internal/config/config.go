package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string
	SiteID   string // event log origin

	ImportArchiveDir string // empty disables archiving of bulk uploads

	AuthSecret string
	TokenTTL   time.Duration

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Submission window
	EnforceTestWindow bool
	TestTimezone      string
	SubmitGrace       time.Duration

	// Optional teacher account created at startup
	BootstrapTeacherEmail    string
	BootstrapTeacherName     string
	BootstrapTeacherPassHash string // bcrypt
}

// Load reads ENV_FILE (default .env) when it exists, then the environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	path := envOr("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              os.Getenv("DB_DSN"),
		SiteID:             envOr("SITE_ID", "local"),
		ImportArchiveDir:   os.Getenv("IMPORT_ARCHIVE_DIR"),
		AuthSecret:         envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:           envDuration("TOKEN_TTL", 8*time.Hour),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://exams.example.com"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),

		EnforceTestWindow: envBool("ENFORCE_TEST_WINDOW", true),
		TestTimezone:      envOr("TEST_TIMEZONE", "UTC"),
		SubmitGrace:       envDuration("SUBMIT_GRACE", time.Minute),

		BootstrapTeacherEmail:    os.Getenv("BOOTSTRAP_TEACHER_EMAIL"),
		BootstrapTeacherName:     envOr("BOOTSTRAP_TEACHER_NAME", "Teacher"),
		BootstrapTeacherPassHash: os.Getenv("BOOTSTRAP_TEACHER_PASS_HASH"),
	}
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// Location resolves TestTimezone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TestTimezone)
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d >= 0 {
		return d
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
