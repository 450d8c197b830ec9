package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "ENFORCE_TEST_WINDOW", "TOKEN_TTL", "SUBMIT_GRACE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if !c.EnforceTestWindow {
		t.Fatal("window enforcement should default on")
	}
	if c.TokenTTL != 8*time.Hour || c.SubmitGrace != time.Minute {
		t.Fatalf("unexpected durations: ttl=%v grace=%v", c.TokenTTL, c.SubmitGrace)
	}
	if got := c.CORSOrigins(); len(got) != 2 {
		t.Fatalf("offline origins = %v", got)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("ENFORCE_TEST_WINDOW", "false")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("CORS_ORIGINS_ONLINE", "https://a.example, https://b.example ,")
	t.Setenv("TEST_TIMEZONE", "Asia/Kolkata")

	c := FromEnv()
	if c.EnforceTestWindow {
		t.Fatal("ENFORCE_TEST_WINDOW=false ignored")
	}
	if c.TokenTTL != 30*time.Minute {
		t.Fatalf("TokenTTL = %v", c.TokenTTL)
	}
	origins := c.CORSOrigins()
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Fatalf("online origins = %v", origins)
	}
	if _, err := c.Location(); err != nil {
		t.Fatalf("Location: %v", err)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SITE_ID=campus-2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("SITE_ID", "")
	os.Unsetenv("SITE_ID")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.SiteID != "campus-2" {
		t.Fatalf("SiteID = %q, want campus-2", c.SiteID)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if _, err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
