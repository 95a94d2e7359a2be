package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nSETTLE_TEST_A=hello\n\nSETTLE_TEST_B = spaced \nBROKEN LINE\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SETTLE_TEST_A", "")
	t.Setenv("SETTLE_TEST_B", "")
	t.Setenv("SETTLE_TEST_C", "preset")
	os.Unsetenv("SETTLE_TEST_A")
	os.Unsetenv("SETTLE_TEST_B")

	if err := LoadEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SETTLE_TEST_A"); got != "hello" {
		t.Errorf("SETTLE_TEST_A = %q", got)
	}
	if got := os.Getenv("SETTLE_TEST_B"); got != "spaced" {
		t.Errorf("SETTLE_TEST_B = %q", got)
	}
	// Preset environment wins over the file.
	if got := os.Getenv("SETTLE_TEST_C"); got != "preset" {
		t.Errorf("SETTLE_TEST_C = %q", got)
	}

	// Missing file is not an error.
	if err := LoadEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing file: %v", err)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"SETTLE_LISTEN_ADDR", "SETTLE_PG_DSN", "SETTLE_RATE_LIMIT",
		"SETTLE_RATE_BURST", "SETTLE_SHUTDOWN_TIMEOUT", "SETTLE_LOG_DEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	s := FromEnv()
	if s.ListenAddr != ":8080" || s.PostgresDSN != "" {
		t.Errorf("defaults: %+v", s)
	}
	if s.RateLimit != 50 || s.RateBurst != 100 {
		t.Errorf("rate defaults: %+v", s)
	}
	if s.ShutdownTimeout != 10*time.Second {
		t.Errorf("shutdown default: %v", s.ShutdownTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SETTLE_LISTEN_ADDR", ":9999")
	t.Setenv("SETTLE_RATE_LIMIT", "5.5")
	t.Setenv("SETTLE_RATE_BURST", "7")
	t.Setenv("SETTLE_SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("SETTLE_LOG_DEVEL", "true")

	s := FromEnv()
	if s.ListenAddr != ":9999" || s.RateLimit != 5.5 || s.RateBurst != 7 {
		t.Errorf("overrides: %+v", s)
	}
	if s.ShutdownTimeout != 3*time.Second || !s.LogDevel {
		t.Errorf("overrides: %+v", s)
	}

	// Garbage falls back to the default.
	t.Setenv("SETTLE_RATE_BURST", "many")
	if got := FromEnv().RateBurst; got != 100 {
		t.Errorf("garbage burst parsed to %d", got)
	}
}
