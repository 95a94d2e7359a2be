package config

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadEnv loads environment variables from a .env file if it exists.
// Variables already present in the environment win.
func LoadEnv(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		// .env file is optional
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// Settings holds the service configuration.
type Settings struct {
	// ListenAddr is the HTTP bind address of the settlement service.
	ListenAddr string
	// PostgresDSN enables the Postgres store when set; empty keeps state
	// in memory.
	PostgresDSN string
	// RateLimit is the allowed mutating requests per second, with
	// RateBurst extra in bursts. Zero disables limiting.
	RateLimit float64
	RateBurst int
	// ShutdownTimeout bounds graceful drain on SIGTERM.
	ShutdownTimeout time.Duration
	// LogDevel switches zap to its development encoder.
	LogDevel bool
}

// FromEnv reads settings from the environment with working defaults.
func FromEnv() Settings {
	return Settings{
		ListenAddr:      getString("SETTLE_LISTEN_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("SETTLE_PG_DSN"),
		RateLimit:       getFloat("SETTLE_RATE_LIMIT", 50),
		RateBurst:       getInt("SETTLE_RATE_BURST", 100),
		ShutdownTimeout: getDuration("SETTLE_SHUTDOWN_TIMEOUT", 10*time.Second),
		LogDevel:        getBool("SETTLE_LOG_DEVEL", false),
	}
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
