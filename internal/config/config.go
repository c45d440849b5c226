package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Ledger backends.
const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Ledger
	LedgerBackend  string
	LedgerEndpoint string
	LedgerSeedFile string

	// Mutation journal; empty disables it
	JournalDBPath string

	// AMQP; empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Per-student history cache
	HistoryCacheSize int
	HistoryCacheTTL  time.Duration

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		LedgerBackend:  getEnv("LEDGER_BACKEND", BackendRemote),
		LedgerEndpoint: getEnv("LEDGER_ENDPOINT", ""),
		LedgerSeedFile: getEnv("LEDGER_SEED_FILE", ""),

		JournalDBPath: getEnv("JOURNAL_DB_PATH", "./data/feedesk.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "feedesk"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fee_notifications"),

		HistoryCacheSize: getEnvInt("HISTORY_CACHE_SIZE", 200),
		HistoryCacheTTL:  getEnvDuration("HISTORY_CACHE_TTL", 5*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.LedgerBackend {
	case BackendRemote:
		errors = append(errors, validateEndpoint(c.LedgerEndpoint)...)
	case BackendMemory:
		if c.LedgerSeedFile != "" {
			if _, err := os.Stat(c.LedgerSeedFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("ledger seed file does not exist: %s", c.LedgerSeedFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid ledger backend '%s': must be one of [%s %s]", c.LedgerBackend, BackendRemote, BackendMemory))
	}

	if c.JournalDBPath != "" {
		dir := filepath.Dir(c.JournalDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create journal database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.HistoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid history cache size %d: must be at least 1", c.HistoryCacheSize))
	} else if c.HistoryCacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid history cache size %d: must be at most 100000", c.HistoryCacheSize))
	}

	if c.HistoryCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid history cache TTL %v: must be at least 1 second", c.HistoryCacheTTL))
	} else if c.HistoryCacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid history cache TTL %v: must be at most 24 hours", c.HistoryCacheTTL))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateEndpoint(endpoint string) []string {
	if endpoint == "" {
		return []string{"LEDGER_ENDPOINT is required when using the remote ledger backend"}
	}
	if strings.Contains(endpoint, "REPLACE_WITH") {
		return []string{"LEDGER_ENDPOINT still holds the placeholder value"}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return []string{fmt.Sprintf("invalid ledger endpoint '%s': %v", endpoint, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []string{fmt.Sprintf("invalid ledger endpoint scheme '%s': must be 'http' or 'https'", u.Scheme)}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
