package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	HasherSHA256 = "sha256"
	HasherBcrypt = "bcrypt"
)

type Config struct {
	// Backend selection
	DataBackend string

	// Flat files
	AccountsFile     string
	TransactionsFile string

	// Database
	SQLiteDBPath string

	// Authentication
	PasswordHasher   string
	MaxLoginAttempts int

	// AMQP, disabled when the URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auditor
	AuditInterval    time.Duration
	AuditConcurrency int

	// Summaries
	SummaryCacheSize int
	SummaryCacheTTL  time.Duration

	LogLevel string
}

func Load() *Config {
	return &Config{
		DataBackend: getEnv("DATA_BACKEND", BackendFile),

		AccountsFile:     getEnv("ACCOUNTS_FILE", "accounts.txt"),
		TransactionsFile: getEnv("TRANSACTIONS_FILE", "transactions.txt"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/bankledger.db"),

		PasswordHasher:   getEnv("PASSWORD_HASHER", HasherSHA256),
		MaxLoginAttempts: getEnvInt("MAX_LOGIN_ATTEMPTS", 3),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bankledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		AuditInterval:    getEnvDuration("AUDIT_INTERVAL", 10*time.Minute),
		AuditConcurrency: getEnvInt("AUDIT_CONCURRENCY", 4),

		SummaryCacheSize: getEnvInt("SUMMARY_CACHE_SIZE", 128),
		SummaryCacheTTL:  getEnvDuration("SUMMARY_CACHE_TTL", 5*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{BackendFile, BackendSQLite, BackendMemory}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendFile {
		if c.AccountsFile == "" {
			errors = append(errors, "accounts file cannot be empty when using file backend")
		}
		if c.TransactionsFile == "" {
			errors = append(errors, "transactions file cannot be empty when using file backend")
		}
		if c.AccountsFile != "" && c.AccountsFile == c.TransactionsFile {
			errors = append(errors, fmt.Sprintf("accounts and transactions must be different files, both are '%s'", c.AccountsFile))
		}
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.PasswordHasher != HasherSHA256 && c.PasswordHasher != HasherBcrypt {
		errors = append(errors, fmt.Sprintf("invalid password hasher '%s': must be '%s' or '%s'", c.PasswordHasher, HasherSHA256, HasherBcrypt))
	}
	if c.MaxLoginAttempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid max login attempts %d: must be at least 1", c.MaxLoginAttempts))
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

	if c.AuditInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at least 1 second", c.AuditInterval))
	} else if c.AuditInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid audit interval %v: must be at most 24 hours", c.AuditInterval))
	}
	if c.AuditConcurrency < 1 || c.AuditConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid audit concurrency %d: must be between 1 and 64", c.AuditConcurrency))
	}

	if c.SummaryCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid summary cache size %d: must not be negative", c.SummaryCacheSize))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
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
