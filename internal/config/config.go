package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// ModelRef identifies one entry of the ordered extraction model pool.
// Provider selects the client implementation ("gemini" or "tesseract"),
// Name is the provider-specific model name (a Gemini model id, or a
// Tesseract language code such as "fas").
type ModelRef struct {
	Provider string
	Name     string
}

type Config struct {
	// Chat transport
	TelegramToken   string
	AuthorizedUsers []int64

	// Extraction
	GoogleAPIKey    string
	ModelPool       []ModelRef
	RetryFactor     int
	FailoverBackoff time.Duration
	PageCap         int
	PageDelay       time.Duration
	ChunkSize       int
	ExtractTimeout  time.Duration

	// Delivery
	EmailAddress  string
	EmailPassword string
	UserEmail     string
	SMTPHost      string
	SMTPPort      int

	// Admin HTTP server
	AdminHost string
	AdminPort string

	// Optional extraction archive (disabled when account name is empty)
	AzureAccountName   string
	AzureAccountKey    string
	AzureContainerName string
}

func (c *Config) AdminAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.AdminHost), strings.TrimSpace(c.AdminPort))
}

// ArchiveEnabled reports whether extraction results should be archived
// to blob storage.
func (c *Config) ArchiveEnabled() bool {
	return c.AzureAccountName != ""
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		TelegramToken:      os.Getenv("TELEGRAM_TOKEN"),
		GoogleAPIKey:       os.Getenv("GOOGLE_API_KEY"),
		RetryFactor:        parseIntOrDefault("RETRY_FACTOR", 3),
		FailoverBackoff:    parseDurationOrDefault("FAILOVER_BACKOFF", 2*time.Second),
		PageCap:            parseIntOrDefault("PAGE_CAP", 3),
		PageDelay:          parseDurationOrDefault("PAGE_DELAY", 1*time.Second),
		ChunkSize:          parseIntOrDefault("CHUNK_SIZE", 4000),
		ExtractTimeout:     parseDurationOrDefault("EXTRACT_TIMEOUT", 120*time.Second),
		EmailAddress:       os.Getenv("EMAIL_ADDRESS"),
		EmailPassword:      os.Getenv("EMAIL_PASSWORD"),
		UserEmail:          os.Getenv("USER_EMAIL"),
		SMTPHost:           getEnvOrDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:           parseIntOrDefault("SMTP_PORT", 465),
		AdminHost:          getEnvOrDefault("ADMIN_HOST", "0.0.0.0"),
		AdminPort:          getEnvOrDefault("ADMIN_PORT", "8080"),
		AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
		AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
		AzureContainerName: getEnvOrDefault("AZURE_CONTAINER_NAME", "extractions"),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	users, err := parseAuthorizedUsers(os.Getenv("AUTHORIZED_USERS"))
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("AUTHORIZED_USERS must list at least one user id")
	}
	cfg.AuthorizedUsers = users

	pool, err := ParseModelPool(getEnvOrDefault("MODEL_POOL",
		"gemini:gemini-1.5-pro,gemini:gemini-1.5-flash,gemini:gemini-1.5-flash-8b"))
	if err != nil {
		return nil, err
	}
	cfg.ModelPool = pool

	if cfg.RetryFactor < 1 {
		return nil, fmt.Errorf("RETRY_FACTOR must be >= 1 (got %d)", cfg.RetryFactor)
	}
	if cfg.PageCap < 1 {
		return nil, fmt.Errorf("PAGE_CAP must be >= 1 (got %d)", cfg.PageCap)
	}
	if cfg.ChunkSize < 1 {
		return nil, fmt.Errorf("CHUNK_SIZE must be >= 1 (got %d)", cfg.ChunkSize)
	}

	// Validate admin port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.AdminPort))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid ADMIN_PORT: %q", cfg.AdminPort)
	}

	return cfg, nil
}

// ParseModelPool parses the ordered MODEL_POOL value. Entries are comma
// separated; each entry is "provider:name", with a bare name defaulting to
// the gemini provider.
func ParseModelPool(raw string) ([]ModelRef, error) {
	var pool []ModelRef
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		provider, name, found := strings.Cut(entry, ":")
		if !found {
			provider, name = "gemini", entry
		}
		provider = strings.ToLower(strings.TrimSpace(provider))
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("MODEL_POOL entry %q has an empty model name", entry)
		}
		pool = append(pool, ModelRef{Provider: provider, Name: name})
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("MODEL_POOL must list at least one model")
	}
	return pool, nil
}

func parseAuthorizedUsers(raw string) ([]int64, error) {
	var users []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTHORIZED_USERS entry %q", part)
		}
		users = append(users, id)
	}
	return users, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}
