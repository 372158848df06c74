package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Queue       QueueConfig      `toml:"queue"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Classifier  ClassifierConfig `toml:"classifier"`
	Mailer      MailerConfig     `toml:"mailer"`
	Cleanup     CleanupConfig    `toml:"cleanup"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type QueueConfig struct {
	PollInterval      string `toml:"poll_interval"`      // e.g., "1s" - how often workers poll for messages
	Concurrency       int    `toml:"concurrency"`        // Number of concurrent workers
	VisibilityTimeout string `toml:"visibility_timeout"` // e.g., "5m" - message visibility timeout for redelivery
	MaxReceive        int    `toml:"max_receive"`        // Max times a message can be received before it is dropped
	QueueName         string `toml:"queue_name"`         // Queue name prefix in Badger
	JobTimeout        string `toml:"job_timeout"`        // Per-job execution ceiling, e.g. "2m"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// ClassifierProvider represents the remote inference provider type
type ClassifierProvider string

const (
	// ProviderClaude uses the Anthropic Claude API
	ProviderClaude ClassifierProvider = "claude"
	// ProviderGemini uses the Google Gemini API
	ProviderGemini ClassifierProvider = "gemini"
)

// ClassifierConfig selects and configures the remote classification
// provider. The keyword fallback needs no configuration.
type ClassifierConfig struct {
	Provider ClassifierProvider `toml:"provider"` // "claude" or "gemini"
	Claude   ClaudeConfig       `toml:"claude"`
	Gemini   GeminiConfig       `toml:"gemini"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`       // Model for classification (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 256)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.0)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for classification (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "30s")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "4s" for 15 RPM)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.0)
}

// MailerConfig contains outbound SMTP notification configuration
type MailerConfig struct {
	Enabled  bool   `toml:"enabled"`   // Disabled by default - user must opt in
	Host     string `toml:"host"`      // SMTP host
	Port     int    `toml:"port"`      // SMTP port (default: 587)
	Username string `toml:"username"`  // SMTP auth username
	Password string `toml:"password"`  // SMTP auth password
	From     string `toml:"from"`      // From address
	AdminTo  string `toml:"admin_to"`  // Address notified on status changes
	UseAuth  bool   `toml:"use_auth"`  // Use PLAIN auth (default: true when username set)
}

// CleanupConfig controls scheduled removal of old completed requests
type CleanupConfig struct {
	Enabled       bool   `toml:"enabled"`        // Disabled by default
	Schedule      string `toml:"schedule"`       // Cron schedule format (default: daily at 03:00)
	RetentionDays int    `toml:"retention_days"` // Completed requests older than this are removed (default: 90)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in steward.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Queue: QueueConfig{
			PollInterval:      "1s",
			Concurrency:       4,
			VisibilityTimeout: "5m",
			MaxReceive:        3,
			QueueName:         "steward_classify",
			JobTimeout:        "2m",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Classifier: ClassifierConfig{
			Provider: ProviderClaude,
			Claude: ClaudeConfig{
				APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
				Model:       "claude-haiku-3-5-20241022",
				MaxTokens:   256,
				Timeout:     "30s",
				RateLimit:   "1s",
				Temperature: 0.0,
			},
			Gemini: GeminiConfig{
				APIKey:      "", // User must provide API key (no fallback)
				Model:       "gemini-3-flash-preview",
				Timeout:     "30s",
				RateLimit:   "4s", // 15 RPM free tier
				Temperature: 0.0,
			},
		},
		Mailer: MailerConfig{
			Enabled: false,
			Port:    587,
			UseAuth: true,
		},
		Cleanup: CleanupConfig{
			Enabled:       false,
			Schedule:      "0 3 * * *", // Daily at 03:00
			RetentionDays: 90,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override
// earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: STEWARD_ENV, fallback: GO_ENV)
	if env := os.Getenv("STEWARD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("STEWARD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STEWARD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Queue configuration
	if pollInterval := os.Getenv("STEWARD_QUEUE_POLL_INTERVAL"); pollInterval != "" {
		config.Queue.PollInterval = pollInterval
	}
	if concurrency := os.Getenv("STEWARD_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}
	if visibilityTimeout := os.Getenv("STEWARD_QUEUE_VISIBILITY_TIMEOUT"); visibilityTimeout != "" {
		config.Queue.VisibilityTimeout = visibilityTimeout
	}
	if maxReceive := os.Getenv("STEWARD_QUEUE_MAX_RECEIVE"); maxReceive != "" {
		if mr, err := strconv.Atoi(maxReceive); err == nil {
			config.Queue.MaxReceive = mr
		}
	}
	if queueName := os.Getenv("STEWARD_QUEUE_NAME"); queueName != "" {
		config.Queue.QueueName = queueName
	}
	if jobTimeout := os.Getenv("STEWARD_QUEUE_JOB_TIMEOUT"); jobTimeout != "" {
		config.Queue.JobTimeout = jobTimeout
	}

	// Storage configuration
	if badgerPath := os.Getenv("STEWARD_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("STEWARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("STEWARD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("STEWARD_LOG_OUTPUT"); output != "" {
		// Split comma-separated output types
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Classifier configuration
	if provider := os.Getenv("STEWARD_CLASSIFIER_PROVIDER"); provider != "" {
		config.Classifier.Provider = ClassifierProvider(provider)
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Classifier.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("STEWARD_CLAUDE_API_KEY"); apiKey != "" {
		config.Classifier.Claude.APIKey = apiKey // STEWARD_ prefix takes priority
	}
	if model := os.Getenv("STEWARD_CLAUDE_MODEL"); model != "" {
		config.Classifier.Claude.Model = model
	}
	if maxTokens := os.Getenv("STEWARD_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Classifier.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("STEWARD_CLAUDE_TIMEOUT"); timeout != "" {
		config.Classifier.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("STEWARD_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Classifier.Claude.RateLimit = rateLimit
	}
	if apiKey := os.Getenv("STEWARD_GEMINI_API_KEY"); apiKey != "" {
		config.Classifier.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("STEWARD_GEMINI_MODEL"); model != "" {
		config.Classifier.Gemini.Model = model
	}
	if timeout := os.Getenv("STEWARD_GEMINI_TIMEOUT"); timeout != "" {
		config.Classifier.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("STEWARD_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Classifier.Gemini.RateLimit = rateLimit
	}

	// Mailer configuration
	if enabled := os.Getenv("STEWARD_MAILER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Mailer.Enabled = e
		}
	}
	if host := os.Getenv("STEWARD_MAILER_HOST"); host != "" {
		config.Mailer.Host = host
	}
	if port := os.Getenv("STEWARD_MAILER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Mailer.Port = p
		}
	}
	if username := os.Getenv("STEWARD_MAILER_USERNAME"); username != "" {
		config.Mailer.Username = username
	}
	if password := os.Getenv("STEWARD_MAILER_PASSWORD"); password != "" {
		config.Mailer.Password = password
	}
	if from := os.Getenv("STEWARD_MAILER_FROM"); from != "" {
		config.Mailer.From = from
	}
	if adminTo := os.Getenv("STEWARD_MAILER_ADMIN_TO"); adminTo != "" {
		config.Mailer.AdminTo = adminTo
	}

	// Cleanup configuration
	if enabled := os.Getenv("STEWARD_CLEANUP_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cleanup.Enabled = e
		}
	}
	if schedule := os.Getenv("STEWARD_CLEANUP_SCHEDULE"); schedule != "" {
		config.Cleanup.Schedule = schedule
	}
	if retention := os.Getenv("STEWARD_CLEANUP_RETENTION_DAYS"); retention != "" {
		if r, err := strconv.Atoi(retention); err == nil {
			config.Cleanup.RetentionDays = r
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ParseDurationOr parses a duration string, returning fallback when the
// value is empty or malformed.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
