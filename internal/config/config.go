package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the kwentura service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	App       AppConfig       `mapstructure:"app"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	AI        AIConfig        `mapstructure:"ai"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment      string `mapstructure:"environment"`
	LogLevel         string `mapstructure:"log_level"`
	BatchConcurrency int    `mapstructure:"batch_concurrency"`
}

// FirebaseConfig holds Firebase project and credential settings
type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
	// DocStoreProvider is "firestore" or "memory"
	DocStoreProvider string `mapstructure:"doc_store_provider"`
}

// StorageConfig holds blob storage configuration
type StorageConfig struct {
	Bucket string `mapstructure:"bucket"`
}

// EventsConfig selects the document change stream transport
type EventsConfig struct {
	// Bus is "local" or "nats"
	Bus string `mapstructure:"bus"`
}

// NATSConfig holds NATS configuration for the change stream
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	MaxReconnects int    `mapstructure:"max_reconnects"`
	ReconnectWait int    `mapstructure:"reconnect_wait"` // In seconds
}

// RedisConfig holds Redis configuration for distributed locks
type RedisConfig struct {
	URL            string `mapstructure:"url"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds"`
}

// SchedulerConfig holds cron schedules for background jobs
type SchedulerConfig struct {
	RetentionSchedule string `mapstructure:"retention_schedule"`
	RetentionTimezone string `mapstructure:"retention_timezone"`
	ReconcileSchedule string `mapstructure:"reconcile_schedule"`
	ReconcileEnabled  bool   `mapstructure:"reconcile_enabled"`
}

// AIConfig holds generative AI and speech synthesis configuration
type AIConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	TTSTimeout time.Duration `mapstructure:"tts_timeout"`
}

// envBindings maps config keys to the environment variable names used in deployments
var envBindings = map[string]string{
	"server.host":                  "SERVER_HOST",
	"server.port":                  "SERVER_PORT",
	"server.allowed_origins":       "CORS_ALLOWED_ORIGINS",
	"app.environment":              "APP_ENV",
	"app.log_level":                "LOG_LEVEL",
	"app.batch_concurrency":        "BATCH_CONCURRENCY",
	"firebase.project_id":          "FIREBASE_PROJECT_ID",
	"firebase.credentials_file":    "FIREBASE_CREDENTIALS_FILE",
	"firebase.credentials_json":    "FIREBASE_CREDENTIALS_JSON",
	"firebase.doc_store_provider":  "DOC_STORE_PROVIDER",
	"storage.bucket":               "STORAGE_BUCKET",
	"events.bus":                   "EVENT_BUS",
	"nats.url":                     "NATS_URL",
	"nats.max_reconnects":          "NATS_MAX_RECONNECTS",
	"nats.reconnect_wait":          "NATS_RECONNECT_WAIT",
	"redis.url":                    "REDIS_URL",
	"redis.lock_ttl_seconds":       "LOCK_TTL_SECONDS",
	"scheduler.retention_schedule": "RETENTION_SCHEDULE",
	"scheduler.retention_timezone": "RETENTION_TIMEZONE",
	"scheduler.reconcile_schedule": "RECONCILE_SCHEDULE",
	"scheduler.reconcile_enabled":  "RECONCILE_ENABLED",
	"ai.api_key":                   "AI_API_KEY",
	"ai.model":                     "AI_MODEL",
	"ai.base_url":                  "AI_BASE_URL",
	"ai.timeout":                   "AI_TIMEOUT",
	"ai.tts_timeout":               "AI_TTS_TIMEOUT",
}

// Load loads configuration from an optional config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Comma separated origins arrive as a single element from the environment
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = splitAndTrim(cfg.Server.AllowedOrigins[0])
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.batch_concurrency", 16)

	v.SetDefault("firebase.doc_store_provider", "firestore")

	v.SetDefault("events.bus", "local")

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2)

	v.SetDefault("redis.lock_ttl_seconds", 30)

	v.SetDefault("scheduler.retention_schedule", "0 0 * * *") // midnight daily
	v.SetDefault("scheduler.retention_timezone", "Asia/Manila")
	v.SetDefault("scheduler.reconcile_schedule", "0 * * * *")
	v.SetDefault("scheduler.reconcile_enabled", true)

	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.timeout", 9*time.Minute)
	v.SetDefault("ai.tts_timeout", time.Hour)
}

// Validate checks the configuration for values the service cannot start without
func (c *Config) Validate() error {
	switch c.Firebase.DocStoreProvider {
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DOC_STORE_PROVIDER %q", c.Firebase.DocStoreProvider)
	}

	switch c.Events.Bus {
	case "local", "nats":
	default:
		return fmt.Errorf("unsupported EVENT_BUS %q", c.Events.Bus)
	}

	if c.App.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}

	return nil
}

// GetServerAddress returns the server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return strings.ToLower(c.App.Environment) == "production"
}

// UsesMemoryStores reports whether the in-memory stores replace the Firebase backends
func (c *Config) UsesMemoryStores() bool {
	return c.Firebase.DocStoreProvider == "memory"
}

// AIEnabled reports whether an API key for the content generator is configured
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// LockTTL returns the TTL for approval locks
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
