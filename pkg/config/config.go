package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port     string
		GRPCPort string
		Env      string
		Timeout  time.Duration
		BaseURL  string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret string
		Expiry time.Duration
		Issuer string
	}

	// Security configuration
	Security struct {
		RateLimit         float64
		RateLimitBurst    int
		AllowedOrigins    []string
		TrustedProxies    []string
		MaxBodySize       int64
		OpenAPISchemaPath string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Observability configuration
	Observability struct {
		TracingEnabled bool
		ServiceName    string
	}

	// Analysis engine configuration
	Analysis struct {
		// Provider is one of "rules", "http" or "openai"
		Provider         string
		ServiceURL       string
		APIKey           string
		OpenAIKey        string
		OpenAIModel      string
		OpenAIBaseURL    string
		Timeout          time.Duration
		BreakerFailures  int
		BreakerResetTime time.Duration
	}

	// Chat configuration
	Chat struct {
		HistoryLimit     int
		ReplyTimeout     time.Duration
		MaxMessageLength int
	}

	// Redis configuration; an empty URL selects in-process locking
	Redis struct {
		URL     string
		LockTTL time.Duration
	}

	// Pending content check retry worker
	Retry struct {
		Enabled   bool
		Interval  time.Duration
		BatchSize int
		MinAge    time.Duration
	}

	// Report archive (MinIO / S3 compatible)
	Storage struct {
		Enabled   bool
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}

	// Vault configuration
	Vault struct {
		Enabled bool
		Address string
		Token   string
		Mount   string
		Path    string
	}

	// Cache settings
	Cache struct {
		TTL time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New returns the process-wide Config, loading it from the environment on first use
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		_ = godotenv.Load()
		instance = Load()
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	return New()
}

// Load builds a fresh Config from the current environment.
func Load() *Config {
	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "8080")
	cfg.Server.GRPCPort = getEnvString("GRPC_PORT", "9090")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 60*time.Second)
	cfg.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+cfg.Server.Port)

	// Database config
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "licenseguard")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
	cfg.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

	// JWT config
	cfg.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
	cfg.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)
	cfg.JWT.Issuer = getEnvString("JWT_ISSUER", "licenseguard")

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 5)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	cfg.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})
	cfg.Security.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", 1<<20) // 1MB
	cfg.Security.OpenAPISchemaPath = getEnvString("OPENAPI_SCHEMA_PATH", "")

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	cfg.Observability.TracingEnabled = getEnvBool("TRACING_ENABLED", false)
	cfg.Observability.ServiceName = getEnvString("SERVICE_NAME", "licenseguard-api")

	// Analysis engine
	cfg.Analysis.Provider = strings.ToLower(getEnvString("ANALYSIS_PROVIDER", "rules"))
	cfg.Analysis.ServiceURL = getEnvString("ANALYSIS_SERVICE_URL", "")
	cfg.Analysis.APIKey = getEnvString("ANALYSIS_API_KEY", "")
	cfg.Analysis.OpenAIKey = getEnvString("OPENAI_API_KEY", "")
	cfg.Analysis.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.Analysis.OpenAIBaseURL = getEnvString("OPENAI_BASE_URL", "")
	cfg.Analysis.Timeout = getEnvDuration("ANALYSIS_TIMEOUT", 30*time.Second)
	cfg.Analysis.BreakerFailures = getEnvInt("ANALYSIS_BREAKER_FAILURES", 5)
	cfg.Analysis.BreakerResetTime = getEnvDuration("ANALYSIS_BREAKER_RESET", 30*time.Second)

	// Chat
	cfg.Chat.HistoryLimit = getEnvInt("CHAT_HISTORY_LIMIT", 50)
	cfg.Chat.ReplyTimeout = getEnvDuration("CHAT_REPLY_TIMEOUT", 30*time.Second)
	cfg.Chat.MaxMessageLength = getEnvInt("CHAT_MAX_MESSAGE_LENGTH", 4000)

	// Redis
	cfg.Redis.URL = getEnvString("REDIS_URL", "")
	cfg.Redis.LockTTL = getEnvDuration("LOCK_TTL", 2*time.Minute)

	// Retry worker
	cfg.Retry.Enabled = getEnvBool("RETRY_ENABLED", true)
	cfg.Retry.Interval = getEnvDuration("RETRY_INTERVAL", time.Minute)
	cfg.Retry.BatchSize = getEnvInt("RETRY_BATCH_SIZE", 20)
	cfg.Retry.MinAge = getEnvDuration("RETRY_MIN_AGE", 30*time.Second)

	// Report archive
	cfg.Storage.Enabled = getEnvBool("STORAGE_ENABLED", false)
	cfg.Storage.Endpoint = getEnvString("MINIO_ENDPOINT", "localhost:9000")
	cfg.Storage.AccessKey = getEnvString("MINIO_ACCESS_KEY", "")
	cfg.Storage.SecretKey = getEnvString("MINIO_SECRET_KEY", "")
	cfg.Storage.Bucket = getEnvString("MINIO_BUCKET", "content-reports")
	cfg.Storage.UseSSL = getEnvBool("MINIO_USE_SSL", false)

	// Vault
	cfg.Vault.Enabled = getEnvBool("VAULT_ENABLED", false)
	cfg.Vault.Address = getEnvString("VAULT_ADDR", "http://127.0.0.1:8200")
	cfg.Vault.Token = getEnvString("VAULT_TOKEN", "")
	cfg.Vault.Mount = getEnvString("VAULT_MOUNT", "secret")
	cfg.Vault.Path = getEnvString("VAULT_PATH", "licenseguard")

	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)

	return cfg
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
