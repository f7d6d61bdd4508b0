// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cart backends
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Config holds all configuration for our application
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Firebase FirebaseConfig
	Cart     CartConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// PostgresConfig contains database connection configuration
type PostgresConfig struct {
	Host           string
	Port           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	ConnectTimeout time.Duration
}

// FirebaseConfig contains Firebase project configuration.
// DevJWTSecret enables HS256 development tokens instead of Firebase ID tokens.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	CartsCollection string
	DevJWTSecret    string
}

// CartConfig contains cart storage configuration
type CartConfig struct {
	Backend       string
	GuestTTL      time.Duration
	SyncGuardTTL  time.Duration
	SessionIdle   time.Duration
	SweepInterval time.Duration
	RetentionDays int
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
	SecureCookies      bool
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Hoodskool Cart"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", false),
		},
		Server: ServerConfig{
			Port:            getEnv("APP_PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			MaxBodyBytes:    getEnvAsInt64("SERVER_MAX_BODY_BYTES", 1<<20),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		Postgres: PostgresConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			Name:           getEnv("DB_NAME", "hoodskool"),
			User:           getEnv("DB_USER", "hoodskool"),
			Password:       getEnv("DB_PASSWORD", ""),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:   getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
			ConnectTimeout: getEnvAsDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			CartsCollection: getEnv("FIRESTORE_CARTS_COLLECTION", "carts"),
			DevJWTSecret:    getEnv("DEV_JWT_SECRET", ""),
		},
		Cart: CartConfig{
			Backend:       strings.ToLower(getEnv("CART_BACKEND", BackendFirestore)),
			GuestTTL:      getEnvAsDuration("CART_GUEST_TTL", 30*24*time.Hour),
			SyncGuardTTL:  getEnvAsDuration("CART_SYNC_GUARD_TTL", 30*24*time.Hour),
			SessionIdle:   getEnvAsDuration("CART_SESSION_IDLE", 30*time.Minute),
			SweepInterval: getEnvAsDuration("CART_SWEEP_INTERVAL", time.Minute),
			RetentionDays: getEnvAsInt("CART_RETENTION_DAYS", 0),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			SecureCookies:      getEnvAsBool("SECURE_COOKIES", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	switch c.Cart.Backend {
	case BackendFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore cart backend")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Postgres.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
	default:
		return fmt.Errorf("CART_BACKEND must be %q or %q, got %q", BackendFirestore, BackendPostgres, c.Cart.Backend)
	}

	// Without a project there is nothing to verify ID tokens against
	if c.Firebase.ProjectID == "" && c.Firebase.DevJWTSecret == "" {
		return fmt.Errorf("either FIREBASE_PROJECT_ID or DEV_JWT_SECRET is required")
	}
	if c.Firebase.DevJWTSecret != "" {
		if c.IsProduction() {
			return fmt.Errorf("DEV_JWT_SECRET must not be set in production")
		}
		if len(c.Firebase.DevJWTSecret) < 32 {
			return fmt.Errorf("DEV_JWT_SECRET must be at least 32 characters long")
		}
	}

	if c.Cart.SessionIdle <= 0 {
		return fmt.Errorf("CART_SESSION_IDLE must be positive")
	}
	if c.Cart.SweepInterval <= 0 {
		return fmt.Errorf("CART_SWEEP_INTERVAL must be positive")
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.User,
		c.Postgres.Password,
		c.Postgres.Name,
		c.Postgres.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
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
