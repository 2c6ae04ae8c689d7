package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port        string
	Env         string // development, staging, production
	CORSOrigins []string

	// Storage
	Store    StoreConfig
	Database DatabaseConfig
	SQLite   SQLiteConfig
	Firebase FirebaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	FMP    FMPConfig
	Yahoo  YahooConfig
	Gemini GeminiConfig

	// Screening
	StrategyDir string

	// Ingest
	Ingest IngestConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// StoreConfig selects the metrics repository backend
type StoreConfig struct {
	Backend string // postgres, sqlite, firestore, memory
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SQLiteConfig holds the local row store configuration
type SQLiteConfig struct {
	Path string
}

// FirebaseConfig holds the Firestore document store configuration
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
	Collection      string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey  string
	BaseURL string
}

// YahooConfig holds Yahoo Finance scraping configuration
type YahooConfig struct {
	BaseURL   string
	UserAgent string
}

// GeminiConfig holds Gemini (company analysis) configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// IngestConfig holds the fundamentals collection job configuration
type IngestConfig struct {
	Schedule        string
	RatePerSecond   float64
	MinPrice        float64
	MaxSymbolLength int
	Exchanges       []string
	SkipExisting    bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", "sqlite")),
		},

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "dinger"),
			User:            getEnv("DB_USER", "dinger"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "backend/stocks.db"),
		},

		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Collection:      getEnv("FIRESTORE_COLLECTION", "total_stocks"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// External APIs
		FMP: FMPConfig{
			APIKey:  getEnv("FMP_API_KEY", ""),
			BaseURL: getEnv("FMP_BASE_URL", "https://financialmodelingprep.com"),
		},

		Yahoo: YahooConfig{
			BaseURL:   getEnv("YAHOO_BASE_URL", "https://finance.yahoo.com"),
			UserAgent: getEnv("YAHOO_USER_AGENT", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		},

		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", "60s"),
		},

		StrategyDir: getEnv("STRATEGY_DIR", "config/strategy"),

		Ingest: IngestConfig{
			Schedule:        getEnv("INGEST_SCHEDULE", "0 0 6 * * *"),
			RatePerSecond:   getEnvAsFloat("INGEST_RATE_PER_SECOND", 1.0),
			MinPrice:        getEnvAsFloat("INGEST_MIN_PRICE", 10.0),
			MaxSymbolLength: getEnvAsInt("INGEST_MAX_SYMBOL_LENGTH", 0),
			Exchanges:       getEnvAsList("INGEST_EXCHANGES", []string{"NYSE", "NASDAQ"}),
			SkipExisting:    getEnvAsBool("INGEST_SKIP_EXISTING", true),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Store.Backend {
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres store")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for sqlite store")
		}
	case "firestore":
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for firestore store")
		}
	case "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be one of: postgres, sqlite, firestore, memory")
	}

	if c.Ingest.RatePerSecond <= 0 {
		return fmt.Errorf("INGEST_RATE_PER_SECOND must be > 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	items := make([]string, 0)
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
