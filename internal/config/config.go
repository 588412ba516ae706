package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string

	StoreBackend string
	DBPath       string

	AppwriteEndpoint     string
	AppwriteProjectID    string
	AppwriteDatabaseID   string
	AppwriteCollectionID string
	AppwriteAPIKey       string

	CacheBackend  string
	CacheSize     int
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LookupTimeout     time.Duration
	LowStockThreshold int64
	SessionTTL        time.Duration
	MaxSessions       int

	VisionBackend string
	OllamaHost    string
	OllamaModel   string
	ClaudeAPIKey  string
	ClaudeModel   string

	LogLevel string
	LogFile  string
}

// Load reads the configuration from the environment. Malformed numbers and
// durations are reported rather than silently defaulted.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		StoreBackend:         getEnv("STORE_BACKEND", "sqlite"),
		DBPath:               getEnv("DB_PATH", "/data/scaninv.db"),
		AppwriteEndpoint:     getEnv("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1"),
		AppwriteProjectID:    getEnv("APPWRITE_PROJECT_ID", ""),
		AppwriteDatabaseID:   getEnv("APPWRITE_DATABASE_ID", ""),
		AppwriteCollectionID: getEnv("APPWRITE_COLLECTION_ID", ""),
		AppwriteAPIKey:       getEnv("APPWRITE_API_KEY", ""),
		CacheBackend:         getEnv("CACHE_BACKEND", "memory"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		VisionBackend:        getEnv("VISION_BACKEND", "none"),
		OllamaHost:           getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "moondream"),
		ClaudeAPIKey:         getEnv("CLAUDE_API_KEY", ""),
		ClaudeModel:          getEnv("CLAUDE_MODEL", "claude-sonnet-4-5"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFile:              getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.CacheSize, err = getEnvInt("CACHE_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.MaxSessions, err = getEnvInt("MAX_SESSIONS", 1024); err != nil {
		return nil, err
	}
	threshold, err := getEnvInt("LOW_STOCK_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}
	cfg.LowStockThreshold = int64(threshold)
	if cfg.CacheTTL, err = getEnvDuration("CACHE_TTL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.LookupTimeout, err = getEnvDuration("LOOKUP_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required when STORE_BACKEND=sqlite")
		}
	case "appwrite":
		if c.AppwriteProjectID == "" || c.AppwriteDatabaseID == "" || c.AppwriteCollectionID == "" {
			return fmt.Errorf("APPWRITE_PROJECT_ID, APPWRITE_DATABASE_ID and APPWRITE_COLLECTION_ID are required when STORE_BACKEND=appwrite")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q", c.CacheBackend)
	}

	switch c.VisionBackend {
	case "none", "ollama":
	case "claude":
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
		}
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}

	if c.CacheSize <= 0 || c.MaxSessions <= 0 {
		return fmt.Errorf("CACHE_SIZE and MAX_SESSIONS must be positive")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val, exists := os.LookupEnv(key)
	if !exists || val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return d, nil
}
