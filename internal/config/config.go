package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds every setting the tracker reads from the environment.
type Config struct {
	Version string

	// Storage
	StoreBackend  string // file, redis, postgres, memory
	StateDir      string
	StoreKey      string
	RedisAddr     string
	RedisPoolSize int
	DatabaseURL   string

	// Quotes
	QuoteSource     string // yahoo, alpaca, http
	QuoteServiceURL string
	QuoteTimeoutSec int

	// Presentation
	HTTPPort         int
	Currency         string
	TelegramBotToken string
	TelegramChatID   string

	// Logging
	LogLevel      string
	LogFile       string
	MaxLogSizeMB  int64
	MaxLogBackups int
}

// secretVars are masked when the .env file is echoed at startup.
var secretVars = map[string]bool{
	"TELEGRAM_BOT_TOKEN":  true,
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
	"DATABASE_URL":        true,
}

// Load initializes the configuration.
// It tries to read a .env file, then reads the process environment with defaults.
func Load() *Config {
	// Load .env variables into the process environment
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		StoreBackend:  getEnv("STORE_BACKEND", "file"),
		StateDir:      getEnv("STATE_DIR", "."),
		StoreKey:      getEnv("STORE_KEY", "stocks"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPoolSize: getEnvAsInt("REDIS_POOL_SIZE", 4),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		QuoteSource:     getEnv("QUOTE_SOURCE", "yahoo"),
		QuoteServiceURL: getEnv("QUOTE_SERVICE_URL", "http://localhost:5000"),
		QuoteTimeoutSec: getEnvAsInt("QUOTE_TIMEOUT_SEC", 10),

		HTTPPort:         getEnvAsInt("HTTP_PORT", 8080),
		Currency:         getEnv("CURRENCY", "USD"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFile:       getEnv("LOG_FILE", "tracker.log"),
		MaxLogSizeMB:  int64(getEnvAsInt("MAX_LOG_SIZE_MB", 10)),
		MaxLogBackups: getEnvAsInt("MAX_LOG_BACKUPS", 3),
	}

	// Print variables defined in .env file
	envMap, err := godotenv.Read()
	if err == nil {
		log.Println("--- .env File Variables ---")
		for key, val := range envMap {
			log.Printf("%s=%s", key, mask(key, val))
		}
		log.Println("---------------------------")
	}

	return cfg
}

// TelegramEnabled reports whether both Telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// mask shows only the last 4 chars of secret values.
func mask(key, val string) string {
	if !secretVars[key] {
		return val
	}
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}
