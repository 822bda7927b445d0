package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/proprogresja/venue-events/internal/logger"
)

// Genre cache backends
const (
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DataDir    string
	ListenAddr string
	StaticDir  string
	RulesDir   string

	ScrapeDelay       time.Duration
	ScrapeTimeout     time.Duration
	ScrapeRetries     int
	ScrapeConcurrency int
	CarryForward      bool
	ChromeBin         string

	GenreMode            string
	GenreKeywordFallback bool
	GenreCache           string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SpotifyClientID     string
	SpotifyClientSecret string

	LogLevel  string
	LogFormat string
}

// Load reads the .env file when present and returns a populated Config.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Could not read .env file, using environment only", logger.Fields{"error": err.Error()})
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment alone
func FromEnv() *Config {
	return &Config{
		DataDir:    getEnv("DATA_DIR", "~/.local/share/venue-events"),
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		StaticDir:  getEnv("STATIC_DIR", ""),
		RulesDir:   getEnv("RULES_DIR", ""),

		ScrapeDelay:       getEnvDuration("SCRAPE_DELAY", 2*time.Second),
		ScrapeTimeout:     getEnvDuration("SCRAPE_TIMEOUT", 60*time.Second),
		ScrapeRetries:     getEnvInt("SCRAPE_RETRIES", 2),
		ScrapeConcurrency: getEnvInt("SCRAPE_CONCURRENCY", 1),
		CarryForward:      getEnvBool("CARRY_FORWARD", false),
		ChromeBin:         getEnv("CHROME_BIN", ""),

		GenreMode:            strings.ToLower(getEnv("GENRE_MODE", "live")),
		GenreKeywordFallback: getEnvBool("GENRE_KEYWORD_FALLBACK", false),
		GenreCache:           strings.ToLower(getEnv("GENRE_CACHE", CacheFile)),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err == nil {
			return n
		}
		logger.Warn("Ignoring invalid integer setting", logger.Fields{"key": key, "value": val})
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	logger.Warn("Ignoring invalid duration setting", logger.Fields{"key": key, "value": val})
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err == nil {
			return b
		}
		logger.Warn("Ignoring invalid boolean setting", logger.Fields{"key": key, "value": val})
	}
	return fallback
}
