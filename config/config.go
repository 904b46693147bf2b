package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment driven setting of the service.
type Config struct {
	Port            string
	DBDriver        string
	DBURL           string
	RedisURL        string
	UsersPath       string
	IdentityTimeout time.Duration
	RateLimit       int
	AllowedOrigins  []string
	EnableProfiling bool
}

var (
	ErrUsersPathNotSet = errors.New("identity service base URL (USERS_PATH) environment variable is not set")
	ErrDBURLNotSet     = errors.New("database URL (DB_URL) environment variable is not set")
	ErrUnknownDriver   = errors.New("DB_DRIVER must be either postgres or sqlite")
)

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            GetString("PORT", "8000"),
		DBDriver:        GetString("DB_DRIVER", "postgres"),
		DBURL:           os.Getenv("DB_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		UsersPath:       strings.TrimRight(os.Getenv("USERS_PATH"), "/"),
		IdentityTimeout: GetDuration("IDENTITY_TIMEOUT", 5*time.Second),
		RateLimit:       GetInt("RATE_LIMIT", 30),
		AllowedOrigins:  GetList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8000"}),
		EnableProfiling: GetBool("ENABLE_PPROF", false),
	}

	if cfg.UsersPath == "" {
		return nil, ErrUsersPathNotSet
	}
	if cfg.DBURL == "" {
		return nil, ErrDBURLNotSet
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, ErrUnknownDriver
	}

	return cfg, nil
}

func (c *Config) GetAllowedOrigins() []string { return c.AllowedOrigins }

func (c *Config) GetRateLimit() int { return c.RateLimit }

func (c *Config) ProfilingEnabled() bool { return c.EnableProfiling }

func GetString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetInt(key string, defaultValue int) int {
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

func GetBool(key string, defaultValue bool) bool {
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

func GetDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// GetList splits a comma separated variable, dropping blank entries.
func GetList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			values = append(values, item)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
