package config

// Package config provides configuration loading for the application.
import (
	"FMQuery/internal"
	"FMQuery/internal/logger"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogDir      string
	PostgresDSN string
	RedisAddr   string
	DataAPI     DataAPIConfig
	CORS        CORSConfig
}

// DataAPIConfig locates the remote Data API and the account used for
// its sessions.
type DataAPIConfig struct {
	Server   string
	Database string
	User     string
	Password string
	Timeout  time.Duration
}

type CORSConfig struct {
	AllowOrigin      string
	AllowCredentials bool
}

func LoadConfig() *Config {
	// .env is looked up next to go.mod
	root, _ := internal.FindRepoRoot()
	_ = godotenv.Load(filepath.Join(root, ".env"))

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		LogDir:      getEnv("LOG_DIR", "."),
		PostgresDSN: getEnvOptional("POSTGRES_DSN"),
		RedisAddr:   getEnvOptional("REDIS_ADDR"),
		DataAPI: DataAPIConfig{
			Server:   strings.TrimRight(getEnv("FM_SERVER", "http://localhost"), "/"),
			Database: getEnvOptional("FM_DATABASE"),
			User:     getEnvOptional("FM_USER"),
			Password: getEnvOptional("FM_PASSWORD"),
			Timeout:  time.Duration(getEnvInt64("FM_HTTP_TIMEOUT_SEC", 30)) * time.Second,
		},
		CORS: CORSConfig{
			AllowOrigin:      getEnv("CORS_ALLOW_ORIGIN", "*"),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
		},
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	logger.Warn("env_default", map[string]any{
		"key":      key,
		"fallback": fallback,
	})
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logger.Warn("env_invalid_bool", map[string]any{
			"key":      key,
			"value":    value,
			"fallback": fallback,
		})
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed < 0 {
		logger.Warn("env_invalid_int", map[string]any{
			"key":      key,
			"value":    value,
			"fallback": fallback,
		})
		return fallback
	}
	return parsed
}

func getEnvOptional(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
