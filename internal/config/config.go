// Package config загружает настройки клиента из окружения и необязательного .env файла.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Переменные окружения
const (
	EnvServerURL       = "ANNONCES_SERVER_URL"
	EnvDBPath          = "ANNONCES_DB_PATH"
	EnvCachePath       = "ANNONCES_CACHE_PATH"
	EnvRequestTimeout  = "ANNONCES_REQUEST_TIMEOUT"
	EnvCacheTTL        = "ANNONCES_CACHE_TTL"
	EnvStorePassphrase = "ANNONCES_STORE_PASSPHRASE"
	EnvLogLevel        = "ANNONCES_LOG_LEVEL"
	EnvMetricsFile     = "ANNONCES_METRICS_FILE"
)

// Значения по умолчанию
const (
	DefaultServerURL      = "http://localhost:8081/api"
	DefaultDBPath         = "camerannonces-client.db"
	DefaultCachePath      = "camerannonces-cache.db"
	DefaultRequestTimeout = 10 * time.Second
	DefaultCacheTTL       = time.Hour
	DefaultLogLevel       = "warn"
)

// Config - настройки клиента
type Config struct {
	ServerURL       string
	DBPath          string
	CachePath       string
	StorePassphrase string
	LogLevel        string
	MetricsFile     string
	RequestTimeout  time.Duration
	CacheTTL        time.Duration
}

// Load читает .env файлы (если есть) и окружение.
// Уже заданные переменные окружения не перезаписываются.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	timeout, err := GetDuration(EnvRequestTimeout, DefaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	ttl, err := GetDuration(EnvCacheTTL, DefaultCacheTTL)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerURL:       GetEnv(EnvServerURL, DefaultServerURL),
		DBPath:          GetEnv(EnvDBPath, DefaultDBPath),
		CachePath:       GetEnv(EnvCachePath, DefaultCachePath),
		StorePassphrase: os.Getenv(EnvStorePassphrase),
		LogLevel:        GetEnv(EnvLogLevel, DefaultLogLevel),
		MetricsFile:     os.Getenv(EnvMetricsFile),
		RequestTimeout:  timeout,
		CacheTTL:        ttl,
	}, nil
}

// Validate проверяет настройки
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.ServerURL)
	switch {
	case strings.TrimSpace(c.ServerURL) == "":
		errs = append(errs, errors.New("server URL is required"))
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid server URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server URL must use http or https, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("server URL has no host"))
	}

	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cache TTL must be positive, got %s", c.CacheTTL))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// GetEnv возвращает значение переменной или defaultValue, если она пуста
func GetEnv(name, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration читает длительность в формате time.ParseDuration
func GetDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}
