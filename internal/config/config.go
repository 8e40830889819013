package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	CacheDir   string `validate:"required"`
	DBPath     string `validate:"required"`
	SessionDir string `validate:"required"`
	LogPath    string
	LogLevel   string `validate:"oneof=debug info warn error"`

	APIBaseURL string        `validate:"required,url"`
	APITimeout time.Duration `validate:"gt=0"`

	SessionStore  string        `validate:"oneof=file sqlite redis memory"`
	SessionMaxAge time.Duration `validate:"gte=0"`

	RedisAddr     string `validate:"required_if=SessionStore redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
	RedisPrefix   string

	ProductTTL      time.Duration `validate:"gt=0"`
	MonitorInterval time.Duration `validate:"gt=0"`
	MonitorBatch    int           `validate:"gt=0"`
	FetchPageSize   int           `validate:"gt=0"`
}

func Default() Config {
	cacheDir := filepath.Join(userConfigDir(), "basket")
	return Config{
		CacheDir:        cacheDir,
		DBPath:          filepath.Join(cacheDir, "cache.db"),
		SessionDir:      cacheDir,
		LogPath:         filepath.Join(cacheDir, "debug.log"),
		LogLevel:        "info",
		APIBaseURL:      "http://localhost:5000",
		APITimeout:      10 * time.Second,
		SessionStore:    StoreFile,
		SessionMaxAge:   30 * 24 * time.Hour,
		RedisAddr:       "localhost:6379",
		RedisPrefix:     "basket:",
		ProductTTL:      10 * time.Minute,
		MonitorInterval: 5 * time.Minute,
		MonitorBatch:    20,
		FetchPageSize:   50,
	}
}

// keys maps viper keys to their defaults. Environment variables use the
// BASKET_ prefix with dots replaced by underscores: BASKET_API_BASE_URL.
func keys(d Config) map[string]interface{} {
	return map[string]interface{}{
		"cache.dir":         d.CacheDir,
		"cache.db_path":     d.DBPath,
		"cache.product_ttl": d.ProductTTL,
		"log.path":          d.LogPath,
		"log.level":         d.LogLevel,
		"api.base_url":      d.APIBaseURL,
		"api.timeout":       d.APITimeout,
		"session.store":     d.SessionStore,
		"session.dir":       d.SessionDir,
		"session.max_age":   d.SessionMaxAge,
		"redis.addr":        d.RedisAddr,
		"redis.password":    d.RedisPassword,
		"redis.db":          d.RedisDB,
		"redis.prefix":      d.RedisPrefix,
		"monitor.interval":  d.MonitorInterval,
		"monitor.batch":     d.MonitorBatch,
		"fetch.page_size":   d.FetchPageSize,
	}
}

// Load builds a Config from defaults, an optional YAML file and BASKET_*
// environment variables. With an empty path it looks for basket.yaml in the
// working directory and the config directory; a missing file is not an error.
func Load(path string) (Config, error) {
	d := Default()
	v := viper.New()
	for k, val := range keys(d) {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("basket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(d.CacheDir)
	}
	v.SetEnvPrefix("BASKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := Config{
		CacheDir:        v.GetString("cache.dir"),
		DBPath:          v.GetString("cache.db_path"),
		ProductTTL:      v.GetDuration("cache.product_ttl"),
		LogPath:         v.GetString("log.path"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		APIBaseURL:      v.GetString("api.base_url"),
		APITimeout:      v.GetDuration("api.timeout"),
		SessionStore:    strings.ToLower(v.GetString("session.store")),
		SessionDir:      v.GetString("session.dir"),
		SessionMaxAge:   v.GetDuration("session.max_age"),
		RedisAddr:       v.GetString("redis.addr"),
		RedisPassword:   v.GetString("redis.password"),
		RedisDB:         v.GetInt("redis.db"),
		RedisPrefix:     v.GetString("redis.prefix"),
		MonitorInterval: v.GetDuration("monitor.interval"),
		MonitorBatch:    v.GetInt("monitor.batch"),
		FetchPageSize:   v.GetInt("fetch.page_size"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first problems found in cfg as one error.
func (c Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config validation failed: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s (got %v)", fe.Field(), fe.Tag(), fe.Value()))
		}
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}
