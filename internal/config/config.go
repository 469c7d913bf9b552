package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for geoplaces.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The port of the HTTP server started by "serve".
// - WorkDir: Directory holding the response cache and the preference file.
// - Workers: The number of concurrent requests of per-item providers.
// - RateLimit: Provider requests per second, 0 disables limiting.
// - CacheMaxAge: Age after which the whole response cache is purged.
// - RequestTimeout: Timeout of a single provider request.
// - Radius: Search radius in meters for posts without one.
// - Providers: Credentials of the reverse geocoding providers.
// - DatabaseURL: Optional PostgreSQL connection string of the report store.
type Config struct {
	Env            string         `yaml:"env"`
	Port           int            `yaml:"port"`
	WorkDir        string         `yaml:"workdir"`
	Workers        int            `yaml:"workers"`
	RateLimit      int            `yaml:"rate_limit"`
	CacheMaxAge    time.Duration  `yaml:"cache.max_age"`
	RequestTimeout time.Duration  `yaml:"request.timeout"`
	Radius         uint32         `yaml:"radius"`
	Providers      ProviderConfig `yaml:",inline"`
	DatabaseURL    string         `yaml:"database.url"`
}

// ProviderConfig holds the API credentials of every supported provider.
type ProviderConfig struct {
	HereAppID    string `yaml:"here.app_id"`    // HereAppID identifies the HERE application.
	HereAppCode  string `yaml:"here.app_code"`  // HereAppCode is the HERE application secret.
	YandexAPIKey string `yaml:"yandex.api_key"` // YandexAPIKey is the Yandex Geocoder key.
	GoogleAPIKey string `yaml:"google.api_key"` // GoogleAPIKey is the Google Maps key.
}

// CacheDir returns the response cache root inside WorkDir.
func (c *Config) CacheDir() string {
	return filepath.Join(c.WorkDir, "cache")
}

// PrefsPath returns the preference file inside WorkDir.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.WorkDir, "prefs.yaml")
}

// MustLoad reads .env, the optional geoplaces.yaml and GEOPLACES_* environment variables.
// Environment variables win over the file. It panics on values that cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("geoplaces")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.geoplaces")

	v.SetEnvPrefix("GEOPLACES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("port", "8080")
	v.SetDefault("workdir", defaultWorkDir())
	v.SetDefault("workers", "4")
	v.SetDefault("rate_limit", "10")
	v.SetDefault("cache.max_age", "720h")
	v.SetDefault("request.timeout", "10s")
	v.SetDefault("radius", "250")
	v.SetDefault("here.app_id", "")
	v.SetDefault("here.app_code", "")
	v.SetDefault("yandex.api_key", "")
	v.SetDefault("google.api_key", "")
	v.SetDefault("database.url", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic("failed to read configuration file")
		}
	}

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		panic("failed to parse port for server from configuration")
	}

	workers, err := strconv.Atoi(v.GetString("workers"))
	if err != nil || workers < 1 {
		panic("failed to parse workers from configuration, must be a positive integer")
	}

	rateLimit, err := strconv.Atoi(v.GetString("rate_limit"))
	if err != nil || rateLimit < 0 {
		panic("failed to parse rate limit from configuration, must be a non-negative integer")
	}

	maxAge, err := time.ParseDuration(v.GetString("cache.max_age"))
	if err != nil {
		panic("failed to parse cache max age from configuration")
	}

	timeout, err := time.ParseDuration(v.GetString("request.timeout"))
	if err != nil {
		panic("failed to parse request timeout from configuration")
	}

	radius, err := strconv.ParseUint(v.GetString("radius"), 10, 32)
	if err != nil {
		panic("failed to parse radius from configuration")
	}

	return &Config{
		Env:            v.GetString("env"),
		Port:           port,
		WorkDir:        v.GetString("workdir"),
		Workers:        workers,
		RateLimit:      rateLimit,
		CacheMaxAge:    maxAge,
		RequestTimeout: timeout,
		Radius:         uint32(radius),
		Providers: ProviderConfig{
			HereAppID:    v.GetString("here.app_id"),
			HereAppCode:  v.GetString("here.app_code"),
			YandexAPIKey: v.GetString("yandex.api_key"),
			GoogleAPIKey: v.GetString("google.api_key"),
		},
		DatabaseURL: v.GetString("database.url"),
	}
}

func defaultWorkDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".geoplaces"
	}

	return filepath.Join(home, ".geoplaces")
}
