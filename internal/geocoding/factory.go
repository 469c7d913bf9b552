package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/cache"
	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeNone means no provider is selected; location features are disabled.
	ProviderTypeNone ProviderType = "none"
	// ProviderTypeHere represents the HERE batch reverse geocoder.
	ProviderTypeHere ProviderType = "here"
	// ProviderTypeYandex represents the Yandex Geocoder.
	ProviderTypeYandex ProviderType = "yandex"
	// ProviderTypeGoogle represents Google Maps reverse geocoding.
	ProviderTypeGoogle ProviderType = "google"
)

const defaultTimeout = 10 * time.Second

// Credentials holds the API keys of every provider. Empty values mean "not configured".
type Credentials struct {
	HereAppID    string
	HereAppCode  string
	YandexAPIKey string
	GoogleAPIKey string
}

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type        ProviderType
	Credentials Credentials
	RateLimit   int           // Requests per second, 0 disables limiting
	Workers     int           // Concurrent requests of per-item providers
	Timeout     time.Duration // HTTP timeout per request
	CacheRoot   string        // Root of the response cache, one subdirectory per provider
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Options carries the collaborators shared by every provider implementation.
type Options struct {
	Store   *cache.Store // Response cache, required by per-item providers
	Limiter *rate.Limiter
	Workers int
	Timeout time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return defaultTimeout
	}
	return o.Timeout
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) limiter() *rate.Limiter {
	if o.Limiter == nil {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return o.Limiter
}

func (o Options) metrics() *metrics.Metrics {
	if o.Metrics == nil {
		return metrics.NewMetrics(prometheus.NewRegistry())
	}
	return o.Metrics
}

func (o Options) resolver() *itemResolver {
	workers := o.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &itemResolver{
		store:   o.Store,
		limiter: o.limiter(),
		workers: workers,
		log:     o.logger(),
		metrics: o.metrics(),
	}
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "here": HERE batch reverse geocoder (requires app ID and app code)
// - "yandex": Yandex Geocoder (requires API key, cached per coordinate)
// - "google": Google Maps reverse geocoding (requires API key, cached per coordinate)
//
// ProviderTypeNone yields ErrNoProviders.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeHere:
		return newHereProvider(config)
	case ProviderTypeYandex:
		return newYandexProvider(config)
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNone:
		return nil, ErrNoProviders
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func (config ProviderConfig) options() Options {
	opts := Options{
		Workers: config.Workers,
		Timeout: config.Timeout,
		Logger:  config.Logger,
		Metrics: config.Metrics,
	}
	if config.RateLimit > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateLimit)
	}
	return opts
}

// cachedOptions opens the provider's cache namespace under CacheRoot.
func (config ProviderConfig) cachedOptions() (Options, error) {
	if config.CacheRoot == "" {
		return Options{}, errors.New("cache directory is required for per-item providers")
	}

	opts := config.options()
	store, err := cache.NewStore(config.CacheRoot, "geocoder-"+string(config.Type), opts.logger())
	if err != nil {
		return Options{}, err
	}
	opts.Store = store

	return opts, nil
}

func newHereProvider(config ProviderConfig) (Provider, error) {
	if config.Credentials.HereAppID == "" || config.Credentials.HereAppCode == "" {
		return nil, errors.New("app ID and app code are required for HERE provider")
	}

	return NewHereProvider(config.Credentials.HereAppID, config.Credentials.HereAppCode, config.options()), nil
}

func newYandexProvider(config ProviderConfig) (Provider, error) {
	if config.Credentials.YandexAPIKey == "" {
		return nil, errors.New("API key is required for Yandex provider")
	}

	opts, err := config.cachedOptions()
	if err != nil {
		return nil, err
	}

	return NewYandexProvider(config.Credentials.YandexAPIKey, opts), nil
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.Credentials.GoogleAPIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	opts, err := config.cachedOptions()
	if err != nil {
		return nil, err
	}

	// Create Google Maps client with API key and rate limiting
	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.Credentials.GoogleAPIKey),
		maps.WithHTTPClient(&http.Client{Timeout: opts.timeout()}),
	}

	// The maps client throttles itself, so the shared limiter stays open.
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
		opts.Limiter = nil
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, opts), nil
}
