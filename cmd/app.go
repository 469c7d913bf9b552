package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/cache"
	"github.com/UnknownOlympus/geoplaces/internal/config"
	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/UnknownOlympus/geoplaces/internal/prefs"
	"github.com/UnknownOlympus/geoplaces/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var errNoChoice = errors.New("no geocoder chosen")

// app bundles the collaborators every command builds from the configuration.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	prefs   *prefs.Store
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	// Create a separate registry for metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := prefs.Open(cfg.PrefsPath())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		metrics: metrics.NewMetrics(reg),
		prefs:   store,
	}, nil
}

func (a *app) registry() *geocoding.Registry {
	return geocoding.NewRegistry(a.prefs, geocoding.Credentials{
		HereAppID:    a.cfg.Providers.HereAppID,
		HereAppCode:  a.cfg.Providers.HereAppCode,
		YandexAPIKey: a.cfg.Providers.YandexAPIKey,
		GoogleAPIKey: a.cfg.Providers.GoogleAPIKey,
	}, a.log)
}

// purgeStaleCache drops the response cache when it is older than the configured age.
func (a *app) purgeStaleCache() error {
	purged, err := cache.PurgeIfStale(a.cfg.CacheDir(), a.prefs, time.Now(), a.cfg.CacheMaxAge)
	if err != nil {
		return err
	}
	if purged {
		a.log.Info("Response cache purged", "dir", a.cfg.CacheDir())
	}

	return nil
}

// provider settles the registry selection and builds the selected provider.
func (a *app) provider(choose geocoding.Chooser) (geocoding.Provider, error) {
	reg := a.registry()
	if _, err := reg.Init(choose); err != nil {
		return nil, err
	}

	return reg.Provider(geocoding.ProviderConfig{
		RateLimit: a.cfg.RateLimit,
		Workers:   a.cfg.Workers,
		Timeout:   a.cfg.RequestTimeout,
		CacheRoot: a.cfg.CacheDir(),
		Logger:    a.log,
		Metrics:   a.metrics,
	})
}

// openRepository connects to the report store. Without a database URL it returns a nil
// repository and a no-op close function.
func (a *app) openRepository(ctx context.Context) (repository.Interface, func(), error) {
	if a.cfg.DatabaseURL == "" {
		return nil, func() {}, nil
	}

	pool, err := repository.NewDatabase(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewRepository(pool, a.log)
	if err = repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repo, pool.Close, nil
}

// promptChooser asks on out which of the available providers to use and reads the
// 1-based answer from in. Invalid answers are asked again until in is exhausted.
func promptChooser(in io.Reader, out io.Writer) geocoding.Chooser {
	return func(available []geocoding.ProviderInfo) (geocoding.ProviderType, error) {
		scanner := bufio.NewScanner(in)

		for {
			fmt.Fprintln(out, "Several geocoders are available:")
			for i, info := range available {
				fmt.Fprintf(out, "  %d. %s\n", i+1, info.Name)
			}
			fmt.Fprintf(out, "Choose one [1-%d]: ", len(available))

			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return geocoding.ProviderTypeNone, fmt.Errorf("failed to read answer: %w", err)
				}
				return geocoding.ProviderTypeNone, errNoChoice
			}

			idx, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err == nil && idx >= 1 && idx <= len(available) {
				return available[idx-1].Type, nil
			}
			fmt.Fprintln(out, "Invalid choice.")
		}
	}
}
