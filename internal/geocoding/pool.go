package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/geoplaces/internal/cache"
	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultWorkers is the fan-out used by per-item providers when none is configured.
const DefaultWorkers = 4

// itemSource is a provider that answers one coordinate per request.
type itemSource interface {
	Name() string
	fetch(ctx context.Context, c models.Coordinate) ([]byte, error)
	parse(raw []byte) ([]models.Place, error)
}

// itemResolver drives an itemSource over a coordinate set through the response cache,
// with at most workers requests in flight.
type itemResolver struct {
	store   *cache.Store
	limiter *rate.Limiter
	workers int
	log     *slog.Logger
	metrics *metrics.Metrics
}

func (r *itemResolver) resolve(
	ctx context.Context,
	src itemSource,
	coords []models.Coordinate,
) ([]models.Place, error) {
	if len(coords) == 0 {
		return nil, nil
	}

	bar := newProgress(len(coords), "Reverse geocoding", r.log)
	defer bar.finish()

	results := make([][]models.Place, len(coords))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for idx, coord := range coords {
		group.Go(func() error {
			r.metrics.ActiveWorkers.Inc()
			defer r.metrics.ActiveWorkers.Dec()

			places, err := r.resolveOne(gctx, src, coord)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", coord.Normalized(), err)
			}

			results[idx] = places
			bar.add(1)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var places []models.Place
	for _, res := range results {
		places = append(places, res...)
	}

	r.metrics.PlacesResolved.WithLabelValues(src.Name()).Add(float64(len(places)))
	r.log.InfoContext(ctx, "Reverse geocoding finished",
		"provider", src.Name(),
		"coordinates", len(coords),
		"places", len(places))

	return places, nil
}

// resolveOne serves the coordinate from the cache, downloading and caching it when the
// entry is missing or unreadable.
func (r *itemResolver) resolveOne(
	ctx context.Context,
	src itemSource,
	coord models.Coordinate,
) ([]models.Place, error) {
	unlock := r.store.Lock(coord)
	defer unlock()

	raw, status := r.store.Get(coord)
	if status == cache.StatusHit {
		places, err := src.parse(raw)
		if err == nil {
			r.metrics.CacheLookups.WithLabelValues(src.Name(), string(cache.StatusHit)).Inc()
			return places, nil
		}
		status = cache.StatusCorrupt
	}

	r.metrics.CacheLookups.WithLabelValues(src.Name(), string(status)).Inc()
	if status == cache.StatusCorrupt {
		r.log.WarnContext(ctx, "Can't parse item from cache, re-downloading",
			"provider", src.Name(),
			"path", r.store.Path(coord))
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	raw, err := src.fetch(ctx, coord)
	if err != nil {
		return nil, err
	}

	places, err := src.parse(raw)
	if err != nil {
		return nil, err
	}

	if err = r.store.Put(coord, raw); err != nil {
		r.log.WarnContext(ctx, "Failed to cache response", "provider", src.Name(), "error", err)
	}

	return places, nil
}
