package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/UnknownOlympus/geoplaces/internal/hierarchy"
	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/UnknownOlympus/geoplaces/internal/places"
	"github.com/UnknownOlympus/geoplaces/internal/repository"
	"github.com/google/uuid"
)

// ErrNoPlaces is returned alongside an empty result when the provider found nothing.
// Callers treat it as a warning.
var ErrNoPlaces = errors.New("no places found")

// LocationService resolves coordinates into places and groups them into tiers.
type LocationService struct {
	log      *slog.Logger         // Logger for logging service activities
	provider geocoding.Provider   // Reverse geocoding provider
	repo     repository.Interface // Optional report sink, nil disables persistence
	metrics  *metrics.Metrics     // Metrics for tracking service performance
	tiers    []hierarchy.Tier     // Presentation tiers
}

// Result is the outcome of one Analyze call.
type Result struct {
	RunID       uuid.UUID              `json:"run_id"`
	Provider    string                 `json:"provider"`
	Coordinates int                    `json:"coordinates"`
	Places      []models.Place         `json:"places"`
	Stats       places.Stats           `json:"-"`
	Tiers       []hierarchy.TierResult `json:"tiers"`
}

// NewLocationService creates a new instance of LocationService. The repository may be
// nil, in which case reports are not stored.
func NewLocationService(
	log *slog.Logger,
	provider geocoding.Provider,
	repo repository.Interface,
	metrics *metrics.Metrics,
) *LocationService {
	return &LocationService{
		log:      log,
		provider: provider,
		repo:     repo,
		metrics:  metrics,
		tiers:    hierarchy.DefaultTiers(),
	}
}

// Analyze resolves the coordinate set, keeps one place per ID and groups the places
// into the default tiers. Provider failures are returned as is. When the provider
// reports nothing the empty result comes back with ErrNoPlaces.
func (s *LocationService) Analyze(ctx context.Context, coords []models.Coordinate) (*Result, error) {
	coords = models.NewCoordinateSet(coords...)
	result := &Result{
		RunID:       uuid.New(),
		Provider:    s.provider.Name(),
		Coordinates: len(coords),
		Tiers:       []hierarchy.TierResult{},
	}

	s.log.InfoContext(ctx, "Resolving places", "run", result.RunID, "provider", result.Provider,
		"coordinates", len(coords))

	resolved, err := s.provider.Resolve(ctx, coords)
	if err != nil {
		s.metrics.RunsProcessed.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("reverse geocoding using %s failed: %w", result.Provider, err)
	}

	agg := places.NewAggregator()
	agg.AddAll(resolved)
	result.Places = agg.Places()
	result.Stats = agg.Stats()

	if agg.Len() == 0 {
		s.metrics.RunsProcessed.WithLabelValues("empty").Inc()
		s.log.WarnContext(ctx, "No places found!", "run", result.RunID)
		return result, ErrNoPlaces
	}

	result.Tiers = hierarchy.GroupPlaces(result.Places, s.tiers)
	s.metrics.RunsProcessed.WithLabelValues("success").Inc()
	s.log.InfoContext(ctx, "Places resolved",
		"run", result.RunID,
		"places", result.Stats.Added,
		"duplicates", result.Stats.Duplicates,
		"skipped", result.Stats.Skipped,
		"tiers", len(result.Tiers))

	s.save(ctx, result)

	return result, nil
}

// save stores the report when a repository is configured. Failures are logged and
// counted; the analysis result stays valid.
func (s *LocationService) save(ctx context.Context, result *Result) {
	if s.repo == nil {
		return
	}

	err := s.repo.SaveReport(ctx, repository.Report{
		RunID:       result.RunID,
		Provider:    result.Provider,
		Coordinates: result.Coordinates,
		Places:      result.Places,
		Tiers:       result.Tiers,
	})
	if err != nil {
		s.metrics.ReportsSaved.WithLabelValues("failure").Inc()
		s.log.ErrorContext(ctx, "Failed to save report", "run", result.RunID, "error", err)
		return
	}

	s.metrics.ReportsSaved.WithLabelValues("success").Inc()
}
