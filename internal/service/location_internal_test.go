package service

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/UnknownOlympus/geoplaces/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Resolve(ctx context.Context, coords []models.Coordinate) ([]models.Place, error) {
	args := m.Called(ctx, coords)
	places, _ := args.Get(0).([]models.Place)
	return places, args.Error(1)
}

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) EnsureSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepository) SaveReport(ctx context.Context, report repository.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockRepository) ListRuns(ctx context.Context, limit int) ([]repository.RunSummary, error) {
	args := m.Called(ctx, limit)
	runs, _ := args.Get(0).([]repository.RunSummary)
	return runs, args.Error(1)
}

func parisLyon() []models.Place {
	return []models.Place{
		{ID: "1", Accuracy: models.AccuracyCity, Country: "France", State: "IDF", City: "Paris"},
		{ID: "2", Accuracy: models.AccuracyCity, Country: "France", State: "IDF", City: "Paris"},
		{ID: "3", Accuracy: models.AccuracyCity, Country: "France", State: "ARA", City: "Lyon"},
		{ID: "1", Accuracy: models.AccuracyCountry, Country: "Spain"},
		{Accuracy: models.AccuracyCountry, Country: "Nowhere"},
	}
}

func TestAnalyze(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := t.Context()
	coords := []models.Coordinate{
		{Latitude: 48.8566, Longitude: 2.3522, Radius: 250},
		{Latitude: 45.764, Longitude: 4.8357, Radius: 250},
		{Latitude: 48.8566, Longitude: 2.3522, Radius: 250},
	}
	want := models.NewCoordinateSet(coords...)

	t.Run("successful analysis", func(t *testing.T) {
		mockProvider := &mockProvider{}
		mockProvider.On("Resolve", ctx, want).Return(parisLyon(), nil).Once()
		service := NewLocationService(logger, mockProvider, nil, metrics.NewMetrics(prometheus.NewRegistry()))

		result, err := service.Analyze(ctx, coords)

		require.NoError(t, err)
		assert.Equal(t, "mock", result.Provider)
		assert.Equal(t, 2, result.Coordinates)
		assert.Len(t, result.Places, 3)
		assert.Equal(t, "France", result.Places[0].Country, "first insertion wins")
		assert.Equal(t, 1, result.Stats.Duplicates)
		assert.Equal(t, 1, result.Stats.Skipped)

		require.NotEmpty(t, result.Tiers)
		country := result.Tiers[0]
		assert.Equal(t, "Country", country.Name)
		require.Len(t, country.Groups, 1)
		assert.Equal(t, "France", country.Groups[0].Label)
		assert.InDelta(t, 100.0, country.Groups[0].Percentage, 1e-9)
		mockProvider.AssertExpectations(t)
	})

	t.Run("provider error is fatal", func(t *testing.T) {
		mockProvider := &mockProvider{}
		mockProvider.On("Resolve", ctx, want).Return(nil, geocoding.ErrNetwork).Once()
		service := NewLocationService(logger, mockProvider, nil, metrics.NewMetrics(prometheus.NewRegistry()))

		result, err := service.Analyze(ctx, coords)

		require.ErrorIs(t, err, geocoding.ErrNetwork)
		assert.Nil(t, result)
		mockProvider.AssertExpectations(t)
	})

	t.Run("no places is a warning", func(t *testing.T) {
		mockProvider := &mockProvider{}
		mockProvider.On("Resolve", ctx, want).Return([]models.Place{{Country: "no id"}}, nil).Once()
		mockRepo := &mockRepository{}
		service := NewLocationService(logger, mockProvider, mockRepo, metrics.NewMetrics(prometheus.NewRegistry()))

		result, err := service.Analyze(ctx, coords)

		require.ErrorIs(t, err, ErrNoPlaces)
		require.NotNil(t, result)
		assert.Empty(t, result.Places)
		assert.Empty(t, result.Tiers)
		mockRepo.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything)
	})

	t.Run("report is saved", func(t *testing.T) {
		mockProvider := &mockProvider{}
		mockProvider.On("Resolve", ctx, want).Return(parisLyon(), nil).Once()
		mockRepo := &mockRepository{}
		mockRepo.On("SaveReport", ctx, mock.MatchedBy(func(report repository.Report) bool {
			return report.Provider == "mock" && report.Coordinates == 2 && len(report.Places) == 3 &&
				len(report.Tiers) > 0
		})).Return(nil).Once()
		service := NewLocationService(logger, mockProvider, mockRepo, metrics.NewMetrics(prometheus.NewRegistry()))

		result, err := service.Analyze(ctx, coords)

		require.NoError(t, err)
		assert.NotEmpty(t, result.RunID)
		mockRepo.AssertExpectations(t)
	})

	t.Run("report failure keeps the result", func(t *testing.T) {
		mockProvider := &mockProvider{}
		mockProvider.On("Resolve", ctx, want).Return(parisLyon(), nil).Once()
		mockRepo := &mockRepository{}
		mockRepo.On("SaveReport", ctx, mock.Anything).Return(assert.AnError).Once()
		service := NewLocationService(logger, mockProvider, mockRepo, metrics.NewMetrics(prometheus.NewRegistry()))

		result, err := service.Analyze(ctx, coords)

		require.NoError(t, err)
		assert.Len(t, result.Places, 3)
		mockRepo.AssertExpectations(t)
	})

	t.Run("empty coordinate set", func(t *testing.T) {
		mockProvider := &mockProvider{}
		mockProvider.On("Resolve", ctx, []models.Coordinate{}).Return(nil, nil).Once()
		service := NewLocationService(logger, mockProvider, nil, metrics.NewMetrics(prometheus.NewRegistry()))

		result, err := service.Analyze(ctx, nil)

		require.ErrorIs(t, err, ErrNoPlaces)
		assert.Zero(t, result.Coordinates)
		mockProvider.AssertExpectations(t)
	})
}
