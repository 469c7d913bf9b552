package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider reverse geocodes through the Google Maps client, one coordinate per
// request, and caches the decoded results as JSON.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	items  *itemResolver
}

type GoogleAPIClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

var googleFields = map[string]models.AddressField{
	"country":                     models.FieldCountry,
	"administrative_area_level_1": models.FieldState,
	"administrative_area_level_2": models.FieldCounty,
	"locality":                    models.FieldCity,
	"route":                       models.FieldStreet,
	"street_number":               models.FieldHouse,
}

// Status codes reported by the Maps API inside a 200 answer, translated to the HTTP
// status closest in meaning.
var googleStatusCodes = map[string]int{
	"INVALID_REQUEST":  http.StatusBadRequest,
	"REQUEST_DENIED":   http.StatusForbidden,
	"OVER_QUERY_LIMIT": http.StatusTooManyRequests,
	"OVER_DAILY_LIMIT": http.StatusTooManyRequests,
	"UNKNOWN_ERROR":    http.StatusInternalServerError,
}

const googleStatusPrefix = "maps: "

// NewGoogleProvider wraps a Google Maps client.
func NewGoogleProvider(client GoogleAPIClient, opts Options) *GoogleProvider {
	return &GoogleProvider{client: client, items: opts.resolver()}
}

func (gp *GoogleProvider) Name() string {
	return string(ProviderTypeGoogle)
}

// Resolve looks every coordinate up in the cache and asks Google for the missing ones.
func (gp *GoogleProvider) Resolve(ctx context.Context, coords []models.Coordinate) ([]models.Place, error) {
	return gp.items.resolve(ctx, gp, coords)
}

func (gp *GoogleProvider) fetch(ctx context.Context, coord models.Coordinate) ([]byte, error) {
	gp.items.log.DebugContext(ctx, "Reverse geocoding using Google Maps", "coordinate", coord.Normalized())

	req := maps.GeocodingRequest{
		LatLng:   &maps.LatLng{Lat: coord.Latitude, Lng: coord.Longitude},
		Language: "en",
	}

	start := time.Now()
	results, err := gp.client.ReverseGeocode(ctx, &req)
	gp.items.metrics.RequestSeconds.WithLabelValues(gp.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		gp.items.metrics.ProviderCalls.WithLabelValues(gp.Name(), "error").Inc()
		gp.items.metrics.APIErrors.WithLabelValues(gp.Name()).Inc()
		return nil, gp.classify(err)
	}
	gp.items.metrics.ProviderCalls.WithLabelValues(gp.Name(), "ok").Inc()

	if results == nil {
		results = []maps.GeocodingResult{}
	}

	raw, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Google Maps results: %w", err)
	}

	return raw, nil
}

// classify maps client errors onto the package error taxonomy.
func (gp *GoogleProvider) classify(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, googleStatusPrefix); ok {
		status, _, _ := strings.Cut(rest, " ")
		if code, known := googleStatusCodes[status]; known {
			return &HTTPError{Provider: gp.Name(), Status: code, Message: rest}
		}
	}

	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func (gp *GoogleProvider) parse(raw []byte) ([]models.Place, error) {
	var results []maps.GeocodingResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var places []models.Place
	for _, result := range results {
		if result.PlaceID == "" {
			continue
		}

		place := models.Place{ID: result.PlaceID}
		for _, comp := range result.AddressComponents {
			for _, kind := range comp.Types {
				if field, ok := googleFields[kind]; ok {
					place.Set(field, comp.LongName)
				}
			}
		}
		places = append(places, place)
	}

	return places, nil
}
