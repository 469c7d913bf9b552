package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/UnknownOlympus/geoplaces/internal/models"
)

// Provider resolves coordinates into named places.
// Resolve returns every place the provider reported for the given coordinates, with
// duplicates left for the caller to drop. An empty input never reaches the network.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, coords []models.Coordinate) ([]models.Place, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Common errors for all providers.
var (
	ErrNetwork           = errors.New("geocoding service unreachable")
	ErrMalformedResponse = errors.New("geocoding service returned a malformed response")
	ErrNoProviders       = errors.New("no geocoding provider is configured")
)

// HTTPError is returned when a provider answers with a non-2xx status.
type HTTPError struct {
	Provider string
	Status   int
	Message  string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API returned status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Status, e.Message)
}

// messageExtractor pulls the provider's own error text out of an error body.
type messageExtractor func(body []byte) string

// doRequest executes req and returns the body of a 2xx answer. Transport failures wrap
// ErrNetwork, other statuses come back as *HTTPError.
func doRequest(
	client HTTPClient,
	req *http.Request,
	provider string,
	extract messageExtractor,
	mtr *metrics.Metrics,
) ([]byte, error) {
	start := time.Now()
	resp, err := client.Do(req)
	mtr.RequestSeconds.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		mtr.ProviderCalls.WithLabelValues(provider, "network_error").Inc()
		mtr.APIErrors.WithLabelValues(provider).Inc()
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		mtr.ProviderCalls.WithLabelValues(provider, "network_error").Inc()
		mtr.APIErrors.WithLabelValues(provider).Inc()
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrNetwork, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		mtr.ProviderCalls.WithLabelValues(provider, "http_error").Inc()
		mtr.APIErrors.WithLabelValues(provider).Inc()
		httpErr := &HTTPError{Provider: provider, Status: resp.StatusCode}
		if extract != nil {
			httpErr.Message = strings.TrimSpace(extract(body))
		}
		return nil, httpErr
	}

	mtr.ProviderCalls.WithLabelValues(provider, "ok").Inc()
	return body, nil
}
