package geocoding_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/geoplaces/internal/geocoding"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

const hereBody = `{
  "response": {
    "item": [
      {
        "result": [
          {
            "location": {
              "locationId": "NT_Paris_1",
              "address": {
                "country": "FRA",
                "state": "IDF",
                "county": "Paris",
                "city": "Paris",
                "street": "Rue de Rivoli",
                "houseNumber": "1",
                "additionalData": [
                  {"key": "CountryName", "value": "France"},
                  {"key": "StateName", "value": "Ile-de-France"}
                ]
              }
            }
          },
          {"location": {"address": {"country": "FRA"}}}
        ]
      },
      {
        "result": [
          {
            "location": {
              "locationId": "NT_Lyon_1",
              "address": {"country": "FRA", "city": "Lyon"}
            }
          }
        ]
      },
      {}
    ]
  }
}`

func TestHereProvider_Resolve(t *testing.T) {
	ctx := t.Context()
	opts := geocoding.Options{Logger: slog.Default()}
	coords := models.NewCoordinateSet(
		models.Coordinate{Latitude: 48.8566, Longitude: 2.3522, Radius: 250},
		models.Coordinate{Latitude: 45.764, Longitude: 4.8357, Radius: 100},
	)

	t.Run("empty coordinate set makes no request", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("unexpected request")
				return nil, nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "id", "code", opts)
		places, err := provider.Resolve(ctx, nil)

		require.NoError(t, err)
		assert.Empty(t, places)
	})

	t.Run("successful batch", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				calls++

				// Verify request parameters
				assert.Equal(t, http.MethodPost, req.Method)
				assert.Contains(t, req.URL.String(), geocoding.HereBaseURL)
				query := req.URL.Query()
				assert.Equal(t, "retrieveAddresses", query.Get("mode"))
				assert.Equal(t, "1", query.Get("jsonattributes"))
				assert.Equal(t, "en", query.Get("language"))
				assert.Equal(t, "9", query.Get("gen"))
				assert.Equal(t, "distance", query.Get("sortby"))
				assert.Equal(t, "app-id", query.Get("app_id"))
				assert.Equal(t, "app-code", query.Get("app_code"))

				body, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				assert.Equal(t,
					"id=1&prox=45.764000,4.835700,100\nid=2&prox=48.856600,2.352200,250\n",
					string(body))

				return jsonResponse(http.StatusOK, hereBody), nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "app-id", "app-code", opts)
		places, err := provider.Resolve(ctx, coords)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		require.Len(t, places, 2)

		paris := places[0]
		assert.Equal(t, "NT_Paris_1", paris.ID)
		assert.Equal(t, "France", paris.Country, "additional data wins over the country code")
		assert.Equal(t, "Ile-de-France", paris.State)
		assert.Equal(t, "Paris", paris.County)
		assert.Equal(t, "Paris", paris.City)
		assert.Equal(t, "Rue de Rivoli", paris.Street)
		assert.Equal(t, "1", paris.House)
		assert.Equal(t, models.AccuracyHouse, paris.Accuracy)

		lyon := places[1]
		assert.Equal(t, "NT_Lyon_1", lyon.ID)
		assert.Equal(t, "FRA", lyon.Country)
		assert.Equal(t, "Lyon", lyon.City)
		assert.Equal(t, models.AccuracyCity, lyon.Accuracy)

		for _, place := range places {
			assert.NotEmpty(t, place.ID)
		}
	})

	t.Run("error details are reported", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusUnauthorized,
					`{"type":"PermissionError","details":"invalid credentials for app-id"}`), nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "app-id", "bad", opts)
		places, err := provider.Resolve(ctx, coords)

		require.Error(t, err)
		assert.Nil(t, places)
		var httpErr *geocoding.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusUnauthorized, httpErr.Status)
		assert.Equal(t, "invalid credentials for app-id", httpErr.Message)
		assert.Contains(t, err.Error(), "here API returned status 401")
	})

	t.Run("error without json body", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusBadGateway, `<html>bad gateway</html>`), nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "app-id", "app-code", opts)
		_, err := provider.Resolve(ctx, coords)

		var httpErr *geocoding.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadGateway, httpErr.Status)
		assert.Empty(t, httpErr.Message)
	})

	t.Run("transport failure", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "app-id", "app-code", opts)
		_, err := provider.Resolve(ctx, coords)

		require.ErrorIs(t, err, geocoding.ErrNetwork)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("malformed body", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"response": [`), nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "app-id", "app-code", opts)
		_, err := provider.Resolve(ctx, coords)

		require.ErrorIs(t, err, geocoding.ErrMalformedResponse)
	})

	t.Run("response without items yields no places", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"response": {}}`), nil
			},
		}

		provider := geocoding.NewHereProviderWithClient(mockClient, "app-id", "app-code", opts)
		places, err := provider.Resolve(ctx, coords)

		require.NoError(t, err)
		assert.Empty(t, places)
	})
}
