package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/UnknownOlympus/geoplaces/internal/cache"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// YandexBaseURL -- Yandex Geocoder API base URL.
const YandexBaseURL = "https://geocode-maps.yandex.ru/1.x"

const (
	yandexKind    = "house"
	yandexResults = "100"
	yandexLang    = "en_RU"
)

// yandexFields maps Yandex address component kinds onto place fields.
var yandexFields = map[string]models.AddressField{
	"country":  models.FieldCountry,
	"province": models.FieldState,
	"area":     models.FieldCounty,
	"locality": models.FieldCity,
	"street":   models.FieldStreet,
	"house":    models.FieldHouse,
}

// YandexProvider reverse geocodes one coordinate per request and caches every answer.
type YandexProvider struct {
	client  HTTPClient
	baseURL string
	apiKey  string
	items   *itemResolver
}

type yandexComponent struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
}

type yandexResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Point *struct {
						Pos string `json:"pos"`
					} `json:"Point"`
					MetaDataProperty struct {
						GeocoderMetaData struct {
							Address struct {
								Components []yandexComponent `json:"Components"`
							} `json:"Address"`
						} `json:"GeocoderMetaData"`
					} `json:"metaDataProperty"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

type yandexError struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// NewYandexProvider creates a Yandex provider backed by a plain HTTP client.
func NewYandexProvider(apiKey string, opts Options) *YandexProvider {
	return NewYandexProviderWithClient(&http.Client{Timeout: opts.timeout()}, apiKey, opts)
}

// NewYandexProviderWithClient allows injecting custom HTTP client.
func NewYandexProviderWithClient(client HTTPClient, apiKey string, opts Options) *YandexProvider {
	return &YandexProvider{
		client:  client,
		baseURL: YandexBaseURL,
		apiKey:  apiKey,
		items:   opts.resolver(),
	}
}

func (yp *YandexProvider) Name() string {
	return string(ProviderTypeYandex)
}

// Resolve looks every coordinate up in the cache and downloads the missing ones.
func (yp *YandexProvider) Resolve(ctx context.Context, coords []models.Coordinate) ([]models.Place, error) {
	return yp.items.resolve(ctx, yp, coords)
}

func (yp *YandexProvider) fetch(ctx context.Context, coord models.Coordinate) ([]byte, error) {
	reqURL, err := url.Parse(yp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("apikey", yp.apiKey)
	query.Set("geocode", models.FormatDegrees(coord.Latitude)+","+models.FormatDegrees(coord.Longitude))
	query.Set("sco", "latlong")
	query.Set("kind", yandexKind)
	query.Set("results", yandexResults)
	query.Set("lang", yandexLang)
	query.Set("format", "json")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	yp.items.log.DebugContext(ctx, "Reverse geocoding using Yandex", "coordinate", coord.Normalized())

	body, err := doRequest(yp.client, req, yp.Name(), yandexErrorMessage, yp.items.metrics)
	if err != nil {
		return nil, err
	}

	folded, err := foldAccents(body)
	if err != nil {
		return nil, fmt.Errorf("can't remove accented characters from response: %w", err)
	}

	return folded, nil
}

func (yp *YandexProvider) parse(raw []byte) ([]models.Place, error) {
	var resp yandexResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var places []models.Place
	for _, member := range resp.Response.GeoObjectCollection.FeatureMember {
		point := member.GeoObject.Point
		if point == nil || point.Pos == "" {
			continue
		}

		place := models.Place{ID: cache.Hash(strings.Replace(point.Pos, " ", "-", 1))}
		for _, comp := range member.GeoObject.MetaDataProperty.GeocoderMetaData.Address.Components {
			field, ok := yandexFields[comp.Kind]
			if !ok {
				continue
			}
			place.Set(field, comp.Name)
		}

		places = append(places, place)
	}

	return places, nil
}

func yandexErrorMessage(body []byte) string {
	var payload yandexError
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}
	return payload.Message
}

// foldAccents strips combining marks so that "Île-de-France" becomes "Ile-de-France".
func foldAccents(body []byte) ([]byte, error) {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.Bytes(chain, body)
	if err != nil {
		return nil, err
	}
	return folded, nil
}
