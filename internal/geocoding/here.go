package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/geoplaces/internal/metrics"
	"github.com/UnknownOlympus/geoplaces/internal/models"
	"golang.org/x/time/rate"
)

// HereBaseURL -- HERE batch reverse geocoding endpoint.
const HereBaseURL = "https://reverse.geocoder.api.here.com/6.2/multi-reversegeocode.json"

const hereGen = "9"

// hereAdditionalFields are read first, from address.additionalData.
var hereAdditionalFields = map[string]models.AddressField{
	"CountryName": models.FieldCountry,
	"StateName":   models.FieldState,
	"CountyName":  models.FieldCounty,
}

// HereProvider resolves a whole coordinate set with one batch request.
type HereProvider struct {
	client  HTTPClient
	baseURL string
	appID   string
	appCode string
	limiter *rate.Limiter
	log     *slog.Logger
	metrics *metrics.Metrics
}

type hereResponse struct {
	Response struct {
		Item []struct {
			Result []struct {
				Location *struct {
					LocationID string      `json:"locationId"`
					Address    hereAddress `json:"address"`
				} `json:"location"`
			} `json:"result"`
		} `json:"item"`
	} `json:"response"`
}

type hereAddress struct {
	Country        string           `json:"country"`
	State          string           `json:"state"`
	County         string           `json:"county"`
	City           string           `json:"city"`
	Street         string           `json:"street"`
	HouseNumber    string           `json:"houseNumber"`
	AdditionalData []hereAdditional `json:"additionalData"`
}

type hereAdditional struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// NewHereProvider creates a HERE provider backed by a plain HTTP client.
func NewHereProvider(appID, appCode string, opts Options) *HereProvider {
	return NewHereProviderWithClient(&http.Client{Timeout: opts.timeout()}, appID, appCode, opts)
}

// NewHereProviderWithClient allows injecting custom HTTP client.
func NewHereProviderWithClient(client HTTPClient, appID, appCode string, opts Options) *HereProvider {
	return &HereProvider{
		client:  client,
		baseURL: HereBaseURL,
		appID:   appID,
		appCode: appCode,
		limiter: opts.limiter(),
		log:     opts.logger(),
		metrics: opts.metrics(),
	}
}

func (hp *HereProvider) Name() string {
	return string(ProviderTypeHere)
}

// Resolve sends every coordinate in a single request. Each coordinate may yield
// several places, sorted by distance.
func (hp *HereProvider) Resolve(ctx context.Context, coords []models.Coordinate) ([]models.Place, error) {
	if len(coords) == 0 {
		return nil, nil
	}

	bar := newProgress(len(coords), "Reverse geocoding", hp.log)
	defer bar.finish()

	if err := hp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	req, err := hp.newRequest(ctx, coords)
	if err != nil {
		return nil, err
	}

	hp.log.DebugContext(ctx, "Reverse geocoding using HERE", "coordinates", len(coords))

	body, err := doRequest(hp.client, req, hp.Name(), hereErrorMessage, hp.metrics)
	if err != nil {
		return nil, err
	}
	bar.add(len(coords))

	places, err := parseHere(body)
	if err != nil {
		return nil, err
	}

	hp.metrics.PlacesResolved.WithLabelValues(hp.Name()).Add(float64(len(places)))
	hp.log.InfoContext(ctx, "Reverse geocoding finished",
		"provider", hp.Name(),
		"coordinates", len(coords),
		"places", len(places))

	return places, nil
}

func (hp *HereProvider) newRequest(ctx context.Context, coords []models.Coordinate) (*http.Request, error) {
	reqURL, err := url.Parse(hp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("mode", "retrieveAddresses")
	query.Set("responseattributes", "none")
	query.Set("locationattributes", "ar,ad,-mr,-mv,-dt,-sd,-ai,-li,-in,-tz,-nb,-rn")
	query.Set("addressattributes", "ctr,sta,cty,cit,str,hnr,add,-dis,-sdi,-pst,-aln")
	query.Set("sortby", "distance")
	query.Set("jsonattributes", "1")
	query.Set("strictlanguagemode", "false")
	query.Set("language", "en")
	query.Set("gen", hereGen)
	query.Set("app_id", hp.appID)
	query.Set("app_code", hp.appCode)
	reqURL.RawQuery = query.Encode()

	payload := strings.NewReader(hereBatchBody(coords))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL.String(), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "*")

	return req, nil
}

// hereBatchBody renders one "id=<n>&prox=<lat>,<lon>,<radius>" line per coordinate,
// numbering from 1.
func hereBatchBody(coords []models.Coordinate) string {
	var sb strings.Builder
	for idx, coord := range coords {
		sb.WriteString("id=")
		sb.WriteString(strconv.Itoa(idx + 1))
		sb.WriteString("&prox=")
		sb.WriteString(models.FormatDegrees(coord.Latitude))
		sb.WriteByte(',')
		sb.WriteString(models.FormatDegrees(coord.Longitude))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatUint(uint64(coord.Radius), 10))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func parseHere(body []byte) ([]models.Place, error) {
	var resp hereResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var places []models.Place
	for _, item := range resp.Response.Item {
		for _, result := range item.Result {
			loc := result.Location
			if loc == nil || loc.LocationID == "" {
				continue
			}

			place := models.Place{ID: loc.LocationID}
			applyHereAddress(&place, loc.Address)
			places = append(places, place)
		}
	}

	return places, nil
}

// applyHereAddress reads additionalData first. The primary address fields only fill
// what it left empty.
func applyHereAddress(place *models.Place, address hereAddress) {
	for _, entry := range address.AdditionalData {
		if field, ok := hereAdditionalFields[entry.Key]; ok {
			place.Set(field, entry.Value)
		}
	}

	place.Fill(models.FieldCountry, address.Country)
	place.Fill(models.FieldState, address.State)
	place.Fill(models.FieldCounty, address.County)
	place.Fill(models.FieldCity, address.City)
	place.Fill(models.FieldStreet, address.Street)
	place.Fill(models.FieldHouse, address.HouseNumber)
}

func hereErrorMessage(body []byte) string {
	var payload struct {
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Details == "" {
		return string(body)
	}
	return payload.Details
}
