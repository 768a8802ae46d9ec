package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/yandex-weather-bridge/internal/condition"
	"github.com/kjstillabower/yandex-weather-bridge/internal/models"
	"github.com/kjstillabower/yandex-weather-bridge/internal/observability"
)

// WeatherClient fetches one observation snapshot from the upstream API.
type WeatherClient interface {
	FetchObservation(ctx context.Context) (models.Snapshot, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrRateLimited      = errors.New("rate limited")
	ErrUpstreamFailure  = errors.New("upstream failure")
	ErrMalformedPayload = errors.New("malformed payload")
)

// apiKeyHeader carries the credential on every informers request.
const apiKeyHeader = "X-Yandex-API-Key"

// YandexClient calls the Yandex.Weather informers endpoint for a fixed coordinate.
type YandexClient struct {
	apiKey  string
	apiURL  string
	lat     float64
	lon     float64
	timeout time.Duration
	client  *http.Client
}

// NewYandexClient creates a client for the given credential and coordinate.
func NewYandexClient(apiKey, apiURL string, lat, lon float64, timeout time.Duration) (*YandexClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &YandexClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		lat:     lat,
		lon:     lon,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// informersResponse mirrors the subset of the informers payload the entity maps.
// An error body carries status/message instead of fact/forecast, sometimes on HTTP 200.
type informersResponse struct {
	Status  *int   `json:"status"`
	Message string `json:"message"`

	Fact *struct {
		Temp       float64 `json:"temp"`
		FeelsLike  float64 `json:"feels_like"`
		Icon       string  `json:"icon"`
		Condition  string  `json:"condition"`
		WindSpeed  float64 `json:"wind_speed"`
		WindGust   float64 `json:"wind_gust"`
		WindDir    string  `json:"wind_dir"`
		PressureMm float64 `json:"pressure_mm"`
		PressurePa float64 `json:"pressure_pa"`
		Humidity   int     `json:"humidity"`
		ObsTime    int64   `json:"obs_time"`
	} `json:"fact"`

	Forecast *struct {
		Parts []struct {
			PartName   string  `json:"part_name"`
			TempMin    float64 `json:"temp_min"`
			TempMax    float64 `json:"temp_max"`
			FeelsLike  float64 `json:"feels_like"`
			Icon       string  `json:"icon"`
			Condition  string  `json:"condition"`
			WindSpeed  float64 `json:"wind_speed"`
			WindDir    string  `json:"wind_dir"`
			PressureMm float64 `json:"pressure_mm"`
			PressurePa float64 `json:"pressure_pa"`
			Humidity   int     `json:"humidity"`
			PrecMm     float64 `json:"prec_mm"`
			PrecProb   int     `json:"prec_prob"`
		} `json:"parts"`
	} `json:"forecast"`
}

// FetchObservation issues one GET to the informers endpoint and maps the
// response onto the entity schema. Exactly one request per call; retry policy
// belongs to the polling cadence, not the client.
func (c *YandexClient) FetchObservation(ctx context.Context) (models.Snapshot, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx)
	if err != nil {
		observability.FetchTotal.WithLabelValues("error").Inc()
		return models.Snapshot{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.FetchTotal.WithLabelValues("error").Inc()
		observability.FetchDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.Snapshot{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.Snapshot{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.FetchTotal.WithLabelValues(status).Inc()
	observability.FetchDuration.WithLabelValues(status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return models.Snapshot{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("read response body: %w", err)
	}

	var apiResp informersResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	// The informers endpoint reports credential and quota errors in the body,
	// sometimes with HTTP 200.
	if apiResp.Status != nil {
		return models.Snapshot{}, c.bodyStatusError(*apiResp.Status, apiResp.Message)
	}
	if apiResp.Fact == nil {
		return models.Snapshot{}, fmt.Errorf("%w: missing fact block", ErrMalformedPayload)
	}

	return c.mapResponse(apiResp), nil
}

// buildRequest builds the informers GET with coordinates in the query and the
// key in the X-Yandex-API-Key header.
func (c *YandexClient) buildRequest(ctx context.Context) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	// Merge with any query the configured URL already carries (e.g. lang).
	params := baseURL.Query()
	params.Set("lat", strconv.FormatFloat(c.lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.lon, 'f', -1, 64))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)
	return req, nil
}

func (c *YandexClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, resp.StatusCode)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

// bodyStatusError maps an in-body status/message pair to a sentinel error.
func (c *YandexClient) bodyStatusError(status int, message string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %d %s", ErrInvalidAPIKey, status, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	}
	return fmt.Errorf("%w: %d %s", ErrUpstreamFailure, status, message)
}

func (c *YandexClient) mapResponse(apiResp informersResponse) models.Snapshot {
	fact := apiResp.Fact
	now := time.Now()

	snap := models.Snapshot{
		Observation: models.Observation{
			Temperature:  fact.Temp,
			FeelsLike:    fact.FeelsLike,
			Condition:    condition.Map(fact.Condition),
			ConditionRaw: fact.Condition,
			Icon:         fact.Icon,
			WindSpeed:    fact.WindSpeed,
			WindGust:     fact.WindGust,
			WindBearing:  fact.WindDir,
			PressureHPa:  fact.PressurePa,
			PressureMmHg: fact.PressureMm,
			Humidity:     fact.Humidity,
			ObservedAt:   time.Unix(fact.ObsTime, 0).UTC(),
			FetchedAt:    now,
		},
	}

	if apiResp.Forecast == nil {
		return snap
	}
	for i, part := range apiResp.Forecast.Parts {
		fp := models.ForecastPart{
			PartName:          part.PartName,
			TempMin:           part.TempMin,
			TempMax:           part.TempMax,
			FeelsLike:         part.FeelsLike,
			Condition:         condition.Map(part.Condition),
			ConditionRaw:      part.Condition,
			Icon:              part.Icon,
			PrecipitationMm:   part.PrecMm,
			PrecipitationProb: part.PrecProb,
			WindSpeed:         part.WindSpeed,
			WindBearing:       part.WindDir,
			PressureHPa:       part.PressurePa,
			PressureMmHg:      part.PressureMm,
			Humidity:          part.Humidity,
		}
		// The informers forecast carries two upcoming day-parts; project them
		// roughly six and twelve hours out.
		switch i {
		case 0:
			fp.Time = now.Add(350 * time.Minute).UTC()
		case 1:
			fp.Time = now.Add(700 * time.Minute).UTC()
		}
		snap.Forecast = append(snap.Forecast, fp)
	}
	return snap
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a probe request and reports credential problems.
// Used once at startup; the health endpoint never calls the upstream.
func (c *YandexClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
