package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testAPIKey = "0f2fb376-77e4-4b81-9be0-5a81e2a3c7d0"

const informersBody = `{
	"now": 1770000000,
	"fact": {
		"temp": -3,
		"feels_like": -8,
		"icon": "ovc_sn",
		"condition": "snow",
		"wind_speed": 4.2,
		"wind_gust": 9.1,
		"wind_dir": "nw",
		"pressure_mm": 745,
		"pressure_pa": 993,
		"humidity": 86,
		"obs_time": 1769999400
	},
	"forecast": {
		"parts": [
			{
				"part_name": "evening",
				"temp_min": -6,
				"temp_max": -2,
				"feels_like": -9,
				"icon": "ovc_sn",
				"condition": "light-snow",
				"wind_speed": 3.6,
				"wind_dir": "n",
				"pressure_mm": 746,
				"pressure_pa": 994,
				"humidity": 84,
				"prec_mm": 1.4,
				"prec_prob": 70
			},
			{
				"part_name": "night",
				"temp_min": -11,
				"temp_max": -7,
				"feels_like": -14,
				"icon": "skc_n",
				"condition": "clear",
				"wind_speed": 2.1,
				"wind_dir": "c",
				"pressure_mm": 748,
				"pressure_pa": 997,
				"humidity": 79,
				"prec_mm": 0,
				"prec_prob": 10
			}
		]
	}
}`

func TestNewYandexClient_RequiresAPIKey(t *testing.T) {
	c, err := NewYandexClient("", "https://api.test", 55.75, 37.62, 2*time.Second)
	if err == nil {
		t.Fatal("NewYandexClient() expected error for empty API key, got nil")
	}
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("NewYandexClient() error = %v, want %v", err, ErrInvalidAPIKey)
	}
	if c != nil {
		t.Error("NewYandexClient() expected nil client on error")
	}
}

func TestYandexClient_FetchObservation_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("X-Yandex-API-Key"); got != testAPIKey {
			t.Errorf("X-Yandex-API-Key = %q, want %q", got, testAPIKey)
		}
		if !strings.Contains(r.URL.RawQuery, "lat=55.75") {
			t.Errorf("expected lat in query, got %s", r.URL.RawQuery)
		}
		if !strings.Contains(r.URL.RawQuery, "lon=37.62") {
			t.Errorf("expected lon in query, got %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(informersBody))
	}))
	defer server.Close()

	c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 2*time.Second)
	if err != nil {
		t.Fatalf("NewYandexClient() error = %v", err)
	}

	got, err := c.FetchObservation(context.Background())
	if err != nil {
		t.Fatalf("FetchObservation() error = %v", err)
	}

	obs := got.Observation
	if obs.Temperature != -3 {
		t.Errorf("Temperature = %v, want -3", obs.Temperature)
	}
	if obs.FeelsLike != -8 {
		t.Errorf("FeelsLike = %v, want -8", obs.FeelsLike)
	}
	if obs.Condition != "snowy" {
		t.Errorf("Condition = %q, want snowy", obs.Condition)
	}
	if obs.ConditionRaw != "snow" {
		t.Errorf("ConditionRaw = %q, want snow", obs.ConditionRaw)
	}
	if obs.Icon != "ovc_sn" {
		t.Errorf("Icon = %q, want ovc_sn", obs.Icon)
	}
	if obs.WindSpeed != 4.2 {
		t.Errorf("WindSpeed = %v, want 4.2", obs.WindSpeed)
	}
	if obs.WindBearing != "nw" {
		t.Errorf("WindBearing = %q, want nw", obs.WindBearing)
	}
	if obs.PressureHPa != 993 {
		t.Errorf("PressureHPa = %v, want 993", obs.PressureHPa)
	}
	if obs.PressureMmHg != 745 {
		t.Errorf("PressureMmHg = %v, want 745", obs.PressureMmHg)
	}
	if obs.Humidity != 86 {
		t.Errorf("Humidity = %d, want 86", obs.Humidity)
	}
	if want := time.Unix(1769999400, 0).UTC(); !obs.ObservedAt.Equal(want) {
		t.Errorf("ObservedAt = %v, want %v", obs.ObservedAt, want)
	}
	if obs.FetchedAt.IsZero() {
		t.Error("FetchedAt is zero")
	}

	if len(got.Forecast) != 2 {
		t.Fatalf("len(Forecast) = %d, want 2", len(got.Forecast))
	}
	first := got.Forecast[0]
	if first.PartName != "evening" {
		t.Errorf("Forecast[0].PartName = %q, want evening", first.PartName)
	}
	if first.Condition != "snowy" {
		t.Errorf("Forecast[0].Condition = %q, want snowy", first.Condition)
	}
	if first.PrecipitationMm != 1.4 || first.PrecipitationProb != 70 {
		t.Errorf("Forecast[0] precipitation = %v/%d, want 1.4/70", first.PrecipitationMm, first.PrecipitationProb)
	}
	if first.Time.IsZero() {
		t.Error("Forecast[0].Time is zero, want projected timestamp")
	}
	second := got.Forecast[1]
	if second.Condition != "sunny" {
		t.Errorf("Forecast[1].Condition = %q, want sunny", second.Condition)
	}
	if !second.Time.After(first.Time) {
		t.Errorf("Forecast[1].Time = %v, want after Forecast[0].Time = %v", second.Time, first.Time)
	}
}

func TestYandexClient_FetchObservation_KeepsConfiguredQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("lang"); got != "ru_RU" {
			t.Errorf("lang = %q, want ru_RU: configured query params must survive", got)
		}
		if q.Get("lat") == "" || q.Get("lon") == "" {
			t.Errorf("coordinates missing from query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(informersBody))
	}))
	defer server.Close()

	c, err := NewYandexClient(testAPIKey, server.URL+"?lang=ru_RU", 55.75, 37.62, 2*time.Second)
	if err != nil {
		t.Fatalf("NewYandexClient() error = %v", err)
	}
	if _, err := c.FetchObservation(context.Background()); err != nil {
		t.Fatalf("FetchObservation() error = %v", err)
	}
}

func TestYandexClient_FetchObservation_HTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{name: "401 unauthorized", statusCode: http.StatusUnauthorized, wantErr: ErrInvalidAPIKey},
		{name: "403 forbidden", statusCode: http.StatusForbidden, wantErr: ErrInvalidAPIKey},
		{name: "429 rate limited", statusCode: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{name: "500 server error", statusCode: http.StatusInternalServerError, wantErr: ErrUpstreamFailure},
		{name: "502 bad gateway", statusCode: http.StatusBadGateway, wantErr: ErrUpstreamFailure},
		{name: "404 not found", statusCode: http.StatusNotFound, wantErr: ErrUpstreamFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 2*time.Second)
			if err != nil {
				t.Fatalf("NewYandexClient() error = %v", err)
			}

			_, err = c.FetchObservation(context.Background())
			if err == nil {
				t.Fatal("FetchObservation() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FetchObservation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestYandexClient_FetchObservation_BodyStatusError(t *testing.T) {
	// The informers endpoint can report errors in the body with HTTP 200.
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "forbidden in body",
			body:    `{"status": 403, "message": "Invalid api key"}`,
			wantErr: ErrInvalidAPIKey,
		},
		{
			name:    "quota exceeded in body",
			body:    `{"status": 429, "message": "Limit exceeded"}`,
			wantErr: ErrRateLimited,
		},
		{
			name:    "server error in body",
			body:    `{"status": 500, "message": "Internal error"}`,
			wantErr: ErrUpstreamFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 2*time.Second)
			if err != nil {
				t.Fatalf("NewYandexClient() error = %v", err)
			}

			_, err = c.FetchObservation(context.Background())
			if err == nil {
				t.Fatal("FetchObservation() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FetchObservation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestYandexClient_FetchObservation_MalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"fact": {`},
		{name: "missing fact block", body: `{"now": 1770000000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 2*time.Second)
			if err != nil {
				t.Fatalf("NewYandexClient() error = %v", err)
			}

			_, err = c.FetchObservation(context.Background())
			if err == nil {
				t.Fatal("FetchObservation() expected error, got nil")
			}
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("FetchObservation() error = %v, want %v", err, ErrMalformedPayload)
			}
		})
	}
}

func TestYandexClient_FetchObservation_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(informersBody))
	}))
	defer server.Close()

	c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewYandexClient() error = %v", err)
	}

	_, err = c.FetchObservation(context.Background())
	if err == nil {
		t.Fatal("FetchObservation() expected timeout error, got nil")
	}
}

func TestYandexClient_FetchObservation_SingleRequestPerCall(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 2*time.Second)
	if err != nil {
		t.Fatalf("NewYandexClient() error = %v", err)
	}

	_, _ = c.FetchObservation(context.Background())
	if attempts != 1 {
		t.Errorf("expected exactly 1 upstream request (no retries), got %d", attempts)
	}
}

func TestYandexClient_ValidateAPIKey(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    error
	}{
		{name: "valid key", statusCode: http.StatusOK, wantErr: nil},
		{name: "invalid key 403", statusCode: http.StatusForbidden, wantErr: ErrInvalidAPIKey},
		{name: "invalid key 401", statusCode: http.StatusUnauthorized, wantErr: ErrInvalidAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if tt.statusCode == http.StatusOK {
					_, _ = w.Write([]byte(informersBody))
				}
			}))
			defer server.Close()

			c, err := NewYandexClient(testAPIKey, server.URL, 55.75, 37.62, 2*time.Second)
			if err != nil {
				t.Fatalf("NewYandexClient() error = %v", err)
			}

			err = c.ValidateAPIKey(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateAPIKey() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateAPIKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
