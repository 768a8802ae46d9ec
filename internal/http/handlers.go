package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/yandex-weather-bridge/internal/degraded"
	"github.com/kjstillabower/yandex-weather-bridge/internal/entity"
	"github.com/kjstillabower/yandex-weather-bridge/internal/lifecycle"
	"github.com/kjstillabower/yandex-weather-bridge/internal/models"
	"github.com/kjstillabower/yandex-weather-bridge/internal/poller"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	StaleAfter       time.Duration
	StartTime        time.Time
	// SnapshotPing, when set, is called to check snapshot store reachability.
	// Used when the backend is memcached.
	SnapshotPing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	entity       *entity.WeatherEntity
	poller       *poller.Poller
	healthConfig *HealthConfig
	logger       *zap.Logger

	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler.
func NewHandler(ent *entity.WeatherEntity, p *poller.Poller, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	return &Handler{
		entity:       ent,
		poller:       p,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// weatherResponse is the entity state payload served by GET /weather.
type weatherResponse struct {
	Name        string             `json:"name"`
	UniqueID    string             `json:"uniqueId"`
	Available   bool               `json:"available"`
	Attribution string             `json:"attribution"`
	Observation models.Observation `json:"observation"`
}

// forecastResponse is the payload served by GET /forecast.
type forecastResponse struct {
	Name        string                `json:"name"`
	Attribution string                `json:"attribution"`
	Forecast    []models.ForecastPart `json:"forecast"`
}

// GetWeather handles GET /weather. Serves the entity's last known-good
// observation; 503 while no fetch has ever succeeded.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.entity.State()
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "ENTITY_UNAVAILABLE", "no successful fetch yet")
		return
	}
	writeJSON(w, http.StatusOK, weatherResponse{
		Name:        h.entity.Name(),
		UniqueID:    h.entity.UniqueID(),
		Available:   true,
		Attribution: models.Attribution,
		Observation: snap.Observation,
	})
}

// GetForecast handles GET /forecast.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.entity.State()
	if !ok {
		writeError(w, r, http.StatusServiceUnavailable, "ENTITY_UNAVAILABLE", "no successful fetch yet")
		return
	}
	writeJSON(w, http.StatusOK, forecastResponse{
		Name:        h.entity.Name(),
		Attribution: models.Attribution,
		Forecast:    snap.Forecast,
	})
}

// PostRefresh handles POST /refresh. Triggers an update now, still subject to
// the poll-interval throttle.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	err := h.poller.TryUpdate(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"message": "entity refreshed",
		})
	case errors.Is(err, poller.ErrThrottled):
		w.Header().Set("Retry-After", h.poller.NextAllowed().UTC().Format(http.TimeFormat))
		writeError(w, r, http.StatusTooManyRequests, "REFRESH_THROTTLED", "poll interval has not elapsed since the last update")
	case errors.Is(err, poller.ErrUpdateInFlight):
		writeError(w, r, http.StatusConflict, "UPDATE_IN_FLIGHT", "an update is already running")
	default:
		writeServiceError(w, r, err)
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	switch result.reason {
	case "error_rate_breach":
		checks["upstream"] = "unhealthy"
	default:
		checks["upstream"] = "healthy"
	}
	switch {
	case !h.entity.Available():
		checks["entity"] = "unavailable"
	case result.reason == "entity_stale":
		checks["entity"] = "stale"
	default:
		checks["entity"] = "available"
	}
	if h.healthConfig != nil && h.healthConfig.SnapshotPing != nil {
		if h.healthConfig.SnapshotPing() == nil {
			checks["snapshot"] = "healthy"
		} else {
			checks["snapshot"] = "unhealthy"
		}
	}

	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "yandex-weather-bridge",
		"version":   "dev",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus evaluates health conditions in priority order:
// shutting-down > upstream error rate breach > stale entity > healthy.
// A never-populated entity right after startup is healthy; the first tick has
// simply not completed.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errors, total := degraded.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 {
			pct := float64(errors) * 100 / float64(total)
			if pct >= float64(h.healthConfig.DegradedErrorPct) {
				return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
			}
		}
	}
	if h.healthConfig.StaleAfter > 0 && h.entity.Available() {
		if time.Since(h.entity.LastUpdated()) > h.healthConfig.StaleAfter {
			return healthResult{"degraded", http.StatusServiceUnavailable, "entity_stale"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

// writeServiceError writes a 503 for upstream failures, logging the underlying
// error at DEBUG if a request logger is present.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "Unable to fetch weather data")
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("upstream error", zap.Error(err))
	}
}
