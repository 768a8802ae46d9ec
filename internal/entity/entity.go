// Package entity holds the single weather-observation entity the bridge
// maintains. Only the poller writes it; the HTTP surface reads it.
package entity

import (
	"fmt"
	"sync"
	"time"

	"github.com/kjstillabower/yandex-weather-bridge/internal/models"
)

// WeatherEntity is the bridge's one observable: the latest known-good weather
// observation for a fixed coordinate. Attributes always reflect the most
// recent successful fetch; a failed fetch leaves them untouched.
type WeatherEntity struct {
	name     string
	uniqueID string

	mu        sync.RWMutex
	snap      models.Snapshot
	populated bool
	updatedAt time.Time
}

// New creates the entity for the configured name and coordinate.
// The unique ID follows the name_longitude_latitude convention.
func New(name string, lat, lon float64) *WeatherEntity {
	return &WeatherEntity{
		name:     name,
		uniqueID: fmt.Sprintf("%s_%v_%v", name, lon, lat),
	}
}

// Name returns the configured entity name.
func (e *WeatherEntity) Name() string {
	return e.name
}

// UniqueID returns the stable entity identifier.
func (e *WeatherEntity) UniqueID() string {
	return e.uniqueID
}

// Apply replaces the entity state with a freshly fetched snapshot.
func (e *WeatherEntity) Apply(snap models.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = snap
	e.populated = true
	e.updatedAt = time.Now()
}

// State returns the current snapshot and whether the entity has ever been
// populated. The returned snapshot is a copy; the forecast slice is shared
// but never mutated after Apply.
func (e *WeatherEntity) State() (models.Snapshot, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap, e.populated
}

// Available reports whether the entity holds at least one successful fetch.
func (e *WeatherEntity) Available() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.populated
}

// LastUpdated returns when the entity last applied a snapshot (zero if never).
func (e *WeatherEntity) LastUpdated() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.updatedAt
}

// AgeSeconds returns seconds since the last applied snapshot, or -1 while the
// entity has never been populated. Exported as a metrics gauge.
func (e *WeatherEntity) AgeSeconds() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.populated {
		return -1
	}
	return time.Since(e.updatedAt).Seconds()
}
