package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/yandex-weather-bridge/internal/client"
	"github.com/kjstillabower/yandex-weather-bridge/internal/degraded"
	"github.com/kjstillabower/yandex-weather-bridge/internal/entity"
	"github.com/kjstillabower/yandex-weather-bridge/internal/observability"
	"github.com/kjstillabower/yandex-weather-bridge/internal/snapshot"
)

// Updater runs one fetch-and-map cycle: fetch from upstream, apply to the
// entity, persist the snapshot. On any fetch failure the entity keeps its
// previous known-good state.
type Updater struct {
	client client.WeatherClient
	entity *entity.WeatherEntity
	store  snapshot.Store
	logger *zap.Logger
}

// NewUpdater creates an Updater with the provided dependencies.
func NewUpdater(weatherClient client.WeatherClient, ent *entity.WeatherEntity, store snapshot.Store, logger *zap.Logger) *Updater {
	return &Updater{
		client: weatherClient,
		entity: ent,
		store:  store,
		logger: logger,
	}
}

// UpdateOnce performs a single upstream fetch and applies the result.
// Failures are recorded and logged but never touch the entity; the next
// scheduled tick is the retry.
func (u *Updater) UpdateOnce(ctx context.Context) error {
	snap, err := u.client.FetchObservation(ctx)
	if err != nil {
		degraded.RecordError()
		u.logger.Error("fetch failed, entity keeps previous state",
			zap.Error(err),
			zap.Bool("entity_available", u.entity.Available()))
		return fmt.Errorf("fetch observation: %w", err)
	}
	degraded.RecordSuccess()

	u.entity.Apply(snap)
	observability.EntityUpdatesTotal.Inc()
	u.logger.Info("entity refreshed",
		zap.Float64("temperature", snap.Observation.Temperature),
		zap.String("condition", snap.Observation.Condition),
		zap.Time("observed_at", snap.Observation.ObservedAt))

	if err := u.store.Save(ctx, snap); err != nil {
		observability.SnapshotOpsTotal.WithLabelValues("save", "error").Inc()
		u.logger.Warn("snapshot save failed", zap.Error(err))
	} else {
		observability.SnapshotOpsTotal.WithLabelValues("save", "success").Inc()
	}
	return nil
}

// Prime restores the last persisted snapshot into the entity so the serving
// surface has data before the first poll completes. A missing or unreadable
// snapshot is not an error; the entity simply stays unavailable.
func (u *Updater) Prime(ctx context.Context) {
	snap, ok, err := u.store.Load(ctx)
	if err != nil {
		observability.SnapshotOpsTotal.WithLabelValues("load", "error").Inc()
		u.logger.Warn("snapshot load failed", zap.Error(err))
		return
	}
	if !ok {
		observability.SnapshotOpsTotal.WithLabelValues("load", "miss").Inc()
		u.logger.Debug("no persisted snapshot, waiting for first fetch")
		return
	}
	observability.SnapshotOpsTotal.WithLabelValues("load", "success").Inc()
	u.entity.Apply(snap)
	u.logger.Info("entity primed from snapshot",
		zap.Time("observed_at", snap.Observation.ObservedAt),
		zap.Time("fetched_at", snap.Observation.FetchedAt))
}
