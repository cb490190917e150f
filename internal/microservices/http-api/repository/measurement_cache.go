package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"rheumactive/internal/microservices/http-api/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CachedMeasurementRepository puts a Redis cache-aside in front of another
// repository for single-record reads. Measurements are immutable once saved,
// so entries only ever expire, never get invalidated.
// Redis failures are logged and the read falls through to the backing store.
type CachedMeasurementRepository struct {
	next   MeasurementRepository
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedMeasurementRepository(next MeasurementRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedMeasurementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedMeasurementRepository{next: next, client: client, ttl: ttl, logger: logger}
}

func measurementKey(id string) string {
	return fmt.Sprintf("measurement:%s", id)
}

// Create writes through: backing store first, then the cache
func (r *CachedMeasurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	if err := r.next.Create(ctx, m); err != nil {
		return err
	}
	r.store(ctx, m)
	return nil
}

func (r *CachedMeasurementRepository) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	raw, err := r.client.Get(ctx, measurementKey(id)).Bytes()
	switch {
	case err == nil:
		var m models.Measurement
		if err := json.Unmarshal(raw, &m); err == nil {
			return &m, nil
		}
		r.logger.Warn("measurement_cache_corrupt", "id", id)
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("measurement_cache_read_failed", "id", id, "error", err.Error())
	}

	m, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, m)
	return m, nil
}

// List is never cached, filters and pages vary too much
func (r *CachedMeasurementRepository) List(ctx context.Context, filter MeasurementFilter) ([]models.Measurement, int64, error) {
	return r.next.List(ctx, filter)
}

func (r *CachedMeasurementRepository) store(ctx context.Context, m *models.Measurement) {
	payload, err := json.Marshal(m)
	if err != nil {
		r.logger.Warn("measurement_cache_encode_failed", "id", m.ID, "error", err.Error())
		return
	}
	if err := r.client.Set(ctx, measurementKey(m.ID), payload, r.ttl).Err(); err != nil {
		r.logger.Warn("measurement_cache_write_failed", "id", m.ID, "error", err.Error())
	}
}
