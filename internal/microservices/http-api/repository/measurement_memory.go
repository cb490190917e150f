package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"rheumactive/internal/microservices/http-api/models"
)

// MemoryMeasurementRepository keeps measurements in process memory.
// Used when no DATABASE_URL is configured; contents die with the process.
type MemoryMeasurementRepository struct {
	mu    sync.RWMutex
	items []models.Measurement // newest last
}

func NewMemoryMeasurementRepository() *MemoryMeasurementRepository {
	return &MemoryMeasurementRepository{}
}

func (r *MemoryMeasurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	stored := *m
	stored.Data = slices.Clone(m.Data)

	r.mu.Lock()
	r.items = append(r.items, stored)
	r.mu.Unlock()
	return nil
}

func (r *MemoryMeasurementRepository) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.items {
		if r.items[i].ID == id {
			found := r.items[i]
			found.Data = slices.Clone(found.Data)
			return &found, nil
		}
	}
	return nil, ErrMeasurementNotFound
}

func (r *MemoryMeasurementRepository) List(ctx context.Context, filter MeasurementFilter) ([]models.Measurement, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	r.mu.RLock()
	var matched []models.Measurement
	for _, m := range r.items {
		if matches(filter, m) {
			matched = append(matched, m)
		}
	}
	r.mu.RUnlock()

	// stable sort keeps insertion order for equal timestamps, reversed below
	slices.Reverse(matched)
	slices.SortStableFunc(matched, func(a, b models.Measurement) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	total := int64(len(matched))
	start := min(max(filter.Offset(), 0), len(matched))
	end := len(matched)
	if filter.PerPage > 0 {
		end = start + min(filter.PerPage, len(matched)-start)
	}

	page := make([]models.Measurement, 0, end-start)
	for _, m := range matched[start:end] {
		m.Data = slices.Clone(m.Data)
		page = append(page, m)
	}
	return page, total, nil
}

func matches(f MeasurementFilter, m models.Measurement) bool {
	if f.Joint != "" && m.Joint != f.Joint {
		return false
	}
	if f.Exercise != "" && m.Exercise != f.Exercise {
		return false
	}
	if !f.Day.IsZero() {
		start, end := f.DayBounds()
		ts := m.Timestamp.UTC()
		if ts.Before(start) || !ts.Before(end) {
			return false
		}
	}
	return true
}
