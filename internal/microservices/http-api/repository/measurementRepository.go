package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"rheumactive/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

var ErrMeasurementNotFound = errors.New("measurement not found")

type MeasurementRepository interface {
	Create(ctx context.Context, m *models.Measurement) error
	GetByID(ctx context.Context, id string) (*models.Measurement, error)
	List(ctx context.Context, filter MeasurementFilter) ([]models.Measurement, int64, error)
}

// MeasurementFilter narrows a history query. Empty fields match everything.
type MeasurementFilter struct {
	Joint    string
	Exercise string
	Day      time.Time // zero = any day, otherwise the UTC calendar day to match
	Page     int
	PerPage  int
}

// DayBounds returns the half-open range [start, end) covering Day in UTC.
func (f MeasurementFilter) DayBounds() (time.Time, time.Time) {
	d := f.Day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (f MeasurementFilter) Offset() int {
	if f.Page < 1 || f.PerPage < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.PerPage {
		return math.MaxInt
	}
	return (f.Page - 1) * f.PerPage
}

type measurementRepository struct {
	db *gorm.DB
}

func NewMeasurementRepository(db *gorm.DB) MeasurementRepository {
	return &measurementRepository{db: db}
}

// Create inserts a measurement, gorm fills the id through the BeforeCreate hook
func (r *measurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create measurement: %w", err)
	}
	return nil
}

func (r *measurementRepository) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	var m models.Measurement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMeasurementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get measurement: %w", err)
	}
	return &m, nil
}

// List returns one page of measurements, newest first, plus the total matching count
func (r *measurementRepository) List(ctx context.Context, filter MeasurementFilter) ([]models.Measurement, int64, error) {
	var list []models.Measurement
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Measurement{})
	if filter.Joint != "" {
		query = query.Where("joint = ?", filter.Joint)
	}
	if filter.Exercise != "" {
		query = query.Where("exercise = ?", filter.Exercise)
	}
	if !filter.Day.IsZero() {
		start, end := filter.DayBounds()
		query = query.Where("timestamp >= ? AND timestamp < ?", start, end)
	}

	// Count total records
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count measurements: %w", err)
	}

	// Fetch paginated results
	if err := query.
		Order("timestamp desc").
		Limit(filter.PerPage).
		Offset(filter.Offset()).
		Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list measurements: %w", err)
	}

	return list, total, nil
}
