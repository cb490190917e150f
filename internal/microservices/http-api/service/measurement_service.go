package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"rheumactive/internal/microservices/http-api/models"
	"rheumactive/internal/microservices/http-api/repository"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	DateLayout     = "2006-01-02"
)

var (
	ErrMeasurementNotFound = repository.ErrMeasurementNotFound
	ErrInvalidMeasurement  = errors.New("invalid measurement")
	ErrInvalidDate         = errors.New("date must be YYYY-MM-DD")
)

// MeasurementExporter receives every saved measurement, e.g. the raw JSON log writer.
type MeasurementExporter interface {
	Record(m *models.Measurement) (string, error)
}

type SaveMeasurementInput struct {
	Joint    string
	Exercise string
	Data     []float64
}

type MeasurementQuery struct {
	Page     int
	PerPage  int
	Joint    string
	Exercise string
	Date     string // YYYY-MM-DD, empty = any day
}

type MeasurementPage struct {
	Data       []models.Measurement
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

type MeasurementService interface {
	Save(ctx context.Context, in SaveMeasurementInput) (*models.Measurement, error)
	Query(ctx context.Context, q MeasurementQuery) (*MeasurementPage, error)
	GetByID(ctx context.Context, id string) (*models.Measurement, error)
}

type measurementService struct {
	repo     repository.MeasurementRepository
	exporter MeasurementExporter
	logger   *slog.Logger
	now      func() time.Time
}

type MeasurementOption func(*measurementService)

// WithExporter writes each saved measurement through e; export failures are logged, never returned.
func WithExporter(e MeasurementExporter) MeasurementOption {
	return func(s *measurementService) { s.exporter = e }
}

func WithClock(now func() time.Time) MeasurementOption {
	return func(s *measurementService) { s.now = now }
}

func NewMeasurementService(repo repository.MeasurementRepository, logger *slog.Logger, opts ...MeasurementOption) MeasurementService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &measurementService{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *measurementService) Save(ctx context.Context, in SaveMeasurementInput) (*models.Measurement, error) {
	joint := strings.TrimSpace(in.Joint)
	exercise := strings.TrimSpace(in.Exercise)

	// basic validation
	if joint == "" {
		return nil, fmt.Errorf("%w: joint is required", ErrInvalidMeasurement)
	}
	if exercise == "" {
		return nil, fmt.Errorf("%w: exercise is required", ErrInvalidMeasurement)
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%w: data must not be empty", ErrInvalidMeasurement)
	}
	for i, v := range in.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: data[%d] is not a finite number", ErrInvalidMeasurement, i)
		}
	}

	m := &models.Measurement{
		Joint:     joint,
		Exercise:  exercise,
		Timestamp: s.now().UTC(),
		MinAngle:  slices.Min(in.Data),
		MaxAngle:  slices.Max(in.Data),
		Data:      slices.Clone(in.Data),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("save measurement: %w", err)
	}
	s.logger.Info("measurement_saved",
		"id", m.ID,
		"joint", m.Joint,
		"exercise", m.Exercise,
		"samples", len(m.Data),
	)

	if s.exporter != nil {
		if path, err := s.exporter.Record(m); err != nil {
			s.logger.Warn("measurement_export_failed", "id", m.ID, "error", err.Error())
		} else {
			s.logger.Debug("measurement_exported", "id", m.ID, "path", path)
		}
	}
	return m, nil
}

func (s *measurementService) Query(ctx context.Context, q MeasurementQuery) (*MeasurementPage, error) {
	page, perPage := normalizePage(q.Page, q.PerPage)
	filter := repository.MeasurementFilter{
		Joint:    strings.TrimSpace(q.Joint),
		Exercise: strings.TrimSpace(q.Exercise),
		Page:     page,
		PerPage:  perPage,
	}
	if d := strings.TrimSpace(q.Date); d != "" {
		day, err := time.ParseInLocation(DateLayout, d, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, d)
		}
		filter.Day = day
	}

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	if list == nil {
		list = []models.Measurement{}
	}
	return &MeasurementPage{
		Data:       list,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
	}, nil
}

func (s *measurementService) GetByID(ctx context.Context, id string) (*models.Measurement, error) {
	// ids are uuids; anything else can not exist and must not reach a uuid column
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrMeasurementNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	// past this the offset no longer fits in an int; the page is empty anyway
	if maxPage := math.MaxInt/perPage + 1; page > maxPage {
		page = maxPage
	}
	return page, perPage
}
