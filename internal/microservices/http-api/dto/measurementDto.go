package dto

import (
	"time"

	"rheumactive/internal/microservices/http-api/models"
	"rheumactive/internal/microservices/http-api/service"
)

// CreateMeasurementDTO for saving a finished session
type CreateMeasurementDTO struct {
	Joint    string    `json:"joint" binding:"required,max=64"`
	Exercise string    `json:"exercise" binding:"required,max=64"`
	Data     []float64 `json:"data" binding:"required,min=1"`
}

// CreateMeasurementResponse is returned with 201
type CreateMeasurementResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// MeasurementQueryDTO binds the history query string
type MeasurementQueryDTO struct {
	Page     string `form:"page"`
	PerPage  string `form:"per_page"`
	Joint    string `form:"joint"`
	Exercise string `form:"exercise"`
	Date     string `form:"date"`
}

// MeasurementResponse for returning one measurement
type MeasurementResponse struct {
	ID        string    `json:"id"`
	Joint     string    `json:"joint"`
	Exercise  string    `json:"exercise"`
	Timestamp time.Time `json:"timestamp"`
	MinAngle  float64   `json:"min_angle"`
	MaxAngle  float64   `json:"max_angle"`
	Data      []float64 `json:"data"`
}

// FromModelToMeasurementResponse converts a Measurement model to MeasurementResponse DTO
func FromModelToMeasurementResponse(m *models.Measurement) MeasurementResponse {
	data := m.Data
	if data == nil {
		data = []float64{}
	}
	return MeasurementResponse{
		ID:        m.ID,
		Joint:     m.Joint,
		Exercise:  m.Exercise,
		Timestamp: m.Timestamp,
		MinAngle:  m.MinAngle,
		MaxAngle:  m.MaxAngle,
		Data:      data,
	}
}

// PaginatedMeasurementResponse for returning paginated history
type PaginatedMeasurementResponse struct {
	Data       []MeasurementResponse `json:"data"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PerPage    int                   `json:"per_page"`
	TotalPages int                   `json:"total_pages"`
}

func FromPageToResponse(p *service.MeasurementPage) PaginatedMeasurementResponse {
	items := make([]MeasurementResponse, 0, len(p.Data))
	for i := range p.Data {
		items = append(items, FromModelToMeasurementResponse(&p.Data[i]))
	}
	return PaginatedMeasurementResponse{
		Data:       items,
		Total:      p.Total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages,
	}
}
