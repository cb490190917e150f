package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Measurement is one recorded exercise session: the sampled joint angles
// plus their extremes, computed when the session is saved.
type Measurement struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Joint     string    `gorm:"type:text;not null;index:idx_measurement_joint_exercise" json:"joint"`
	Exercise  string    `gorm:"type:text;not null;index:idx_measurement_joint_exercise" json:"exercise"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	MinAngle  float64   `gorm:"not null" json:"min_angle"`
	MaxAngle  float64   `gorm:"not null" json:"max_angle"`
	Data      []float64 `gorm:"type:jsonb;serializer:json;not null" json:"data"`
}

// TableName overrides the table name used by Measurement to `measurements`
func (Measurement) TableName() string {
	return "measurements"
}

// BeforeCreate assigns an id when the caller did not.
func (m *Measurement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
