package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/catering-backend/pkg/enums"
)

// Assignment links a lot to a flight. Nothing in the schema limits a lot to a
// single row; upserts always target the oldest one.
type Assignment struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	LotID          uuid.UUID              `gorm:"column:lot_id;type:uuid;not null;index"`
	FlightAssigned *string                `gorm:"column:flight_assigned;size:40"`
	Status         enums.AssignmentStatus `gorm:"column:status;size:20;not null;default:draft"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Assignment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = enums.AssignmentStatusDraft
	}
	return nil
}
