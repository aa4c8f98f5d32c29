package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lot is a consignment of catering products tracked as a unit.
type Lot struct {
	ID          uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	LotCode     string       `gorm:"column:lot_code;size:55;not null;uniqueIndex"`
	Items       []LotItem    `gorm:"foreignKey:LotID;constraint:OnDelete:CASCADE"`
	Assignments []Assignment `gorm:"foreignKey:LotID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *Lot) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
