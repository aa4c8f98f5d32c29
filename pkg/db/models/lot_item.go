package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LotItem is the quantity of one product inside one lot. The (lot, product)
// pair is unique.
type LotItem struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	LotID             uuid.UUID  `gorm:"column:lot_id;type:uuid;not null;uniqueIndex:idx_lot_items_lot_product,priority:1"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_lot_items_lot_product,priority:2;index"`
	Quantity          int        `gorm:"column:quantity;not null;default:0"`
	ExpirationDate    *time.Time `gorm:"column:expiration_date;type:date"`
	CertificationDate *time.Time `gorm:"column:certification_date;type:date"`
	Product           *Product   `gorm:"foreignKey:ProductID"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *LotItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
