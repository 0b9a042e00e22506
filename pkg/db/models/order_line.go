package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLine freezes one cart line at checkout time.
type OrderLine struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Position            int             `gorm:"column:position;not null"`
	ProductID           string          `gorm:"column:product_id;not null"`
	Name                string          `gorm:"column:name;not null"`
	ImageURL            string          `gorm:"column:image_url;not null;default:''"`
	Size                string          `gorm:"column:size;not null"`
	UnitPrice           decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity            int             `gorm:"column:quantity;not null"`
	LineTotal           decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CustomizationName   *string         `gorm:"column:customization_name"`
	CustomizationNumber *string         `gorm:"column:customization_number"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
