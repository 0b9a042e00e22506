package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jerseyleague/shop-backend/pkg/enums"
)

// Order is a placed checkout built from a cart snapshot.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	CartSession  string            `gorm:"column:cart_session;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'placed'"`
	Total        decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	ItemCount    int               `gorm:"column:item_count;not null"`
	ShipName     string            `gorm:"column:ship_name;not null"`
	ShipLine1    string            `gorm:"column:ship_line1;not null"`
	ShipLine2    *string           `gorm:"column:ship_line2"`
	ShipCity     string            `gorm:"column:ship_city;not null"`
	ShipPostal   string            `gorm:"column:ship_postal_code;not null"`
	ShipCountry  string            `gorm:"column:ship_country;not null"`
	ContactEmail string            `gorm:"column:contact_email;not null"`
	Lines        []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
