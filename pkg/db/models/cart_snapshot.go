package models

import "time"

// CartSnapshot stores the persisted cart blob for one storage key.
type CartSnapshot struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	Version   int       `gorm:"column:version;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (CartSnapshot) TableName() string { return "cart_snapshots" }
