package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/jerseyleague/shop-backend/pkg/enums"
)

// UserRole grants a role to a user. The pair is unique.
type UserRole struct {
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey"`
	Role      enums.Role `gorm:"column:role;type:text;primaryKey"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (UserRole) TableName() string { return "user_roles" }
