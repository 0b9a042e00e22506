package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jerseyleague/shop-backend/pkg/enums"
)

// Upload mirrors an object relayed into the bucket.
type Upload struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID      *uuid.UUID         `gorm:"column:user_id;type:uuid"`
	ObjectKey   string             `gorm:"column:object_key;not null;uniqueIndex"`
	URL         string             `gorm:"column:url;not null"`
	FileName    string             `gorm:"column:file_name;not null"`
	ContentType string             `gorm:"column:content_type;not null"`
	SizeBytes   int64              `gorm:"column:size_bytes;not null"`
	Provider    string             `gorm:"column:provider;not null"`
	Status      enums.UploadStatus `gorm:"column:status;type:text;not null;default:'stored'"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	DeletedAt   *time.Time         `gorm:"column:deleted_at"`
}

func (u *Upload) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
