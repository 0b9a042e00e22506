package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jerseyleague/shop-backend/pkg/db/models"
)

// DBPersister upserts cart blobs into the cart_snapshots table.
type DBPersister struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDBPersister(db *gorm.DB) (*DBPersister, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	return &DBPersister{db: db, now: time.Now}, nil
}

func (p *DBPersister) Load(ctx context.Context, key string) (*State, error) {
	var row models.CartSnapshot
	err := p.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	return DecodeState([]byte(row.Payload))
}

func (p *DBPersister) Save(ctx context.Context, key string, state State) error {
	raw, err := EncodeState(state)
	if err != nil {
		return err
	}
	row := models.CartSnapshot{
		Key:       key,
		Payload:   string(raw),
		Version:   StateVersion,
		UpdatedAt: p.now().UTC(),
	}
	err = p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "version", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}
