package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists orders. Reads always come back with their lines in
// cart order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Insert writes the order header, then order.Lines pointed at it.
	Insert(ctx context.Context, order *models.Order) error
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return gormRepository{db: db}
}

func (r gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return gormRepository{db: tx}
}

func (r gormRepository) Insert(ctx context.Context, order *models.Order) error {
	conn := r.db.WithContext(ctx)
	if err := conn.Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Lines) == 0 {
		return nil
	}
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
	}
	return conn.Create(&order.Lines).Error
}

func (r gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var out []models.Order
	err := r.db.WithContext(ctx).
		Scopes(withLines, pagination.Keyset("orders", cursor, limit)).
		Where("orders.user_id = ?", userID).
		Find(&out).Error
	return out, err
}

// FindForUser matches on owner and id together; another customer's order
// reads as not found.
func (r gormRepository) FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Scopes(withLines).
		Where("orders.id = ? AND orders.user_id = ?", orderID, userID).
		Take(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func withLines(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") })
}
