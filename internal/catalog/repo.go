package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"gorm.io/gorm"
)

// ListQuery is the repository-level product filter.
type ListQuery struct {
	CategorySlug string
	Cursor       *pagination.Cursor
	Limit        int
}

// Repository reads catalog rows. Catalog data is read-only to the storefront;
// the only writer is the image URL repair.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListProducts returns active products ordered newest first, starting after the cursor.
func (r *Repository) ListProducts(ctx context.Context, q ListQuery) ([]models.Product, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Where("products.is_active = ?", true)

	if slug := strings.TrimSpace(q.CategorySlug); slug != "" {
		tx = tx.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", strings.ToLower(slug))
	}

	var products []models.Product
	if err := tx.Scopes(pagination.Keyset("products", q.Cursor, q.Limit)).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindProduct loads one active product with its category.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListAllImageRefs returns id and image_url for every product, active or not.
func (r *Repository) ListAllImageRefs(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Select("id", "image_url").
		Order("created_at ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateImageURL rewrites the image reference of a single product.
func (r *Repository) UpdateImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("image_url", imageURL).Error
}
