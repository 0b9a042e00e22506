package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog payload returned to the storefront.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    *CategoryDTO    `json:"category,omitempty"`
	Sizes       []string        `json:"sizes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryDTO describes a catalog category.
type CategoryDTO struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
	Name string    `json:"name"`
}

// ListProductsInput filters the product listing.
type ListProductsInput struct {
	CategorySlug string
	Pagination   pagination.Params
}

// ImageRepair records one product whose image reference was rewritten.
type ImageRepair struct {
	ProductID uuid.UUID `json:"product_id"`
	Before    string    `json:"before"`
	After     string    `json:"after"`
}

// RepairReport summarizes a RepairImageURLs run.
type RepairReport struct {
	Scanned int           `json:"scanned"`
	Updated int           `json:"updated"`
	DryRun  bool          `json:"dry_run"`
	Repairs []ImageRepair `json:"repairs"`
}

func newProductDTO(p models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageURL:    p.ImageURL,
		Sizes:       append([]string{}, p.Sizes...),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Category != nil {
		c := newCategoryDTO(*p.Category)
		dto.Category = &c
	}
	return dto
}

func newCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{ID: c.ID, Slug: c.Slug, Name: c.Name}
}
