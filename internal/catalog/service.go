package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Service exposes read-only catalog access plus the image URL maintenance job.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	RepairImageURLs(ctx context.Context, dryRun bool) (*RepairReport, error)
}

type catalogRepository interface {
	ListProducts(ctx context.Context, q ListQuery) ([]models.Product, error)
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListAllImageRefs(ctx context.Context) ([]models.Product, error)
	UpdateImageURL(ctx context.Context, id uuid.UUID, imageURL string) error
}

type service struct {
	repo          catalogRepository
	imageTemplate string
	logg          *logger.Logger
}

// NewService builds the catalog service. imageTemplate is the public base URL
// product images are served from.
func NewService(repo catalogRepository, imageTemplate string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if strings.TrimSpace(imageTemplate) == "" {
		return nil, fmt.Errorf("image url template required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, imageTemplate: imageTemplate, logg: logg}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListProducts(ctx, ListQuery{
		CategorySlug: input.CategorySlug,
		Cursor:       cursor,
		Limit:        pagination.LimitWithBuffer(input.Pagination.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	page := pagination.BuildPage(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	items := make([]ProductDTO, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, newProductDTO(p))
	}
	return &pagination.Page[ProductDTO]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	dto := newProductDTO(*product)
	return &dto, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, c := range rows {
		out = append(out, newCategoryDTO(c))
	}
	return out, nil
}

// RepairImageURLs walks every product and rewrites image references that do not
// match the public URL template. With dryRun the report lists the changes but
// nothing is written.
func (s *service) RepairImageURLs(ctx context.Context, dryRun bool) (*RepairReport, error) {
	rows, err := s.repo.ListAllImageRefs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product images")
	}

	report := &RepairReport{Scanned: len(rows), DryRun: dryRun, Repairs: []ImageRepair{}}
	for _, row := range rows {
		fixed, changed := RepairImageURL(row.ImageURL, s.imageTemplate)
		if !changed {
			continue
		}
		report.Repairs = append(report.Repairs, ImageRepair{ProductID: row.ID, Before: row.ImageURL, After: fixed})
		if dryRun {
			continue
		}
		if err := s.repo.UpdateImageURL(ctx, row.ID, fixed); err != nil {
			return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product image")
		}
		report.Updated++
	}

	lctx := s.logg.WithFields(ctx, map[string]any{
		"scanned": report.Scanned,
		"changed": len(report.Repairs),
		"updated": report.Updated,
		"dry_run": dryRun,
	})
	s.logg.Info(lctx, "product image urls repaired")
	return report, nil
}
