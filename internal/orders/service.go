package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/internal/cart"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSource interface {
	Get(ctx context.Context, sessionID string) (*cart.Store, error)
}

// Service turns session carts into persisted orders.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, sessionID string, shipping ShippingInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
}

type service struct {
	repo  Repository
	tx    txRunner
	carts cartSource
	logg  *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, carts cartSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, carts: carts, logg: logg}, nil
}

func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, sessionID string, shipping ShippingInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	shipping = shipping.normalized()
	if err := validateShipping(shipping); err != nil {
		return nil, err
	}

	store, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, cart.StoreError(err)
	}
	// Take the lines out of the cart up front. A second checkout on the same
	// session now sees an empty cart, and lines added meanwhile are left alone.
	view := store.Checkout()
	if len(view.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	// The store accepts any quantity; checkout is where bad lines are refused.
	for _, item := range view.Items {
		if item.Quantity <= 0 {
			store.Restore(view.Items)
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart contains a line with a non-positive quantity").
				WithDetails(map[string]any{"id": item.ID, "size": item.Size, "quantity": item.Quantity})
		}
	}

	order := &models.Order{
		UserID:       userID,
		CartSession:  sessionID,
		Status:       enums.OrderStatusPlaced,
		Total:        view.Total,
		ItemCount:    view.Count,
		ShipName:     shipping.Name,
		ShipLine1:    shipping.Line1,
		ShipLine2:    shipping.Line2,
		ShipCity:     shipping.City,
		ShipPostal:   shipping.PostalCode,
		ShipCountry:  shipping.Country,
		ContactEmail: shipping.Email,
	}

	order.Lines = buildLines(view.Items)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Insert(ctx, order)
	})
	if err != nil {
		store.Restore(view.Items)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "total": order.Total.String()})
	s.logg.Info(ctx, "order placed")

	dto := newOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	page := pagination.BuildPage(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	items := make([]OrderDTO, 0, len(page.Items))
	for _, o := range page.Items {
		items = append(items, newOrderDTO(o))
	}
	return &OrderList{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	dto := newOrderDTO(*order)
	return &dto, nil
}

func buildLines(items []cart.Item) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(items))
	for idx, item := range items {
		line := models.OrderLine{
			Position:  idx,
			ProductID: item.ID,
			Name:      item.Name,
			ImageURL:  item.Image,
			Size:      item.Size,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		}
		if c := item.Customization; c != nil {
			name, number := c.Name, c.Number
			line.CustomizationName = &name
			line.CustomizationNumber = &number
		}
		lines = append(lines, line)
	}
	return lines
}

func validateShipping(in ShippingInput) error {
	missing := []string{}
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Line1 == "" {
		missing = append(missing, "line1")
	}
	if in.City == "" {
		missing = append(missing, "city")
	}
	if in.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if in.Country == "" {
		missing = append(missing, "country")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}
