package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyleague/shop-backend/pkg/db/models"
	"github.com/jerseyleague/shop-backend/pkg/enums"
	"github.com/jerseyleague/shop-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ShippingInput is the delivery address collected at checkout.
type ShippingInput struct {
	Name       string  `json:"name" validate:"notblank,max=120"`
	Line1      string  `json:"line1" validate:"notblank,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"notblank,max=120"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"required,len=2"`
	Email      string  `json:"email" validate:"required,email"`
}

func (in ShippingInput) normalized() ShippingInput {
	out := ShippingInput{
		Name:       strings.TrimSpace(in.Name),
		Line1:      strings.TrimSpace(in.Line1),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
	}
	if in.Line2 != nil {
		if line2 := strings.TrimSpace(*in.Line2); line2 != "" {
			out.Line2 = &line2
		}
	}
	return out
}

// CustomizationDTO is the print on an ordered jersey.
type CustomizationDTO struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// LineDTO is one frozen order line.
type LineDTO struct {
	ProductID     string            `json:"product_id"`
	Name          string            `json:"name"`
	ImageURL      string            `json:"image_url"`
	Size          string            `json:"size"`
	UnitPrice     decimal.Decimal   `json:"unit_price"`
	Quantity      int               `json:"quantity"`
	LineTotal     decimal.Decimal   `json:"line_total"`
	Customization *CustomizationDTO `json:"customization,omitempty"`
}

// AddressDTO is the shipping address as stored on the order.
type AddressDTO struct {
	Name       string  `json:"name"`
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// OrderDTO is the API shape of a placed order.
type OrderDTO struct {
	ID           uuid.UUID         `json:"id"`
	Status       enums.OrderStatus `json:"status"`
	Total        decimal.Decimal   `json:"total"`
	ItemCount    int               `json:"item_count"`
	ContactEmail string            `json:"contact_email"`
	Shipping     AddressDTO        `json:"shipping"`
	Lines        []LineDTO         `json:"lines"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList wraps a page of orders for the account screen.
type OrderList = pagination.Page[OrderDTO]

func newOrderDTO(o models.Order) OrderDTO {
	lines := make([]LineDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		dto := LineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			Size:      l.Size,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		}
		if l.CustomizationName != nil || l.CustomizationNumber != nil {
			dto.Customization = &CustomizationDTO{
				Name:   deref(l.CustomizationName),
				Number: deref(l.CustomizationNumber),
			}
		}
		lines = append(lines, dto)
	}
	return OrderDTO{
		ID:           o.ID,
		Status:       o.Status,
		Total:        o.Total,
		ItemCount:    o.ItemCount,
		ContactEmail: o.ContactEmail,
		Shipping: AddressDTO{
			Name:       o.ShipName,
			Line1:      o.ShipLine1,
			Line2:      o.ShipLine2,
			City:       o.ShipCity,
			PostalCode: o.ShipPostal,
			Country:    o.ShipCountry,
		},
		Lines:     lines,
		CreatedAt: o.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
