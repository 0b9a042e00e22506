package cart

import "github.com/shopspring/decimal"

// Customization is the optional name/number printed on a jersey.
type Customization struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Item is one cart line. ID is the product id and is not unique within a cart:
// the same product can appear in several sizes or with different prints.
type Item struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Image         string          `json:"image"`
	Size          string          `json:"size"`
	Quantity      int             `json:"quantity"`
	Customization *Customization  `json:"customization,omitempty"`
}

// sameLine is the merge identity used by AddItem: id, size and customization
// must all match. Two absent customizations are equal, one absent is not.
func (i Item) sameLine(other Item) bool {
	if i.ID != other.ID || i.Size != other.Size {
		return false
	}
	switch {
	case i.Customization == nil && other.Customization == nil:
		return true
	case i.Customization == nil || other.Customization == nil:
		return false
	default:
		return *i.Customization == *other.Customization
	}
}

// matches is the coarse identity used by RemoveItem and UpdateQuantity.
func (i Item) matches(id, size string) bool {
	return i.ID == id && i.Size == size
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) clone() Item {
	if i.Customization != nil {
		c := *i.Customization
		i.Customization = &c
	}
	return i
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for idx, item := range items {
		out[idx] = item.clone()
	}
	return out
}
