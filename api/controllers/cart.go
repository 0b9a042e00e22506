package controllers

import (
	"net/http"
	"strings"

	"github.com/jerseyleague/shop-backend/api/middleware"
	"github.com/jerseyleague/shop-backend/api/responses"
	"github.com/jerseyleague/shop-backend/api/validators"
	cartsvc "github.com/jerseyleague/shop-backend/internal/cart"
	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
	"github.com/jerseyleague/shop-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	maxCustomNameLen   = 40
	maxCustomNumberLen = 3
)

type addCartItemRequest struct {
	ID            string                `json:"id" validate:"notblank,max=64"`
	Name          string                `json:"name" validate:"notblank,max=200"`
	Price         decimal.Decimal       `json:"price"`
	Image         string                `json:"image" validate:"omitempty,max=2048"`
	Size          string                `json:"size" validate:"notblank,max=16"`
	Quantity      int                   `json:"quantity"`
	Customization *customizationRequest `json:"customization,omitempty"`
}

type customizationRequest struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

func (r addCartItemRequest) toItem() cartsvc.Item {
	item := cartsvc.Item{
		ID:       strings.TrimSpace(r.ID),
		Name:     strings.TrimSpace(r.Name),
		Price:    r.Price,
		Image:    strings.TrimSpace(r.Image),
		Size:     strings.TrimSpace(r.Size),
		Quantity: r.Quantity,
	}
	if r.Customization != nil {
		item.Customization = &cartsvc.Customization{
			Name:   validators.SanitizeText(r.Customization.Name, maxCustomNameLen),
			Number: validators.SanitizeText(r.Customization.Number, maxCustomNumberLen),
		}
	}
	return item
}

type updateCartItemRequest struct {
	ID       string `json:"id" validate:"required"`
	Size     string `json:"size" validate:"required"`
	Quantity int    `json:"quantity"`
}

// CartGet returns the caller's cart.
func CartGet(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Get(r.Context(), middleware.CartSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartAddItem merges an item into the cart. Quantity is passed through as sent.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Price.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative").
				WithDetails(map[string]any{"field": "price"}))
			return
		}

		view, err := svc.AddItem(r.Context(), middleware.CartSessionFromContext(r.Context()), payload.toItem())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartUpdateQuantity(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateQuantity(r.Context(), middleware.CartSessionFromContext(r.Context()),
			strings.TrimSpace(payload.ID), strings.TrimSpace(payload.Size), payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CartRemoveItem drops every line matching ?id=&size=.
func CartRemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		id, err := validators.ParseQueryRequired(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size, err := validators.ParseQueryRequired(r, "size")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.RemoveItem(r.Context(), middleware.CartSessionFromContext(r.Context()), id, size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		view, err := svc.Clear(r.Context(), middleware.CartSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
