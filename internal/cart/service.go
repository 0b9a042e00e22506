package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgerrors "github.com/jerseyleague/shop-backend/pkg/errors"
)

// Service exposes the session cart to the HTTP layer. Every call returns the
// cart as it is after the operation.
type Service interface {
	Get(ctx context.Context, sessionID string) (View, error)
	AddItem(ctx context.Context, sessionID string, item Item) (View, error)
	RemoveItem(ctx context.Context, sessionID, id, size string) (View, error)
	UpdateQuantity(ctx context.Context, sessionID, id, size string, quantity int) (View, error)
	Clear(ctx context.Context, sessionID string) (View, error)
}

type storeSource interface {
	Get(ctx context.Context, sessionID string) (*Store, error)
}

type service struct {
	stores storeSource
}

func NewService(stores storeSource) (Service, error) {
	if stores == nil {
		return nil, fmt.Errorf("cart registry required")
	}
	return &service{stores: stores}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (View, error) {
	store, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return store.View(), nil
}

func (s *service) AddItem(ctx context.Context, sessionID string, item Item) (View, error) {
	store, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	store.AddItem(item)
	return store.View(), nil
}

func (s *service) RemoveItem(ctx context.Context, sessionID, id, size string) (View, error) {
	store, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	store.RemoveItem(id, size)
	return store.View(), nil
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID, id, size string, quantity int) (View, error) {
	store, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	store.UpdateQuantity(id, size, quantity)
	return store.View(), nil
}

func (s *service) Clear(ctx context.Context, sessionID string) (View, error) {
	store, err := s.store(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	store.ClearCart()
	return store.View(), nil
}

func (s *service) store(ctx context.Context, sessionID string) (*Store, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	store, err := s.stores.Get(ctx, sessionID)
	if err != nil {
		return nil, StoreError(err)
	}
	return store, nil
}

// StoreError maps a failed registry lookup to the typed error for responses.
func StoreError(err error) error {
	if errors.Is(err, ErrRegistryClosed) {
		return pkgerrors.Wrap(pkgerrors.CodeUnavailable, err, "shutting down, retry shortly")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open cart")
}
