package service

import (
	"context"

	"github.com/google/uuid"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// CartLine is one product and quantity in a cart replacement.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// CartService exposes cart operations. Every mutation returns the cart as
// stored afterwards.
type CartService interface {
	CreateCart(ctx context.Context) (*model.Cart, error)
	GetCart(ctx context.Context, id uuid.UUID) (*model.Cart, error)
	AddProduct(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error)
	SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error)
	RemoveProduct(ctx context.Context, cartID, productID uuid.UUID) (*model.Cart, error)
	ReplaceProducts(ctx context.Context, cartID uuid.UUID, lines []CartLine) (*model.Cart, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
}

type cartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

// NewCartService creates a cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository) CartService {
	return &cartService{carts: carts, products: products}
}

func (s *cartService) CreateCart(ctx context.Context) (*model.Cart, error) {
	cart := &model.Cart{Items: []model.CartItem{}}
	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	return s.carts.FindByID(ctx, id)
}

func (s *cartService) AddProduct(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.carts.AddItem(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	return s.carts.FindByID(ctx, cartID)
}

func (s *cartService) SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.ErrInvalidQuantity
	}
	if err := s.carts.SetQuantity(ctx, cartID, productID, quantity); err != nil {
		return nil, err
	}
	return s.carts.FindByID(ctx, cartID)
}

func (s *cartService) RemoveProduct(ctx context.Context, cartID, productID uuid.UUID) (*model.Cart, error) {
	if err := s.carts.RemoveItem(ctx, cartID, productID); err != nil {
		return nil, err
	}
	return s.carts.FindByID(ctx, cartID)
}

// ReplaceProducts validates every line before touching the cart. Lines naming
// the same product are merged.
func (s *cartService) ReplaceProducts(ctx context.Context, cartID uuid.UUID, lines []CartLine) (*model.Cart, error) {
	merged := make([]model.CartItem, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, apperrors.ErrInvalidQuantity
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		if _, err := s.products.FindByID(ctx, line.ProductID); err != nil {
			return nil, err
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, model.CartItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	if err := s.carts.ReplaceItems(ctx, cartID, merged); err != nil {
		return nil, err
	}
	return s.carts.FindByID(ctx, cartID)
}

func (s *cartService) ClearCart(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	if err := s.carts.Clear(ctx, cartID); err != nil {
		return nil, err
	}
	return s.carts.FindByID(ctx, cartID)
}
