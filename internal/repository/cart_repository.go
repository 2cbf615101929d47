package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
)

// CartRepository defines cart persistence operations. Item mutations run in
// a transaction so a cancelled request never leaves a partial cart.
type CartRepository interface {
	Create(ctx context.Context, cart *model.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cart, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error
	ReplaceItems(ctx context.Context, cartID uuid.UUID, items []model.CartItem) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository builds a GORM-backed repository.
func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Create(ctx context.Context, cart *model.Cart) error {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

// FindByID loads the cart with its items and their products. Products deleted
// from the catalog are still loaded.
func (r *cartRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("find cart: %w", err)
	}
	return &cart, nil
}

// AddItem adds quantity of a product, incrementing an existing line.
func (r *cartRepository) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCart(tx, cartID); err != nil {
			return err
		}
		var item model.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		switch {
		case err == nil:
			return tx.Model(&item).Update("quantity", gorm.Expr("quantity + ?", quantity)).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&model.CartItem{CartID: cartID, ProductID: productID, Quantity: quantity}).Error
		default:
			return fmt.Errorf("find cart item: %w", err)
		}
	})
}

func (r *cartRepository) SetQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCart(tx, cartID); err != nil {
			return err
		}
		res := tx.Model(&model.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Update("quantity", quantity)
		if res.Error != nil {
			return fmt.Errorf("update cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrProductNotInCart
		}
		return nil
	})
}

func (r *cartRepository) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCart(tx, cartID); err != nil {
			return err
		}
		res := tx.Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&model.CartItem{})
		if res.Error != nil {
			return fmt.Errorf("delete cart item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrProductNotInCart
		}
		return nil
	})
}

// ReplaceItems swaps every line of the cart for items.
func (r *cartRepository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []model.CartItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCart(tx, cartID); err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
		if len(items) == 0 {
			return nil
		}
		lines := make([]model.CartItem, len(items))
		for i, item := range items {
			lines[i] = model.CartItem{CartID: cartID, ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("insert cart items: %w", err)
		}
		return nil
	})
}

func (r *cartRepository) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureCart(tx, cartID); err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error; err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}
		return nil
	})
}

func ensureCart(tx *gorm.DB, cartID uuid.UUID) error {
	var count int64
	if err := tx.Model(&model.Cart{}).Where("id = ?", cartID).Count(&count).Error; err != nil {
		return fmt.Errorf("find cart: %w", err)
	}
	if count == 0 {
		return apperrors.ErrCartNotFound
	}
	return nil
}
