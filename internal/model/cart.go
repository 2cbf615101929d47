package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart holds products a user intends to buy.
type Cart struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Items     []CartItem `json:"products" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Total sums price times quantity over the cart's items. Items whose product
// was not preloaded count as zero.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CartItem is a product line inside a cart.
type CartItem struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CartID    uuid.UUID `json:"-" gorm:"type:char(36);not null;uniqueIndex:idx_cart_product"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:char(36);not null;uniqueIndex:idx_cart_product"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`

	// Relations
	Product Product `json:"product" gorm:"foreignKey:ProductID"`
}
