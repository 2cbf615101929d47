package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a catalog item.
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Code        string          `json:"code" gorm:"uniqueIndex;size:100;not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(20,2);not null;default:0"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	Category    string          `json:"category" gorm:"size:100;index"`
	Status      bool            `json:"status" gorm:"not null;index"`
	Thumbnails  Thumbnails      `json:"thumbnails" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Thumbnails is a list of image URLs stored as a newline-separated column.
type Thumbnails []string

// GormDataType tells GORM how to migrate the column.
func (Thumbnails) GormDataType() string {
	return "text"
}

// Scan implements sql.Scanner.
func (t *Thumbnails) Scan(value any) error {
	var raw string
	switch v := value.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	}
	if raw == "" {
		*t = nil
		return nil
	}
	*t = strings.Split(raw, "\n")
	return nil
}

// Value implements driver.Valuer.
func (t Thumbnails) Value() (any, error) {
	return strings.Join(t, "\n"), nil
}
