package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movie is a purchasable catalog title.
type Movie struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string          `gorm:"column:title;type:varchar(200);not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(7,2);not null"`
	Description string          `gorm:"column:description;type:text;not null"`
	Image       string          `gorm:"column:image;type:text;not null;default:''"`
	ImageURL    string          `gorm:"column:image_url;type:text;not null;default:''"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// DisplayImage prefers the uploaded image and falls back to the external URL.
func (m Movie) DisplayImage() string {
	if m.Image != "" {
		return "/media/" + m.Image
	}
	return m.ImageURL
}
