package movies

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moviestore/pkg/db/models"
)

// MovieSummary is a catalog row annotated with its review aggregates.
type MovieSummary struct {
	models.Movie
	AvgRating   *float64
	ReviewCount int64
}

// MovieInput carries a new catalog entry.
type MovieInput struct {
	Title       string `validate:"required,max=200"`
	Price       string `validate:"required"`
	Description string `validate:"required"`
	Image       string `validate:"max=500"`
	ImageURL    string `validate:"omitempty,url,max=500"`
}

var maxPrice = decimal.RequireFromString("99999.99")
