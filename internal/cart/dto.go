package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/moviestore/pkg/db/models"
)

// Store is the per-session key-value mapping of movie id to quantity. The
// session passes itself in on every call; the cart keeps no state of its own.
type Store interface {
	Lines() map[string]int
	SetLines(lines map[string]int)
}

// Line is a cart entry priced against the current catalog.
type Line struct {
	Movie     models.Movie
	Quantity  int
	LineTotal decimal.Decimal
}

// Summary is a resolved cart.
type Summary struct {
	Lines []Line
	Total decimal.Decimal
	// Count is the number of units across all lines.
	Count int
}

// Empty reports whether no purchasable line remains.
func (s Summary) Empty() bool {
	return len(s.Lines) == 0
}
