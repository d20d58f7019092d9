package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
)

type movieLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Movie, error)
}

// Service mutates and prices a session cart.
type Service interface {
	Add(ctx context.Context, store Store, movieID uuid.UUID) (*models.Movie, error)
	Remove(store Store, movieID uuid.UUID)
	Clear(store Store)
	Resolve(ctx context.Context, store Store) (Summary, error)
}

type service struct {
	movies movieLoader
}

// NewService builds a cart service that prices lines through movies.
func NewService(movies movieLoader) (Service, error) {
	if movies == nil {
		return nil, fmt.Errorf("movie loader required")
	}
	return &service{movies: movies}, nil
}

// Add bumps the movie's quantity by one, creating the line at 1.
func (s *service) Add(ctx context.Context, store Store, movieID uuid.UUID) (*models.Movie, error) {
	movie, err := s.movies.FindByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
	}
	lines := copyLines(store.Lines())
	lines[movieID.String()]++
	store.SetLines(lines)
	return movie, nil
}

// Remove drops one unit and deletes the line when it reaches zero.
func (s *service) Remove(store Store, movieID uuid.UUID) {
	lines := copyLines(store.Lines())
	key := movieID.String()
	qty, ok := lines[key]
	if !ok {
		return
	}
	if qty <= 1 {
		delete(lines, key)
	} else {
		lines[key] = qty - 1
	}
	store.SetLines(lines)
}

func (s *service) Clear(store Store) {
	store.SetLines(nil)
}

// Resolve prices the cart against current catalog prices. Ids that no
// longer match a movie, or that are malformed, are skipped.
func (s *service) Resolve(ctx context.Context, store Store) (Summary, error) {
	summary := Summary{Total: decimal.Zero}
	lines := store.Lines()
	if len(lines) == 0 {
		return summary, nil
	}

	ids := make([]uuid.UUID, 0, len(lines))
	quantities := make(map[uuid.UUID]int, len(lines))
	for key, qty := range lines {
		id, err := uuid.Parse(key)
		if err != nil || qty <= 0 {
			continue
		}
		ids = append(ids, id)
		quantities[id] = qty
	}
	if len(ids) == 0 {
		return summary, nil
	}

	found, err := s.movies.FindByIDs(ctx, ids)
	if err != nil {
		return Summary{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart movies")
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].Title != found[j].Title {
			return found[i].Title < found[j].Title
		}
		return found[i].ID.String() < found[j].ID.String()
	})

	for _, movie := range found {
		qty := quantities[movie.ID]
		lineTotal := movie.Price.Mul(decimal.NewFromInt(int64(qty)))
		summary.Lines = append(summary.Lines, Line{Movie: movie, Quantity: qty, LineTotal: lineTotal})
		summary.Total = summary.Total.Add(lineTotal)
		summary.Count += qty
	}
	return summary, nil
}

func copyLines(in map[string]int) map[string]int {
	out := make(map[string]int, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
