package movies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db/models"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
)

// Service is the catalog surface used by controllers, the cart and the seeder.
type Service interface {
	List(ctx context.Context, query string) ([]MovieSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	Create(ctx context.Context, input MovieInput) (*models.Movie, error)
}

type repository interface {
	List(ctx context.Context, query string) ([]MovieSummary, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
	Create(ctx context.Context, movie *models.Movie) error
}

type service struct {
	repo     repository
	validate *validator.Validate
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("movies repository required")
	}
	return &service{repo: repo, validate: validator.New()}, nil
}

func (s *service) List(ctx context.Context, query string) ([]MovieSummary, error) {
	rows, err := s.repo.List(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list movies")
	}
	return rows, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	movie, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
	}
	return movie, nil
}

func (s *service) Create(ctx context.Context, input MovieInput) (*models.Movie, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movie")
	}
	price, err := parsePrice(input.Price)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error()).WithDetails(map[string]string{"price": err.Error()})
	}

	movie := &models.Movie{
		ID:          uuid.New(),
		Title:       input.Title,
		Price:       price,
		Description: input.Description,
		Image:       strings.TrimSpace(input.Image),
		ImageURL:    strings.TrimSpace(input.ImageURL),
	}
	if err := s.repo.Create(ctx, movie); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create movie")
	}
	return movie, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("price must be a number")
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("price must not be negative")
	}
	if !price.Equal(price.Truncate(2)) {
		return decimal.Zero, fmt.Errorf("price must have at most 2 decimal places")
	}
	if price.GreaterThan(maxPrice) {
		return decimal.Zero, fmt.Errorf("price must be at most %s", maxPrice.StringFixed(2))
	}
	return price, nil
}
