package movies

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/db/models"
)

// Repository exposes catalog persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

type summaryRow struct {
	models.Movie `gorm:"embedded"`
	AvgRating    *float64 `gorm:"column:avg_rating"`
	ReviewCount  int64    `gorm:"column:review_count"`
}

// List returns movies whose title or description contains query, ignoring case.
func (r *Repository) List(ctx context.Context, query string) ([]MovieSummary, error) {
	q := r.db.WithContext(ctx).
		Table("movies").
		Select("movies.*, AVG(reviews.rating) AS avg_rating, COUNT(reviews.id) AS review_count").
		Joins("LEFT JOIN reviews ON reviews.movie_id = movies.id").
		Group("movies.id").
		Order("movies.title ASC").
		Order("movies.id ASC")

	if query != "" {
		pattern := "%" + escapeLike(query) + "%"
		q = q.Where(db.ContainsFold(r.db, "movies.title")+" OR "+db.ContainsFold(r.db, "movies.description"), pattern, pattern)
	}

	var rows []summaryRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]MovieSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, MovieSummary{Movie: row.Movie, AvgRating: row.AvgRating, ReviewCount: row.ReviewCount})
	}
	return out, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Movie, error) {
	var movie models.Movie
	if err := r.db.WithContext(ctx).First(&movie, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByIDs loads every existing movie among ids; missing ids are skipped.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Movie, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Movie
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

func (r *Repository) Create(ctx context.Context, movie *models.Movie) error {
	if movie.ID == uuid.Nil {
		movie.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(movie).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
