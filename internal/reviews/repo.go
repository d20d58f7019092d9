package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db/models"
)

const (
	ReviewUniqueConstraint = "reviews_movie_user_key"
	ReportUniqueConstraint = "review_reports_review_user_key"
)

// Repository exposes review and report persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// FindOwned only matches reviews written by userID.
func (r *Repository) FindOwned(ctx context.Context, id, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) FindByMovieAndUser(ctx context.Context, movieID, userID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("movie_id = ? AND user_id = ?", movieID, userID).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *Repository) UpdateContent(ctx context.Context, id uuid.UUID, rating int, text string) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", id).
		Updates(map[string]any{"rating": rating, "text": text}).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// ListVisible returns a movie's reviews newest-first, leaving out any the
// viewer has reported.
func (r *Repository) ListVisible(ctx context.Context, movieID, viewerID uuid.UUID) ([]models.Review, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Where("movie_id = ?", movieID)
	if viewerID != uuid.Nil {
		q = q.Where("id NOT IN (?)",
			r.db.Model(&models.ReviewReport{}).Select("review_id").Where("user_id = ?", viewerID))
	}
	var rows []models.Review
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindReport(ctx context.Context, reviewID, userID uuid.UUID) (*models.ReviewReport, error) {
	var report models.ReviewReport
	err := r.db.WithContext(ctx).
		Where("review_id = ? AND user_id = ?", reviewID, userID).
		First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *Repository) CreateReport(ctx context.Context, report *models.ReviewReport) error {
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(report).Error
}
