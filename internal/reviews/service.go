package reviews

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/outbox"
	"github.com/angelmondragon/moviestore/pkg/outbox/payloads"
)

// Service covers reviews written on movie pages and their reports.
type Service interface {
	ListForMovie(ctx context.Context, movieID, viewerID uuid.UUID) (*MovieReviews, error)
	Get(ctx context.Context, reviewID, userID uuid.UUID) (*models.Review, error)
	Add(ctx context.Context, movieID, userID uuid.UUID, input ReviewInput) (*models.Review, error)
	Edit(ctx context.Context, reviewID, userID uuid.UUID, input ReviewInput) (*models.Review, error)
	Delete(ctx context.Context, reviewID, userID uuid.UUID) (uuid.UUID, error)
	Report(ctx context.Context, reviewID, userID uuid.UUID, input ReportInput) (ReportResult, error)
}

// ReportResult tells the caller where to send the user and whether a new
// report row was written.
type ReportResult struct {
	MovieID uuid.UUID
	Created bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type movieLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Movie, error)
}

type ServiceParams struct {
	DB      txRunner
	Repo    *Repository
	Movies  movieLookup
	Emitter outbox.Emitter
}

type service struct {
	db      txRunner
	repo    *Repository
	movies  movieLookup
	emitter outbox.Emitter
}

var errAlreadyReported = errors.New("review already reported")

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil || params.Repo == nil || params.Movies == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reviews service dependencies missing")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &service{
		db:      params.DB,
		repo:    params.Repo,
		movies:  params.Movies,
		emitter: params.Emitter,
	}, nil
}

func (s *service) ListForMovie(ctx context.Context, movieID, viewerID uuid.UUID) (*MovieReviews, error) {
	rows, err := s.repo.ListVisible(ctx, movieID, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := &MovieReviews{Reviews: make([]ReviewView, 0, len(rows))}
	for _, row := range rows {
		view := toView(row, viewerID)
		out.Reviews = append(out.Reviews, view)
		if view.IsOwn && out.Own == nil {
			own := view
			out.Own = &own
		}
	}
	return out, nil
}

// Get treats someone else's review the same as a missing one.
func (s *service) Get(ctx context.Context, reviewID, userID uuid.UUID) (*models.Review, error) {
	review, err := s.repo.FindOwned(ctx, reviewID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	return review, nil
}

// Add creates the user's review of the movie, or updates it when one exists.
func (s *service) Add(ctx context.Context, movieID, userID uuid.UUID, input ReviewInput) (*models.Review, error) {
	input.Text = strings.TrimSpace(input.Text)
	if fields := input.fieldErrors(); len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review").WithDetails(fields)
	}
	if _, err := s.movies.FindByID(ctx, movieID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "movie not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load movie")
	}

	existing, err := s.repo.FindByMovieAndUser(ctx, movieID, userID)
	switch {
	case err == nil:
		return s.update(ctx, existing, input)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load existing review")
	}

	review := &models.Review{
		ID:      uuid.New(),
		MovieID: movieID,
		UserID:  userID,
		Rating:  input.Rating,
		Text:    input.Text,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if !db.IsUniqueViolation(err, ReviewUniqueConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
		}
		// Lost a race with a concurrent submit; fold into the winner.
		existing, err := s.repo.FindByMovieAndUser(ctx, movieID, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload review")
		}
		return s.update(ctx, existing, input)
	}
	return review, nil
}

func (s *service) Edit(ctx context.Context, reviewID, userID uuid.UUID, input ReviewInput) (*models.Review, error) {
	review, err := s.Get(ctx, reviewID, userID)
	if err != nil {
		return nil, err
	}
	input.Text = strings.TrimSpace(input.Text)
	if fields := input.fieldErrors(); len(fields) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review").WithDetails(fields)
	}
	return s.update(ctx, review, input)
}

func (s *service) update(ctx context.Context, review *models.Review, input ReviewInput) (*models.Review, error) {
	if err := s.repo.UpdateContent(ctx, review.ID, input.Rating, input.Text); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
	}
	review.Rating = input.Rating
	review.Text = input.Text
	return review, nil
}

// Delete removes the caller's review and returns the movie it belonged to.
func (s *service) Delete(ctx context.Context, reviewID, userID uuid.UUID) (uuid.UUID, error) {
	review, err := s.Get(ctx, reviewID, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.repo.Delete(ctx, review.ID); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
	}
	return review.MovieID, nil
}

// Report records that userID flagged the review. Reporting twice is a no-op;
// only the first report queues a review_reported event.
func (s *service) Report(ctx context.Context, reviewID, userID uuid.UUID, input ReportInput) (ReportResult, error) {
	reason := strings.TrimSpace(input.Reason)
	if len(reason) > 255 {
		return ReportResult{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid report").
			WithDetails(map[string]string{"reason": "Ensure this value has at most 255 characters."})
	}

	var result ReportResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		review, err := repo.FindByID(ctx, reviewID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
		}
		result.MovieID = review.MovieID

		if _, err := repo.FindReport(ctx, reviewID, userID); err == nil {
			return errAlreadyReported
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load report")
		}

		report := &models.ReviewReport{
			ID:       uuid.New(),
			ReviewID: reviewID,
			UserID:   userID,
			Reason:   reason,
		}
		if err := repo.CreateReport(ctx, report); err != nil {
			if db.IsUniqueViolation(err, ReportUniqueConstraint) {
				return errAlreadyReported
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create report")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventReviewReported,
			AggregateType: enums.AggregateReview,
			AggregateID:   reviewID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.ReviewReportedEvent{
				ReviewID:   reviewID,
				MovieID:    review.MovieID,
				ReporterID: userID,
				Reason:     reason,
			},
		}
		if err := s.emitter.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue review_reported")
		}
		result.Created = true
		return nil
	})
	if errors.Is(err, errAlreadyReported) {
		return ReportResult{MovieID: result.MovieID}, nil
	}
	if err != nil {
		return ReportResult{}, err
	}
	return result, nil
}
