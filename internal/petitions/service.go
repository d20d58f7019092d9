package petitions

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db"
	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
	pkgerrors "github.com/angelmondragon/moviestore/pkg/errors"
	"github.com/angelmondragon/moviestore/pkg/outbox"
	"github.com/angelmondragon/moviestore/pkg/outbox/payloads"
)

// Service covers petition listing, creation, voting and deletion.
type Service interface {
	List(ctx context.Context, viewerID uuid.UUID) ([]PetitionView, error)
	Create(ctx context.Context, userID uuid.UUID, input PetitionInput) (*models.Petition, error)
	Vote(ctx context.Context, petitionID, userID uuid.UUID, voteType string) (VoteOutcome, error)
	Delete(ctx context.Context, petitionID, userID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	DB      txRunner
	Repo    *Repository
	Emitter outbox.Emitter
}

type service struct {
	db       txRunner
	repo     *Repository
	emitter  outbox.Emitter
	validate *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil || params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "petitions service dependencies missing")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	return &service{
		db:       params.DB,
		repo:     params.Repo,
		emitter:  params.Emitter,
		validate: validator.New(),
	}, nil
}

func (s *service) List(ctx context.Context, viewerID uuid.UUID) ([]PetitionView, error) {
	rows, err := s.repo.ListNewest(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list petitions")
	}
	tallies, err := s.repo.Tallies(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "tally votes")
	}
	votes := map[uuid.UUID]enums.VoteType{}
	if viewerID != uuid.Nil {
		votes, err = s.repo.VotesByUser(ctx, viewerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load viewer votes")
		}
	}

	out := make([]PetitionView, 0, len(rows))
	for _, p := range rows {
		tally := tallies[p.ID]
		view := PetitionView{
			ID:          p.ID,
			MovieTitle:  p.MovieTitle,
			Description: p.Description,
			CreatorID:   p.CreatorID,
			CreatedAt:   p.CreatedAt,
			Yes:         tally.Yes,
			No:          tally.No,
			Total:       tally.Total,
			ViewerVote:  votes[p.ID],
			CanDelete:   viewerID != uuid.Nil && p.CreatorID == viewerID,
		}
		if p.Creator != nil {
			view.CreatorUsername = p.Creator.Username
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input PetitionInput) (*models.Petition, error) {
	input.MovieTitle = strings.TrimSpace(input.MovieTitle)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid petition").
			WithDetails(fieldErrors(err))
	}

	petition := &models.Petition{
		ID:          uuid.New(),
		MovieTitle:  input.MovieTitle,
		Description: input.Description,
		CreatorID:   userID,
	}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, petition); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create petition")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventPetitionCreated,
			AggregateType: enums.AggregatePetition,
			AggregateID:   petition.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.PetitionCreatedEvent{
				PetitionID: petition.ID,
				MovieTitle: petition.MovieTitle,
				CreatorID:  userID,
			},
		}
		if err := s.emitter.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue petition_created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return petition, nil
}

// Vote records the user's single vote on a petition. Re-voting the same way
// changes nothing; voting the other way flips the row in place.
func (s *service) Vote(ctx context.Context, petitionID, userID uuid.UUID, voteType string) (VoteOutcome, error) {
	vt, err := enums.ParseVoteType(voteType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid vote type.").
			WithDetails(map[string]string{"vote_type": "Select either yes or no."})
	}
	if _, err := s.repo.FindByID(ctx, petitionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "petition not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load petition")
	}

	existing, err := s.repo.FindVote(ctx, petitionID, userID)
	switch {
	case err == nil:
		return s.change(ctx, existing, vt)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load vote")
	}

	vote := &models.PetitionVote{
		ID:         uuid.New(),
		PetitionID: petitionID,
		UserID:     userID,
		VoteType:   vt,
	}
	if err := s.repo.CreateVote(ctx, vote); err != nil {
		if !db.IsUniqueViolation(err, VoteUniqueConstraint) {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create vote")
		}
		existing, err := s.repo.FindVote(ctx, petitionID, userID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload vote")
		}
		return s.change(ctx, existing, vt)
	}
	return VoteCreated, nil
}

func (s *service) change(ctx context.Context, vote *models.PetitionVote, vt enums.VoteType) (VoteOutcome, error) {
	if vote.VoteType == vt {
		return VoteUnchanged, nil
	}
	if err := s.repo.UpdateVoteType(ctx, vote.ID, vt); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update vote")
	}
	return VoteChanged, nil
}

// Delete removes a petition the user created. Anyone else gets not-found.
func (s *service) Delete(ctx context.Context, petitionID, userID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindOwned(ctx, petitionID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "petition not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load petition")
		}
		if err := repo.Delete(ctx, petitionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete petition")
		}
		return nil
	})
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		name := "description"
		if fe.StructField() == "MovieTitle" {
			name = "movie_title"
		}
		switch fe.Tag() {
		case "required":
			fields[name] = "This field is required."
		case "max":
			fields[name] = "Ensure this value has at most " + fe.Param() + " characters."
		default:
			fields[name] = "Enter a valid value."
		}
	}
	return fields
}
