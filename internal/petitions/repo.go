package petitions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/moviestore/pkg/db/models"
	"github.com/angelmondragon/moviestore/pkg/enums"
)

const VoteUniqueConstraint = "petition_votes_petition_user_key"

// Repository exposes petition and vote persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListNewest returns all petitions newest-first with their creators.
func (r *Repository) ListNewest(ctx context.Context) ([]models.Petition, error) {
	var rows []models.Petition
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	return rows, err
}

// Tallies counts votes per petition in a single grouped query.
func (r *Repository) Tallies(ctx context.Context) (map[uuid.UUID]tallyRow, error) {
	var rows []tallyRow
	err := r.db.WithContext(ctx).
		Model(&models.PetitionVote{}).
		Select(`petition_id,
			SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END) AS yes_count,
			SUM(CASE WHEN vote_type = ? THEN 1 ELSE 0 END) AS no_count,
			COUNT(*) AS total_votes`, enums.VoteYes, enums.VoteNo).
		Group("petition_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]tallyRow, len(rows))
	for _, row := range rows {
		out[row.PetitionID] = row
	}
	return out, nil
}

// VotesByUser maps petition id to the user's vote.
func (r *Repository) VotesByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]enums.VoteType, error) {
	var votes []models.PetitionVote
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&votes).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]enums.VoteType, len(votes))
	for _, v := range votes {
		out[v.PetitionID] = v.VoteType
	}
	return out, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Petition, error) {
	var petition models.Petition
	if err := r.db.WithContext(ctx).First(&petition, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &petition, nil
}

func (r *Repository) FindOwned(ctx context.Context, id, creatorID uuid.UUID) (*models.Petition, error) {
	var petition models.Petition
	err := r.db.WithContext(ctx).
		Where("id = ? AND creator_id = ?", id, creatorID).
		First(&petition).Error
	if err != nil {
		return nil, err
	}
	return &petition, nil
}

func (r *Repository) Create(ctx context.Context, petition *models.Petition) error {
	if petition.ID == uuid.Nil {
		petition.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(petition).Error
}

// Delete removes the petition and its votes.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&models.PetitionVote{}, "petition_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Petition{}, "id = ?", id).Error
}

func (r *Repository) FindVote(ctx context.Context, petitionID, userID uuid.UUID) (*models.PetitionVote, error) {
	var vote models.PetitionVote
	err := r.db.WithContext(ctx).
		Where("petition_id = ? AND user_id = ?", petitionID, userID).
		First(&vote).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *Repository) CreateVote(ctx context.Context, vote *models.PetitionVote) error {
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *Repository) UpdateVoteType(ctx context.Context, id uuid.UUID, voteType enums.VoteType) error {
	return r.db.WithContext(ctx).
		Model(&models.PetitionVote{}).
		Where("id = ?", id).
		Update("vote_type", voteType).Error
}
