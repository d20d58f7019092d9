package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/enums"
)

// Petition asks for a movie to be added to the catalog.
type Petition struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MovieTitle  string    `gorm:"column:movie_title;type:varchar(200);not null"`
	Description string    `gorm:"column:description;type:text;not null"`
	CreatorID   uuid.UUID `gorm:"column:creator_id;type:uuid;not null;index"`
	Creator     *User     `gorm:"foreignKey:CreatorID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// PetitionVote is a user's single yes/no vote; re-voting updates in place.
type PetitionVote struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PetitionID uuid.UUID      `gorm:"column:petition_id;type:uuid;not null;uniqueIndex:petition_votes_petition_user_key"`
	UserID     uuid.UUID      `gorm:"column:user_id;type:uuid;not null;uniqueIndex:petition_votes_petition_user_key"`
	VoteType   enums.VoteType `gorm:"column:vote_type;type:varchar(3);not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
