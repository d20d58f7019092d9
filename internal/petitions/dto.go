package petitions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/enums"
)

// PetitionInput is the create petition form.
type PetitionInput struct {
	MovieTitle  string `form:"movie_title" mod:"trim" validate:"required,max=200"`
	Description string `form:"description" mod:"trim" validate:"required"`
}

// VoteInput is the vote form; vote_type must be exactly yes or no.
type VoteInput struct {
	VoteType string `form:"vote_type" mod:"trim"`
}

// VoteOutcome describes what a vote call changed.
type VoteOutcome string

const (
	VoteCreated   VoteOutcome = "created"
	VoteChanged   VoteOutcome = "changed"
	VoteUnchanged VoteOutcome = "unchanged"
)

// PetitionView is a listed petition with its tallies.
type PetitionView struct {
	ID              uuid.UUID
	MovieTitle      string
	Description     string
	CreatorID       uuid.UUID
	CreatorUsername string
	CreatedAt       time.Time
	Yes             int64
	No              int64
	Total           int64
	// ViewerVote is empty when the viewer has not voted or is anonymous.
	ViewerVote enums.VoteType
	CanDelete  bool
}

type tallyRow struct {
	PetitionID uuid.UUID `gorm:"column:petition_id"`
	Yes        int64     `gorm:"column:yes_count"`
	No         int64     `gorm:"column:no_count"`
	Total      int64     `gorm:"column:total_votes"`
}
