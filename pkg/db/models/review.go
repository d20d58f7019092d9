package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a single user's rating of a movie; one per (movie, user).
type Review struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MovieID   uuid.UUID `gorm:"column:movie_id;type:uuid;not null;uniqueIndex:reviews_movie_user_key"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:reviews_movie_user_key"`
	Rating    int       `gorm:"column:rating;type:smallint;not null"`
	Text      string    `gorm:"column:text;type:text;not null"`
	User      *User     `gorm:"foreignKey:UserID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ReviewReport records that a user flagged a review; one per (review, user).
type ReviewReport struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReviewID  uuid.UUID `gorm:"column:review_id;type:uuid;not null;uniqueIndex:review_reports_review_user_key"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:review_reports_review_user_key"`
	Reason    string    `gorm:"column:reason;type:varchar(255);not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
