package reviews

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/moviestore/pkg/db/models"
)

// ReviewInput is the add/edit review form.
type ReviewInput struct {
	Rating int    `form:"rating" validate:"required,min=1,max=5"`
	Text   string `form:"text" mod:"trim" validate:"required"`
}

// fieldErrors re-checks the rules the form enforces so direct callers get
// the same guarantees.
func (in ReviewInput) fieldErrors() map[string]string {
	fields := map[string]string{}
	if in.Rating < 1 || in.Rating > 5 {
		fields["rating"] = "Select a valid choice. Rating must be between 1 and 5."
	}
	if strings.TrimSpace(in.Text) == "" {
		fields["text"] = "This field is required."
	}
	return fields
}

// ReportInput is the optional reason on a report.
type ReportInput struct {
	Reason string `form:"reason" mod:"trim" validate:"max=255"`
}

// ReviewView is a review as shown on the movie page.
type ReviewView struct {
	ID        uuid.UUID
	MovieID   uuid.UUID
	UserID    uuid.UUID
	Username  string
	Rating    int
	Text      string
	CreatedAt time.Time
	IsOwn     bool
}

// MovieReviews is the review block of a movie detail page.
type MovieReviews struct {
	Reviews []ReviewView
	Own     *ReviewView
}

func toView(r models.Review, viewerID uuid.UUID) ReviewView {
	v := ReviewView{
		ID:        r.ID,
		MovieID:   r.MovieID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
		IsOwn:     viewerID != uuid.Nil && r.UserID == viewerID,
	}
	if r.User != nil {
		v.Username = r.User.Username
	}
	return v
}
