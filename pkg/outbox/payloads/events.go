package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted once per successful checkout.
type OrderPlacedEvent struct {
	OrderID uuid.UUID       `json:"order_id"`
	UserID  uuid.UUID       `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
	Items   []OrderLine     `json:"items"`
}

// OrderLine is one purchased movie with its snapshot price.
type OrderLine struct {
	MovieID  uuid.UUID       `json:"movie_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// PetitionCreatedEvent announces a new catalog request.
type PetitionCreatedEvent struct {
	PetitionID uuid.UUID `json:"petition_id"`
	MovieTitle string    `json:"movie_title"`
	CreatorID  uuid.UUID `json:"creator_id"`
}

// ReviewReportedEvent lets moderation tooling pick up flagged reviews.
type ReviewReportedEvent struct {
	ReviewID   uuid.UUID `json:"review_id"`
	MovieID    uuid.UUID `json:"movie_id"`
	ReporterID uuid.UUID `json:"reporter_id"`
	Reason     string    `json:"reason,omitempty"`
}
