package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RewardPurchaseCompleted = "purchase_completed"
	RewardSaleCompleted     = "sale_completed"
	RewardFiveStarReview    = "five_star_review"
)

// RewardEvent is an outbox record for the reward dispatcher
// (UserID, Reason, SourceID) is unique, so the same fact is never enqueued twice
type RewardEvent struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Points      int
	Reason      string
	Description string
	SourceID    uuid.UUID // transaction or review the reward comes from
	CreatedAt   time.Time
	DeliveredAt *time.Time // nil until the sink acknowledged it
	Attempts    int
}
