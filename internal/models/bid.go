package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is immutable once admitted
type Bid struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}
