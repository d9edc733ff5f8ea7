package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Escrow transaction statuses
// The state machine is strictly linear: held -> shipped -> completed
const (
	TransactionHeld      = "held"
	TransactionShipped   = "shipped"
	TransactionCompleted = "completed"

	// Reserved terminal state, no transition leads here yet
	TransactionCancelled = "cancelled"
)

// Platform cut of every sale
var CommissionRate = decimal.RequireFromString("0.10")

type Transaction struct {
	ID        uuid.UUID
	BuyerID   uuid.UUID
	SellerID  uuid.UUID
	ListingID uuid.UUID

	Amount     decimal.Decimal
	Commission decimal.Decimal
	NetAmount  decimal.Decimal

	Status        string
	PaymentMethod string

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Commission returns platform cut and seller payout for the amount
// Commission is rounded to cents, the payout takes the remainder so they always sum up to amount
func Commission(amount decimal.Decimal) (commission decimal.Decimal, net decimal.Decimal) {
	commission = amount.Mul(CommissionRate).Round(2)
	return commission, amount.Sub(commission)
}

// NextStatus returns the only status reachable from the given one
func NextStatus(status string) (string, bool) {
	switch status {
	case TransactionHeld:
		return TransactionShipped, true
	case TransactionShipped:
		return TransactionCompleted, true
	default:
		return "", false
	}
}

func IsTerminal(status string) bool {
	return status == TransactionCompleted || status == TransactionCancelled
}
