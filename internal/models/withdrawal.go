package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// Withdrawal statuses that reserve seller funds
var WithdrawalOutstanding = []string{WithdrawalPending, WithdrawalApproved}

type Withdrawal struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Status    string
	Method    string
	Details   string // opaque payout details
	CreatedAt time.Time
}

// Balance is the earnings ledger view of one seller
type Balance struct {
	UserID      uuid.UUID
	Earned      decimal.Decimal // net amount of completed sales
	Outstanding decimal.Decimal // pending and approved withdrawals
}

func (b Balance) Available() decimal.Decimal {
	return b.Earned.Sub(b.Outstanding)
}
