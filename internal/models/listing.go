package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ShippingWaitingPayment = "waiting_payment"
	ShippingToShip         = "to_ship"
	ShippingShipped        = "shipped"
	ShippingDelivered      = "delivered"
)

const (
	PaymentNone      = "none"
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

type Listing struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Title   string
	Price   decimal.Decimal

	IsAuction       bool
	AuctionEndTime  time.Time // zero for fixed price listings
	CurrentBid      decimal.Decimal
	MinBidIncrement decimal.Decimal
	BidCount        int

	ShippingStatus string
	PaymentStatus  string
	TransactionID  *uuid.UUID // active escrow transaction, nil while waiting for payment

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// CurrentHighest is the best price known for the listing: the current bid if any, otherwise the price
func (l *Listing) CurrentHighest() decimal.Decimal {
	if l.CurrentBid.IsPositive() {
		return l.CurrentBid
	}
	return l.Price
}

// MinimumBid returns the smallest acceptable next bid
// The starting price itself is a valid first bid
func (l *Listing) MinimumBid() decimal.Decimal {
	if l.BidCount == 0 {
		return l.Price
	}
	return l.CurrentHighest().Add(l.MinBidIncrement)
}

// AuctionEnded reports whether bidding is closed at the given moment
func (l *Listing) AuctionEnded(now time.Time) bool {
	return !now.Before(l.AuctionEndTime)
}

// Purchasable reports whether no escrow transaction holds the listing
func (l *Listing) Purchasable() bool {
	return l.ShippingStatus == ShippingWaitingPayment
}
