package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/models"
)

type listingResponse struct {
	ID              uuid.UUID       `json:"id"`
	OwnerID         uuid.UUID       `json:"owner_id"`
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	IsAuction       bool            `json:"is_auction"`
	AuctionEndTime  *time.Time      `json:"auction_end_time,omitempty"`
	CurrentBid      decimal.Decimal `json:"current_bid"`
	MinBidIncrement decimal.Decimal `json:"min_bid_increment"`
	BidCount        int             `json:"bid_count"`
	ShippingStatus  string          `json:"shipping_status"`
	PaymentStatus   string          `json:"payment_status"`
	TransactionID   *uuid.UUID      `json:"transaction_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func newListingResponse(l models.Listing) listingResponse {
	res := listingResponse{
		ID:              l.ID,
		OwnerID:         l.OwnerID,
		Title:           l.Title,
		Price:           l.Price,
		IsAuction:       l.IsAuction,
		CurrentBid:      l.CurrentBid,
		MinBidIncrement: l.MinBidIncrement,
		BidCount:        l.BidCount,
		ShippingStatus:  l.ShippingStatus,
		PaymentStatus:   l.PaymentStatus,
		TransactionID:   l.TransactionID,
		CreatedAt:       l.CreatedAt,
	}
	if l.IsAuction {
		res.AuctionEndTime = &l.AuctionEndTime
	}
	return res
}

type bidResponse struct {
	ID        uuid.UUID       `json:"id"`
	ListingID uuid.UUID       `json:"listing_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func newBidResponse(b models.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		ListingID: b.ListingID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		CreatedAt: b.CreatedAt,
	}
}

type transactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	ListingID     uuid.UUID       `json:"listing_id"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	SellerID      uuid.UUID       `json:"seller_id"`
	Amount        decimal.Decimal `json:"amount"`
	Commission    decimal.Decimal `json:"commission"`
	NetAmount     decimal.Decimal `json:"net_amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	ModifiedAt    time.Time       `json:"modified_at"`
}

func newTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:            t.ID,
		ListingID:     t.ListingID,
		BuyerID:       t.BuyerID,
		SellerID:      t.SellerID,
		Amount:        t.Amount,
		Commission:    t.Commission,
		NetAmount:     t.NetAmount,
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
		CreatedAt:     t.CreatedAt,
		ModifiedAt:    t.ModifiedAt,
	}
}

type withdrawalResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
	CreatedAt time.Time       `json:"created_at"`
}

func newWithdrawalResponse(w models.Withdrawal) withdrawalResponse {
	return withdrawalResponse{
		ID:        w.ID,
		Amount:    w.Amount,
		Status:    w.Status,
		Method:    w.Method,
		CreatedAt: w.CreatedAt,
	}
}
