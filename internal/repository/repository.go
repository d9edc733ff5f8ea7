package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/models"
)

// Listing repository interface
type ListingRepo interface {
	// Create listing as is, id and timestamps are set by caller
	CreateListing(ctx context.Context, l models.Listing) (models.Listing, error)

	// Get listing without locking
	// If listing not found must return apperrors.ErrListingNotFound
	GetListing(ctx context.Context, id uuid.UUID) (models.Listing, error)

	// Get listing and hold exclusive lock on it until the surrounding transaction ends
	// Must be called inside Storage.InTx
	// If listing not found must return apperrors.ErrListingNotFound
	GetListingForUpdate(ctx context.Context, id uuid.UUID) (models.Listing, error)

	// Persist bid fields (current bid, bid count)
	UpdateBid(ctx context.Context, id uuid.UUID, currentBid decimal.Decimal, bidCount int) (models.Listing, error)

	// Persist escrow fields (shipping, payment status and active transaction)
	UpdateStatus(ctx context.Context, id uuid.UUID, opts UpdateListingStatusOpts) (models.Listing, error)

	// Whether user owns at least one listing
	OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

type UpdateListingStatusOpts struct {
	ShippingStatus string
	PaymentStatus  string
	TransactionID  *uuid.UUID
}

// Bid repository interface
// Bids are append only
type BidRepo interface {
	CreateBid(ctx context.Context, b models.Bid) (models.Bid, error)

	// List bids of the listing, newest first
	ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error)
}

// Escrow transaction repository interface
type TransactionRepo interface {
	CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error)

	// If transaction not found must return apperrors.ErrTransactionNotFound
	GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	// Same as GetTransaction but holds exclusive lock until the surrounding transaction ends
	GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error)

	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) (models.Transaction, error)

	// Sum of net amount of seller transactions in the given status
	SumNetAmount(ctx context.Context, sellerID uuid.UUID, status string) (decimal.Decimal, error)

	// Whether user took part in any transaction as seller
	SellerExists(ctx context.Context, sellerID uuid.UUID) (bool, error)
}

// Withdrawal repository interface
type WithdrawalRepo interface {
	// Hold exclusive per-user lock until the surrounding transaction ends
	// Locks of different users never contend
	LockUser(ctx context.Context, userID uuid.UUID) error

	CreateWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error)

	// Sum of amount of user withdrawals in any of the statuses
	SumAmount(ctx context.Context, userID uuid.UUID, statuses []string) (decimal.Decimal, error)

	// List user withdrawals, newest first
	ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error)
}

// Reward outbox repository interface
type RewardRepo interface {
	// Enqueue event for delivery
	// If the same (user, reason, source) is enqueued already, the call is a no-op returning the stored event
	EnqueueReward(ctx context.Context, e models.RewardEvent) (models.RewardEvent, error)

	// List not yet delivered events, oldest first
	ListUndelivered(ctx context.Context, limit int) ([]models.RewardEvent, error)

	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error

	// Record failed delivery attempt
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// Apply points on the receiving side
	// Applying the same event twice must not credit points twice. Returns whether points were credited now
	ApplyPoints(ctx context.Context, e models.RewardEvent) (bool, error)

	// Total points credited to user
	SumPoints(ctx context.Context, userID uuid.UUID) (int, error)
}

type Storage interface {
	Listing() ListingRepo
	Bid() BidRepo
	Transaction() TransactionRepo
	Withdrawal() WithdrawalRepo
	Reward() RewardRepo

	// Run fn in one storage transaction
	// Everything fn did is committed if it returns nil and rolled back otherwise
	// Locks taken with *ForUpdate and LockUser are released when fn returns
	// Nested call is a savepoint: on error only its own writes are rolled back
	InTx(ctx context.Context, fn func(Storage) error) error
}
