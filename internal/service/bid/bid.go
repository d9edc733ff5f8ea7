package bid

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

type BidService struct {
	storage repository.Storage
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time
}

func NewService(storage repository.Storage, m *metrics.Metrics, l logger.Logger) *BidService {
	return &BidService{
		storage: storage,
		metrics: m,
		logger:  l,
		now:     time.Now,
	}
}

// PlaceBid admits the bid on auction listing
//
// Listing row stays locked from the read of current bid till the update,
// so concurrent bids on the same listing are admitted one by one
func (s *BidService) PlaceBid(ctx context.Context, listingID uuid.UUID, bidderID uuid.UUID, amount decimal.Decimal) (bid models.Bid, listing models.Listing, err error) {
	defer func() { s.metrics.ObserveBid(err) }()

	if !amount.IsPositive() || !models.IsMoney(amount) {
		return bid, listing, apperrors.ErrInvalidAmount
	}

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		l, err := tx.Listing().GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}

		now := s.now().UTC()

		switch {
		case !l.IsAuction:
			return apperrors.ErrNotAuction
		case l.AuctionEnded(now):
			return apperrors.ErrAuctionEnded
		case l.OwnerID == bidderID:
			return apperrors.ErrOwnListing
		}

		if minRequired := l.MinimumBid(); amount.LessThan(minRequired) {
			return apperrors.NewThresholdError(apperrors.ErrBidTooLow, minRequired)
		}

		bid, err = tx.Bid().CreateBid(ctx, models.Bid{
			ID:        uuid.New(),
			ListingID: l.ID,
			BidderID:  bidderID,
			Amount:    amount,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		listing, err = tx.Listing().UpdateBid(ctx, l.ID, amount, l.BidCount+1)
		return err
	})
	if err != nil {
		return models.Bid{}, models.Listing{}, fmt.Errorf("place bid: %w", err)
	}

	s.logger.Info("Bid placed", "listing_id", listingID, "bid_id", bid.ID, "amount", amount.String())
	return bid, listing, nil
}

// ListBids returns bids of the listing, newest first
func (s *BidService) ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	if _, err := s.storage.Listing().GetListing(ctx, listingID); err != nil {
		return nil, err
	}
	return s.storage.Bid().ListBids(ctx, listingID)
}
