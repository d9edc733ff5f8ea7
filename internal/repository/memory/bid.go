package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/models"
)

type BidRepo struct {
	s *Storage
}

func (r *BidRepo) CreateBid(_ context.Context, b models.Bid) (models.Bid, error) {
	err := r.s.write(func(v view) error {
		put(v, bidsOf, b.ID, b)
		return nil
	})
	return b, err
}

func (r *BidRepo) ListBids(_ context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	var bids []models.Bid
	r.s.read(func(v view) {
		for _, b := range scan(v, bidsOf) {
			if b.ListingID == listingID {
				bids = append(bids, b)
			}
		}
	})

	slices.SortStableFunc(bids, func(a, b models.Bid) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.Amount.Cmp(a.Amount)
	})
	return bids, nil
}
