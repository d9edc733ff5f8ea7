package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

type ListingRepo struct {
	s *Storage
}

func listingKey(id uuid.UUID) string {
	return "listing:" + id.String()
}

func (r *ListingRepo) CreateListing(_ context.Context, l models.Listing) (models.Listing, error) {
	err := r.s.write(func(v view) error {
		put(v, listingsOf, l.ID, l)
		return nil
	})
	return l, err
}

func (r *ListingRepo) GetListing(_ context.Context, id uuid.UUID) (models.Listing, error) {
	var (
		l  models.Listing
		ok bool
	)
	r.s.read(func(v view) {
		l, ok = lookup(v, listingsOf, id)
	})
	if !ok {
		return l, apperrors.ErrListingNotFound
	}
	return l, nil
}

func (r *ListingRepo) GetListingForUpdate(ctx context.Context, id uuid.UUID) (models.Listing, error) {
	if err := r.s.lock(ctx, listingKey(id)); err != nil {
		return models.Listing{}, err
	}
	return r.GetListing(ctx, id)
}

func (r *ListingRepo) UpdateBid(_ context.Context, id uuid.UUID, currentBid decimal.Decimal, bidCount int) (models.Listing, error) {
	return r.update(id, func(l *models.Listing) {
		l.CurrentBid = currentBid
		l.BidCount = bidCount
	})
}

func (r *ListingRepo) UpdateStatus(_ context.Context, id uuid.UUID, opts repository.UpdateListingStatusOpts) (models.Listing, error) {
	return r.update(id, func(l *models.Listing) {
		l.ShippingStatus = opts.ShippingStatus
		l.PaymentStatus = opts.PaymentStatus
		l.TransactionID = opts.TransactionID
	})
}

func (r *ListingRepo) OwnerExists(_ context.Context, ownerID uuid.UUID) (bool, error) {
	exists := false
	r.s.read(func(v view) {
		for _, l := range scan(v, listingsOf) {
			if l.OwnerID == ownerID {
				exists = true
				return
			}
		}
	})
	return exists, nil
}

func (r *ListingRepo) update(id uuid.UUID, fn func(l *models.Listing)) (models.Listing, error) {
	var l models.Listing
	err := r.s.write(func(v view) error {
		var ok bool
		l, ok = lookup(v, listingsOf, id)
		if !ok {
			return apperrors.ErrListingNotFound
		}
		fn(&l)
		l.ModifiedAt = now()
		put(v, listingsOf, id, l)
		return nil
	})
	return l, err
}
