package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

type ListingRepo struct {
	DB DBTX
}

const listingColumns = `id, owner_id, title, price, is_auction, auction_end_time, current_bid, min_bid_increment,
	bid_count, shipping_status, payment_status, transaction_id, created_at, modified_at`

const createListing = `-- name: CreateListing
INSERT INTO listings (` + listingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING ` + listingColumns

func (r *ListingRepo) CreateListing(ctx context.Context, l models.Listing) (models.Listing, error) {
	var auctionEnd *time.Time
	if l.IsAuction {
		auctionEnd = &l.AuctionEndTime
	}

	rows, _ := r.DB.Query(ctx, createListing,
		l.ID, l.OwnerID, l.Title, l.Price, l.IsAuction, auctionEnd, l.CurrentBid, l.MinBidIncrement,
		l.BidCount, l.ShippingStatus, l.PaymentStatus, l.TransactionID, l.CreatedAt, l.ModifiedAt,
	)
	listing, err := pgx.CollectOneRow(rows, rowToListing)
	if err != nil {
		return listing, dbError(err)
	}

	return listing, nil
}

const getListing = `-- name: GetListing
SELECT ` + listingColumns + ` FROM listings
WHERE id = $1
`

func (r *ListingRepo) GetListing(ctx context.Context, id uuid.UUID) (models.Listing, error) {
	return r.getOne(ctx, getListing, id)
}

const getListingForUpdate = getListing + `FOR UPDATE`

func (r *ListingRepo) GetListingForUpdate(ctx context.Context, id uuid.UUID) (models.Listing, error) {
	return r.getOne(ctx, getListingForUpdate, id)
}

const updateBid = `-- name: UpdateBid
UPDATE listings
SET current_bid = $2, bid_count = $3, modified_at = now()
WHERE id = $1
RETURNING ` + listingColumns

func (r *ListingRepo) UpdateBid(ctx context.Context, id uuid.UUID, currentBid decimal.Decimal, bidCount int) (models.Listing, error) {
	return r.getOne(ctx, updateBid, id, currentBid, bidCount)
}

const updateStatus = `-- name: UpdateStatus
UPDATE listings
SET shipping_status = $2, payment_status = $3, transaction_id = $4, modified_at = now()
WHERE id = $1
RETURNING ` + listingColumns

func (r *ListingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, opts repository.UpdateListingStatusOpts) (models.Listing, error) {
	return r.getOne(ctx, updateStatus, id, opts.ShippingStatus, opts.PaymentStatus, opts.TransactionID)
}

const ownerExists = `-- name: OwnerExists
SELECT EXISTS(SELECT 1 FROM listings WHERE owner_id = $1)
`

func (r *ListingRepo) OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, ownerExists, ownerID).Scan(&exists)
	if err != nil {
		return false, dbError(err)
	}
	return exists, nil
}

func (r *ListingRepo) getOne(ctx context.Context, query string, args ...any) (models.Listing, error) {
	rows, _ := r.DB.Query(ctx, query, args...)
	listing, err := pgx.CollectOneRow(rows, rowToListing)

	switch {
	case err == nil:
		return listing, nil
	case errors.Is(err, pgx.ErrNoRows):
		return listing, apperrors.ErrListingNotFound
	default:
		return listing, dbError(err)
	}
}

func rowToListing(row pgx.CollectableRow) (models.Listing, error) {
	var l models.Listing
	var auctionEnd *time.Time

	err := row.Scan(
		&l.ID, &l.OwnerID, &l.Title, &l.Price, &l.IsAuction, &auctionEnd, &l.CurrentBid, &l.MinBidIncrement,
		&l.BidCount, &l.ShippingStatus, &l.PaymentStatus, &l.TransactionID, &l.CreatedAt, &l.ModifiedAt,
	)
	if auctionEnd != nil {
		l.AuctionEndTime = *auctionEnd
	}

	return l, err
}
