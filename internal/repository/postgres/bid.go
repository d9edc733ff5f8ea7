package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/bazaar/internal/models"
)

type BidRepo struct {
	DB DBTX
}

const createBid = `-- name: CreateBid
INSERT INTO bids (id, listing_id, bidder_id, amount, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, listing_id, bidder_id, amount, created_at
`

func (r *BidRepo) CreateBid(ctx context.Context, b models.Bid) (models.Bid, error) {
	rows, _ := r.DB.Query(ctx, createBid, b.ID, b.ListingID, b.BidderID, b.Amount, b.CreatedAt)
	bid, err := pgx.CollectOneRow(rows, rowToBid)
	if err != nil {
		return bid, dbError(err)
	}
	return bid, nil
}

const listBids = `-- name: ListBids
SELECT id, listing_id, bidder_id, amount, created_at FROM bids
WHERE listing_id = $1
ORDER BY created_at DESC, amount DESC
`

func (r *BidRepo) ListBids(ctx context.Context, listingID uuid.UUID) ([]models.Bid, error) {
	rows, _ := r.DB.Query(ctx, listBids, listingID)
	bids, err := pgx.CollectRows(rows, rowToBid)
	if err != nil {
		return nil, dbError(err)
	}
	return bids, nil
}

func rowToBid(row pgx.CollectableRow) (models.Bid, error) {
	var b models.Bid
	err := row.Scan(&b.ID, &b.ListingID, &b.BidderID, &b.Amount, &b.CreatedAt)
	return b, err
}
