package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/models"
)

type TransactionRepo struct {
	DB DBTX
}

const transactionColumns = `id, buyer_id, seller_id, listing_id, amount, commission, net_amount,
	status, payment_method, created_at, modified_at`

const createTransaction = `-- name: CreateTransaction
INSERT INTO transactions (` + transactionColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + transactionColumns

func (r *TransactionRepo) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, createTransaction,
		t.ID, t.BuyerID, t.SellerID, t.ListingID, t.Amount, t.Commission, t.NetAmount,
		t.Status, t.PaymentMethod, t.CreatedAt, t.ModifiedAt,
	)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)

	if err != nil {
		// Partial unique index allows one active transaction per listing
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return transaction, fmt.Errorf("listing has active transaction: %w", apperrors.ErrListingNotPurchasable)
		}
		return transaction, dbError(err)
	}

	return transaction, nil
}

const getTransaction = `-- name: GetTransaction
SELECT ` + transactionColumns + ` FROM transactions
WHERE id = $1
`

func (r *TransactionRepo) GetTransaction(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return r.getOne(ctx, getTransaction, id)
}

const getTransactionForUpdate = getTransaction + `FOR UPDATE`

func (r *TransactionRepo) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	return r.getOne(ctx, getTransactionForUpdate, id)
}

const updateTransactionStatus = `-- name: UpdateTransactionStatus
UPDATE transactions
SET status = $2, modified_at = now()
WHERE id = $1
RETURNING ` + transactionColumns

func (r *TransactionRepo) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status string) (models.Transaction, error) {
	return r.getOne(ctx, updateTransactionStatus, id, status)
}

const sumNetAmount = `-- name: SumNetAmount
SELECT coalesce(sum(net_amount), 0) FROM transactions
WHERE seller_id = $1 AND status = $2
`

func (r *TransactionRepo) SumNetAmount(ctx context.Context, sellerID uuid.UUID, status string) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.DB.QueryRow(ctx, sumNetAmount, sellerID, status).Scan(&sum)
	if err != nil {
		return sum, dbError(err)
	}
	return sum, nil
}

const sellerExists = `-- name: SellerExists
SELECT EXISTS(SELECT 1 FROM transactions WHERE seller_id = $1)
`

func (r *TransactionRepo) SellerExists(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, sellerExists, sellerID).Scan(&exists)
	if err != nil {
		return false, dbError(err)
	}
	return exists, nil
}

func (r *TransactionRepo) getOne(ctx context.Context, query string, args ...any) (models.Transaction, error) {
	rows, _ := r.DB.Query(ctx, query, args...)
	transaction, err := pgx.CollectOneRow(rows, rowToTransaction)

	switch {
	case err == nil:
		return transaction, nil
	case errors.Is(err, pgx.ErrNoRows):
		return transaction, apperrors.ErrTransactionNotFound
	default:
		return transaction, dbError(err)
	}
}

func rowToTransaction(row pgx.CollectableRow) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID, &t.BuyerID, &t.SellerID, &t.ListingID, &t.Amount, &t.Commission, &t.NetAmount,
		&t.Status, &t.PaymentMethod, &t.CreatedAt, &t.ModifiedAt,
	)
	return t, err
}
