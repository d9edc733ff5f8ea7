package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/models"
)

type WithdrawalRepo struct {
	DB DBTX
}

// Transaction scoped advisory lock, released on commit or rollback
// Key namespace keeps it apart from other advisory locks on the same id
const lockUser = `-- name: LockUser
SELECT pg_advisory_xact_lock(hashtextextended('withdrawal:' || $1::text, 0))
`

func (r *WithdrawalRepo) LockUser(ctx context.Context, userID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, lockUser, userID)
	return dbError(err)
}

const createWithdrawal = `-- name: CreateWithdrawal
INSERT INTO withdrawals (id, user_id, amount, status, method, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, amount, status, method, details, created_at
`

func (r *WithdrawalRepo) CreateWithdrawal(ctx context.Context, w models.Withdrawal) (models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, createWithdrawal, w.ID, w.UserID, w.Amount, w.Status, w.Method, w.Details, w.CreatedAt)
	withdrawal, err := pgx.CollectOneRow(rows, rowToWithdrawal)
	if err != nil {
		return withdrawal, dbError(err)
	}
	return withdrawal, nil
}

const sumWithdrawals = `-- name: SumWithdrawals
SELECT coalesce(sum(amount), 0) FROM withdrawals
WHERE user_id = $1 AND status = ANY($2)
`

func (r *WithdrawalRepo) SumAmount(ctx context.Context, userID uuid.UUID, statuses []string) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.DB.QueryRow(ctx, sumWithdrawals, userID, statuses).Scan(&sum)
	if err != nil {
		return sum, dbError(err)
	}
	return sum, nil
}

const listWithdrawals = `-- name: ListWithdrawals
SELECT id, user_id, amount, status, method, details, created_at FROM withdrawals
WHERE user_id = $1
ORDER BY created_at DESC
`

func (r *WithdrawalRepo) ListWithdrawals(ctx context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	rows, _ := r.DB.Query(ctx, listWithdrawals, userID)
	withdrawals, err := pgx.CollectRows(rows, rowToWithdrawal)
	if err != nil {
		return nil, dbError(err)
	}
	return withdrawals, nil
}

func rowToWithdrawal(row pgx.CollectableRow) (models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.Status, &w.Method, &w.Details, &w.CreatedAt)
	return w, err
}
