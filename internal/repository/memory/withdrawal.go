package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/models"
)

type WithdrawalRepo struct {
	s *Storage
}

func (r *WithdrawalRepo) LockUser(ctx context.Context, userID uuid.UUID) error {
	return r.s.lock(ctx, "withdrawal:"+userID.String())
}

func (r *WithdrawalRepo) CreateWithdrawal(_ context.Context, w models.Withdrawal) (models.Withdrawal, error) {
	err := r.s.write(func(v view) error {
		put(v, withdrawalsOf, w.ID, w)
		return nil
	})
	return w, err
}

func (r *WithdrawalRepo) SumAmount(_ context.Context, userID uuid.UUID, statuses []string) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.read(func(v view) {
		for _, w := range scan(v, withdrawalsOf) {
			if w.UserID == userID && slices.Contains(statuses, w.Status) {
				sum = sum.Add(w.Amount)
			}
		}
	})
	return sum, nil
}

func (r *WithdrawalRepo) ListWithdrawals(_ context.Context, userID uuid.UUID) ([]models.Withdrawal, error) {
	var list []models.Withdrawal
	r.s.read(func(v view) {
		for _, w := range scan(v, withdrawalsOf) {
			if w.UserID == userID {
				list = append(list, w)
			}
		}
	})

	slices.SortStableFunc(list, func(a, b models.Withdrawal) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return list, nil
}
