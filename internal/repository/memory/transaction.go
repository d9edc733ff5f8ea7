package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/models"
)

type TransactionRepo struct {
	s *Storage
}

func transactionKey(id uuid.UUID) string {
	return "transaction:" + id.String()
}

func isActive(status string) bool {
	return status == models.TransactionHeld || status == models.TransactionShipped
}

func (r *TransactionRepo) CreateTransaction(_ context.Context, t models.Transaction) (models.Transaction, error) {
	err := r.s.write(func(v view) error {
		if isActive(t.Status) {
			for _, other := range scan(v, transactionsOf) {
				if other.ListingID == t.ListingID && isActive(other.Status) {
					return fmt.Errorf("listing has active transaction %s: %w", other.ID, apperrors.ErrListingNotPurchasable)
				}
			}
		}
		put(v, transactionsOf, t.ID, t)
		return nil
	})
	return t, err
}

func (r *TransactionRepo) GetTransaction(_ context.Context, id uuid.UUID) (models.Transaction, error) {
	var (
		t  models.Transaction
		ok bool
	)
	r.s.read(func(v view) {
		t, ok = lookup(v, transactionsOf, id)
	})
	if !ok {
		return t, apperrors.ErrTransactionNotFound
	}
	return t, nil
}

func (r *TransactionRepo) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (models.Transaction, error) {
	if err := r.s.lock(ctx, transactionKey(id)); err != nil {
		return models.Transaction{}, err
	}
	return r.GetTransaction(ctx, id)
}

func (r *TransactionRepo) UpdateTransactionStatus(_ context.Context, id uuid.UUID, status string) (models.Transaction, error) {
	var t models.Transaction
	err := r.s.write(func(v view) error {
		var ok bool
		t, ok = lookup(v, transactionsOf, id)
		if !ok {
			return apperrors.ErrTransactionNotFound
		}
		t.Status = status
		t.ModifiedAt = now()
		put(v, transactionsOf, id, t)
		return nil
	})
	return t, err
}

func (r *TransactionRepo) SumNetAmount(_ context.Context, sellerID uuid.UUID, status string) (decimal.Decimal, error) {
	sum := decimal.Zero
	r.s.read(func(v view) {
		for _, t := range scan(v, transactionsOf) {
			if t.SellerID == sellerID && t.Status == status {
				sum = sum.Add(t.NetAmount)
			}
		}
	})
	return sum, nil
}

func (r *TransactionRepo) SellerExists(_ context.Context, sellerID uuid.UUID) (bool, error) {
	exists := false
	r.s.read(func(v view) {
		for _, t := range scan(v, transactionsOf) {
			if t.SellerID == sellerID {
				exists = true
				return
			}
		}
	})
	return exists, nil
}
