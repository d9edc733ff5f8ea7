package earnings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

// EarningsService is the seller ledger
// Balance is never stored: it is computed from completed transactions and withdrawals on every call
type EarningsService struct {
	storage repository.Storage
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time
}

func NewService(storage repository.Storage, m *metrics.Metrics, l logger.Logger) *EarningsService {
	return &EarningsService{
		storage: storage,
		metrics: m,
		logger:  l,
		now:     time.Now,
	}
}

// Balance returns seller ledger
// Seller is known if they own a listing or sold something
func (s *EarningsService) Balance(ctx context.Context, sellerID uuid.UUID) (models.Balance, error) {
	known, err := s.sellerExists(ctx, sellerID)
	if err != nil {
		return models.Balance{}, err
	}
	if !known {
		return models.Balance{}, apperrors.ErrSellerNotFound
	}
	return balance(ctx, s.storage, sellerID)
}

// AvailableBalance is what seller may withdraw now
func (s *EarningsService) AvailableBalance(ctx context.Context, sellerID uuid.UUID) (decimal.Decimal, error) {
	b, err := s.Balance(ctx, sellerID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Available(), nil
}

// RequestWithdrawal reserves amount of seller earnings for payout
//
// Balance check and insert run under per-seller lock, so concurrent requests
// of one seller are checked one by one and never overdraw
func (s *EarningsService) RequestWithdrawal(ctx context.Context, sellerID uuid.UUID, amount decimal.Decimal, method string, details string) (w models.Withdrawal, err error) {
	defer func() { s.metrics.ObserveWithdrawal(err) }()

	switch {
	case !amount.IsPositive() || !models.IsMoney(amount):
		return w, apperrors.ErrInvalidAmount
	case strings.TrimSpace(method) == "" || strings.TrimSpace(details) == "":
		return w, apperrors.ErrWithdrawalFieldsMissing
	}

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		if err := tx.Withdrawal().LockUser(ctx, sellerID); err != nil {
			return err
		}

		b, err := balance(ctx, tx, sellerID)
		if err != nil {
			return err
		}
		if available := b.Available(); amount.GreaterThan(available) {
			return apperrors.NewThresholdError(apperrors.ErrInsufficientFunds, available)
		}

		w, err = tx.Withdrawal().CreateWithdrawal(ctx, models.Withdrawal{
			ID:        uuid.New(),
			UserID:    sellerID,
			Amount:    amount,
			Status:    models.WithdrawalPending,
			Method:    method,
			Details:   details,
			CreatedAt: s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return models.Withdrawal{}, fmt.Errorf("request withdrawal: %w", err)
	}

	s.logger.Info("Withdrawal requested", "withdrawal_id", w.ID, "user_id", sellerID, "amount", amount.String())
	return w, nil
}

// ListWithdrawals returns seller withdrawals, newest first
func (s *EarningsService) ListWithdrawals(ctx context.Context, sellerID uuid.UUID) ([]models.Withdrawal, error) {
	return s.storage.Withdrawal().ListWithdrawals(ctx, sellerID)
}

func (s *EarningsService) sellerExists(ctx context.Context, sellerID uuid.UUID) (bool, error) {
	owns, err := s.storage.Listing().OwnerExists(ctx, sellerID)
	if err != nil || owns {
		return owns, err
	}
	return s.storage.Transaction().SellerExists(ctx, sellerID)
}

func balance(ctx context.Context, storage repository.Storage, sellerID uuid.UUID) (models.Balance, error) {
	earned, err := storage.Transaction().SumNetAmount(ctx, sellerID, models.TransactionCompleted)
	if err != nil {
		return models.Balance{}, err
	}

	outstanding, err := storage.Withdrawal().SumAmount(ctx, sellerID, models.WithdrawalOutstanding)
	if err != nil {
		return models.Balance{}, err
	}

	return models.Balance{UserID: sellerID, Earned: earned, Outstanding: outstanding}, nil
}
