package escrow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

// Records reward facts of completed transaction in the given storage
type rewarder interface {
	TransactionCompleted(ctx context.Context, tx repository.Storage, t models.Transaction) error
}

type EscrowService struct {
	storage repository.Storage
	rewards rewarder
	metrics *metrics.Metrics
	logger  logger.Logger
	now     func() time.Time
}

func NewService(storage repository.Storage, rewards rewarder, m *metrics.Metrics, l logger.Logger) *EscrowService {
	return &EscrowService{
		storage: storage,
		rewards: rewards,
		metrics: m,
		logger:  l,
		now:     time.Now,
	}
}

// Create holds buyer payment for the listing
// Listing is locked while checked and updated, so only one active transaction per listing is possible
func (s *EscrowService) Create(ctx context.Context, listingID uuid.UUID, buyerID uuid.UUID, paymentMethod string) (models.Transaction, error) {
	var t models.Transaction

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		l, err := tx.Listing().GetListingForUpdate(ctx, listingID)
		if err != nil {
			return err
		}

		switch {
		case l.OwnerID == buyerID:
			return apperrors.ErrSelfPurchase
		case !l.Purchasable():
			return apperrors.ErrListingNotPurchasable
		}

		now := s.now().UTC()
		commission, net := models.Commission(l.Price)

		t, err = tx.Transaction().CreateTransaction(ctx, models.Transaction{
			ID:            uuid.New(),
			BuyerID:       buyerID,
			SellerID:      l.OwnerID,
			ListingID:     l.ID,
			Amount:        l.Price,
			Commission:    commission,
			NetAmount:     net,
			Status:        models.TransactionHeld,
			PaymentMethod: paymentMethod,
			CreatedAt:     now,
			ModifiedAt:    now,
		})
		if err != nil {
			return err
		}

		_, err = tx.Listing().UpdateStatus(ctx, l.ID, repository.UpdateListingStatusOpts{
			ShippingStatus: models.ShippingToShip,
			PaymentStatus:  models.PaymentPending,
			TransactionID:  &t.ID,
		})
		return err
	})
	if err != nil {
		return models.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.metrics.ObserveEscrowTransition(t.Status)
	s.logger.Info("Transaction created", "transaction_id", t.ID, "listing_id", listingID, "amount", t.Amount.String())
	return t, nil
}

// Ship is called by seller when the item is sent
func (s *EscrowService) Ship(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error) {
	t, err := s.transition(ctx, transactionID, step{
		to: models.TransactionShipped,
		authorize: func(t models.Transaction) error {
			if t.SellerID != callerID {
				return apperrors.ErrNotSeller
			}
			return nil
		},
		listing: repository.UpdateListingStatusOpts{
			ShippingStatus: models.ShippingShipped,
			PaymentStatus:  models.PaymentPending,
		},
	})
	if err != nil {
		return t, fmt.Errorf("ship transaction: %w", err)
	}
	return t, nil
}

// Receive is called by buyer when the item arrived
// Completion releases net amount to the seller and rewards both parties.
// Rewards are recorded on their own savepoint: failure to record them never fails the completion
func (s *EscrowService) Receive(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error) {
	t, err := s.transition(ctx, transactionID, step{
		to: models.TransactionCompleted,
		authorize: func(t models.Transaction) error {
			if t.BuyerID != callerID {
				return apperrors.ErrNotBuyer
			}
			return nil
		},
		listing: repository.UpdateListingStatusOpts{
			ShippingStatus: models.ShippingDelivered,
			PaymentStatus:  models.PaymentCompleted,
		},
		after: func(ctx context.Context, tx repository.Storage, t models.Transaction) {
			err := tx.InTx(ctx, func(tx repository.Storage) error {
				return s.rewards.TransactionCompleted(ctx, tx, t)
			})
			if err != nil {
				s.logger.Error("Failed to record transaction rewards", "error", err, "transaction_id", t.ID)
			}
		},
	})
	if err != nil {
		return t, fmt.Errorf("receive transaction: %w", err)
	}
	return t, nil
}

// Get returns transaction to its buyer or seller
func (s *EscrowService) Get(ctx context.Context, transactionID uuid.UUID, callerID uuid.UUID) (models.Transaction, error) {
	t, err := s.storage.Transaction().GetTransaction(ctx, transactionID)
	if err != nil {
		return t, err
	}
	if t.BuyerID != callerID && t.SellerID != callerID {
		return models.Transaction{}, apperrors.ErrNotParticipant
	}
	return t, nil
}

// step of the escrow state machine
type step struct {
	to        string
	authorize func(t models.Transaction) error
	listing   repository.UpdateListingStatusOpts // listing statuses after the step
	after     func(ctx context.Context, tx repository.Storage, t models.Transaction)
}

// transition moves transaction one status forward
// Transaction row is locked first, then the listing row.
// Caller is checked before the status, so a stranger never learns transaction state
func (s *EscrowService) transition(ctx context.Context, transactionID uuid.UUID, st step) (models.Transaction, error) {
	var t models.Transaction

	err := s.storage.InTx(ctx, func(tx repository.Storage) error {
		current, err := tx.Transaction().GetTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if err := st.authorize(current); err != nil {
			return err
		}
		if next, ok := models.NextStatus(current.Status); !ok || next != st.to {
			return fmt.Errorf("transaction is %s: %w", current.Status, apperrors.ErrWrongTransactionStatus)
		}

		if _, err := tx.Listing().GetListingForUpdate(ctx, current.ListingID); err != nil {
			return err
		}
		opts := st.listing
		opts.TransactionID = &current.ID
		if _, err := tx.Listing().UpdateStatus(ctx, current.ListingID, opts); err != nil {
			return err
		}

		t, err = tx.Transaction().UpdateTransactionStatus(ctx, current.ID, st.to)
		if err != nil {
			return err
		}

		if st.after != nil {
			st.after(ctx, tx, t)
		}
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}

	s.metrics.ObserveEscrowTransition(st.to)
	s.logger.Info("Transaction status changed", "transaction_id", t.ID, "status", t.Status)
	return t, nil
}
