package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

// Points granted for marketplace facts
const (
	PointsPurchaseCompleted = 10
	PointsSaleCompleted     = 20
	PointsFiveStarReview    = 5
)

// RewardService records reward facts into the outbox
// Delivery to sinks is done later by Dispatcher
type RewardService struct {
	storage repository.Storage
	logger  logger.Logger
	now     func() time.Time
}

func NewService(storage repository.Storage, l logger.Logger) *RewardService {
	return &RewardService{
		storage: storage,
		logger:  l,
		now:     time.Now,
	}
}

// Enqueue stores reward event using the given storage
// Pass storage of the running transaction to make the reward part of it
func (s *RewardService) Enqueue(ctx context.Context, tx repository.Storage, userID uuid.UUID, points int, reason string, description string, sourceID uuid.UUID) (models.RewardEvent, error) {
	e, err := tx.Reward().EnqueueReward(ctx, models.RewardEvent{
		ID:          uuid.New(),
		UserID:      userID,
		Points:      points,
		Reason:      reason,
		Description: description,
		SourceID:    sourceID,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return e, fmt.Errorf("enqueue reward: %w", err)
	}
	return e, nil
}

// TransactionCompleted rewards both parties of the completed escrow transaction
func (s *RewardService) TransactionCompleted(ctx context.Context, tx repository.Storage, t models.Transaction) error {
	_, err := s.Enqueue(ctx, tx, t.BuyerID, PointsPurchaseCompleted, models.RewardPurchaseCompleted,
		fmt.Sprintf("Purchase completed: transaction %s", t.ID), t.ID)
	if err != nil {
		return err
	}

	_, err = s.Enqueue(ctx, tx, t.SellerID, PointsSaleCompleted, models.RewardSaleCompleted,
		fmt.Sprintf("Sale completed: transaction %s", t.ID), t.ID)
	return err
}

// RecordFiveStarReview rewards seller for the five star review
// Recording the same review twice is a no-op
func (s *RewardService) RecordFiveStarReview(ctx context.Context, sellerID uuid.UUID, reviewID uuid.UUID) (models.RewardEvent, error) {
	e, err := s.Enqueue(ctx, s.storage, sellerID, PointsFiveStarReview, models.RewardFiveStarReview,
		fmt.Sprintf("Five star review %s", reviewID), reviewID)
	if err != nil {
		return e, err
	}

	s.logger.Info("Five star review recorded", "seller_id", sellerID, "review_id", reviewID, "event_id", e.ID)
	return e, nil
}

// Points returns total points credited to user by the points sink
func (s *RewardService) Points(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.storage.Reward().SumPoints(ctx, userID)
}
