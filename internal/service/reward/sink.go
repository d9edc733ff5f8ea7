package reward

import (
	"context"
	"errors"

	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

// Sink receives reward events
// Delivery is at-least-once, so sinks must tolerate the same event more than once
type Sink interface {
	Deliver(ctx context.Context, e models.RewardEvent) error
}

// PointsSink credits points to the user balance kept in storage
type PointsSink struct {
	storage repository.Storage
	logger  logger.Logger
}

func NewPointsSink(storage repository.Storage, l logger.Logger) *PointsSink {
	return &PointsSink{storage: storage, logger: l}
}

func (s *PointsSink) Deliver(ctx context.Context, e models.RewardEvent) error {
	applied, err := s.storage.Reward().ApplyPoints(ctx, e)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("Reward points applied already", "event_id", e.ID)
	}
	return nil
}

// MultiSink delivers event to every sink
// Event counts as delivered only when all sinks accepted it
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, e models.RewardEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Deliver(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
