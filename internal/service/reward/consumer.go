package reward

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

type Consumer struct {
	countWorkers   int
	deliverTimeout time.Duration
	backoff        time.Duration

	// After failed delivery workers wait until the time is up, the sink is likely down
	waitUntil atomic.Int64

	sink       Sink
	rewardRepo repository.RewardRepo
	inFlight   *inFlight
	metrics    *metrics.Metrics
	logger     logger.Logger
}

func (c *Consumer) Consume(ctx context.Context, in <-chan models.RewardEvent) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for range c.countWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, in)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan models.RewardEvent) {
	for {
		if waitUntil := time.Unix(0, c.waitUntil.Load()); waitUntil.After(time.Now()) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(waitUntil)):
			}
		}

		select {
		case <-ctx.Done():
			return

		case e, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}
			c.deliver(ctx, e)
			c.inFlight.done(e.ID)
		}
	}
}

func (c *Consumer) deliver(ctx context.Context, e models.RewardEvent) {
	deliverCtx, cancel := context.WithTimeout(ctx, c.deliverTimeout)
	defer cancel()

	err := c.sink.Deliver(deliverCtx, e)
	c.metrics.ObserveRewardDelivery(err)

	if err != nil {
		c.logger.Warn("Failed to deliver reward event", "error", err, "event_id", e.ID, "attempts", e.Attempts+1)
		c.waitUntil.Store(time.Now().Add(c.backoff).UnixNano())

		if err := c.rewardRepo.MarkFailed(ctx, e.ID); err != nil {
			c.logger.Error("Failed to record reward delivery attempt", "error", err, "event_id", e.ID)
		}
		return
	}

	if err := c.rewardRepo.MarkDelivered(ctx, e.ID, time.Now().UTC()); err != nil {
		// Event will be delivered again, sinks tolerate it
		c.logger.Error("Failed to mark reward event delivered", "error", err, "event_id", e.ID)
		return
	}
	c.logger.Debug("Reward event delivered", "event_id", e.ID, "user_id", e.UserID, "points", e.Points)
}
