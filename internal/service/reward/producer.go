package reward

import (
	"context"
	"time"

	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

type Producer struct {
	interval   time.Duration
	batchSize  int
	rewardRepo repository.RewardRepo
	inFlight   *inFlight
	logger     logger.Logger
}

func (p *Producer) Produce(ctx context.Context, out chan<- models.RewardEvent) <-chan struct{} {
	idleStopped := make(chan struct{})
	p.logger.Debug("Starting producer", "interval", p.interval, "batch_size", p.batchSize)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("Producer stopped by context")
				return

			case <-ticker.C:
				events, err := p.rewardRepo.ListUndelivered(ctx, p.batchSize)
				if err != nil {
					p.logger.Error("Failed to list undelivered reward events", "error", err)
					continue
				}

				for _, e := range events {
					if !p.inFlight.add(e.ID) {
						continue
					}

					select {
					case <-ctx.Done():
						p.inFlight.done(e.ID)
						p.logger.Debug("Producer stopped by context while sending events")
						return
					case out <- e:
					}
				}
			}
		}
	}()

	return idleStopped
}
