package reward

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

const (
	defaultCountWorkers    = 4                // Number of workers delivering events
	defaultProduceInterval = 5 * time.Second  // Interval for polling the outbox
	defaultBatchSize       = 100              // Events fetched per poll
	defaultDeliverTimeout  = 10 * time.Second // Time limit of one delivery
	defaultBackoff         = 2 * time.Second  // Pause of workers after failed delivery
)

type DispatcherOpts struct {
	CountWorkers    int
	ProduceInterval time.Duration
	BatchSize       int
	DeliverTimeout  time.Duration
	Backoff         time.Duration
}

// Dispatcher delivers outbox reward events to the sink
//
// Producer polls undelivered events and consumer workers deliver them.
// Failed events stay in the outbox and are picked up by a later poll
type Dispatcher struct {
	consumer *Consumer
	producer *Producer
	logger   logger.Logger
}

func NewDispatcher(storage repository.Storage, sink Sink, opts DispatcherOpts, m *metrics.Metrics, l logger.Logger) *Dispatcher {
	if opts.CountWorkers <= 0 {
		opts.CountWorkers = defaultCountWorkers
	}
	if opts.ProduceInterval <= 0 {
		opts.ProduceInterval = defaultProduceInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.DeliverTimeout <= 0 {
		opts.DeliverTimeout = defaultDeliverTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}

	pending := newInFlight()
	l = l.With("component", "reward_dispatcher")

	return &Dispatcher{
		consumer: &Consumer{
			countWorkers:   opts.CountWorkers,
			deliverTimeout: opts.DeliverTimeout,
			backoff:        opts.Backoff,
			sink:           sink,
			rewardRepo:     storage.Reward(),
			inFlight:       pending,
			metrics:        m,
			logger:         l,
		},
		producer: &Producer{
			interval:   opts.ProduceInterval,
			batchSize:  opts.BatchSize,
			rewardRepo: storage.Reward(),
			inFlight:   pending,
			logger:     l,
		},
		logger: l,
	}
}

// Dispatch runs until ctx is done
// Returned channel is closed when producer and all workers stopped
func (d *Dispatcher) Dispatch(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	eventChan := make(chan models.RewardEvent)

	producerStopped := d.producer.Produce(ctx, eventChan)
	consumerStopped := d.consumer.Consume(ctx, eventChan)

	go func() {
		defer close(idleStopped)
		<-producerStopped
		close(eventChan)
		<-consumerStopped
		d.logger.Debug("Dispatcher stopped")
	}()

	return idleStopped
}

// inFlight is the set of events handed to workers but not processed yet
// Producer skips them so slow delivery does not duplicate work
type inFlight struct {
	mu  sync.Mutex
	ids map[uuid.UUID]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{ids: make(map[uuid.UUID]struct{})}
}

// add returns false if the id is in flight already
func (f *inFlight) add(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inFlight) done(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
}
