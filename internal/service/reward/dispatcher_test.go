package reward

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/metrics"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository/memory"
)

// Sink that fails first failures deliveries and records the rest
type flakySink struct {
	mu        sync.Mutex
	failures  int
	delivered map[uuid.UUID]int
}

func (s *flakySink) Deliver(_ context.Context, e models.RewardEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	if s.delivered == nil {
		s.delivered = make(map[uuid.UUID]int)
	}
	s.delivered[e.ID]++
	return nil
}

func (s *flakySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func TestDispatcher(t *testing.T) {
	opts := DispatcherOpts{
		CountWorkers:    3,
		ProduceInterval: 5 * time.Millisecond,
		DeliverTimeout:  time.Second,
		Backoff:         5 * time.Millisecond,
	}

	enqueue := func(t *testing.T, s *RewardService, n int) []models.RewardEvent {
		events := make([]models.RewardEvent, 0, n)
		for range n {
			e, err := s.RecordFiveStarReview(t.Context(), uuid.New(), uuid.New())
			require.NoError(t, err)
			events = append(events, e)
		}
		return events
	}

	t.Run("delivers all and marks delivered", func(t *testing.T) {
		storage := memory.NewStorage()
		s := NewService(storage, logger.NewNoOpLogger())
		events := enqueue(t, s, 10)
		sink := &flakySink{}

		ctx, cancel := context.WithCancel(t.Context())
		stopped := NewDispatcher(storage, sink, opts, metrics.New(), logger.NewNoOpLogger()).Dispatch(ctx)

		require.Eventually(t, func() bool {
			pending, err := storage.Reward().ListUndelivered(t.Context(), 100)
			return err == nil && len(pending) == 0
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		<-stopped

		require.Equal(t, len(events), sink.count())
	})

	t.Run("failed delivery retried later", func(t *testing.T) {
		storage := memory.NewStorage()
		s := NewService(storage, logger.NewNoOpLogger())
		events := enqueue(t, s, 2)
		sink := &flakySink{failures: 3}

		ctx, cancel := context.WithCancel(t.Context())
		stopped := NewDispatcher(storage, sink, opts, nil, logger.NewNoOpLogger()).Dispatch(ctx)

		require.Eventually(t, func() bool {
			return sink.count() == len(events)
		}, 2*time.Second, 5*time.Millisecond)

		cancel()
		<-stopped

		// Failed attempts are recorded on the outbox rows
		// A poll racing with a finished delivery may hand the event out once more, so count is a lower bound
		attempts := 0
		for _, e := range events {
			stored, err := storage.Reward().EnqueueReward(t.Context(), e)
			require.NoError(t, err)
			require.NotNil(t, stored.DeliveredAt)
			attempts += stored.Attempts
		}
		require.GreaterOrEqual(t, attempts, 3+len(events))
	})

	t.Run("points applied once even if delivered twice", func(t *testing.T) {
		storage := memory.NewStorage()
		s := NewService(storage, logger.NewNoOpLogger())
		e := enqueue(t, s, 1)[0]
		sink := NewPointsSink(storage, logger.NewNoOpLogger())

		require.NoError(t, sink.Deliver(t.Context(), e))
		require.NoError(t, sink.Deliver(t.Context(), e))

		points, err := s.Points(t.Context(), e.UserID)
		require.NoError(t, err)
		require.Equal(t, PointsFiveStarReview, points)
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		storage := memory.NewStorage()
		ctx, cancel := context.WithCancel(t.Context())
		stopped := NewDispatcher(storage, &flakySink{}, DispatcherOpts{}, nil, logger.NewNoOpLogger()).Dispatch(ctx)

		cancel()

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("dispatcher did not stop")
		}
	})
}

func TestMultiSink(t *testing.T) {
	e := models.RewardEvent{ID: uuid.New()}
	ok := &flakySink{}
	failing := &flakySink{failures: 1}

	err := MultiSink{ok, failing}.Deliver(t.Context(), e)

	require.Error(t, err)
	require.Equal(t, 1, ok.count(), "other sinks still get the event")

	err = MultiSink{ok, failing}.Deliver(t.Context(), e)
	require.NoError(t, err)
}
