package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/bazaar/internal/models"
)

type RewardRepo struct {
	s *Storage
}

func findReward(v view, e models.RewardEvent) (models.RewardEvent, bool) {
	for _, stored := range scan(v, rewardsOf) {
		if stored.UserID == e.UserID && stored.Reason == e.Reason && stored.SourceID == e.SourceID {
			return stored, true
		}
	}
	return models.RewardEvent{}, false
}

func (r *RewardRepo) EnqueueReward(_ context.Context, e models.RewardEvent) (models.RewardEvent, error) {
	err := r.s.write(func(v view) error {
		if stored, ok := findReward(v, e); ok {
			e = stored
			return nil
		}
		e.DeliveredAt = nil
		e.Attempts = 0
		put(v, rewardsOf, e.ID, e)
		return nil
	})
	return e, err
}

func (r *RewardRepo) ListUndelivered(_ context.Context, limit int) ([]models.RewardEvent, error) {
	var events []models.RewardEvent
	r.s.read(func(v view) {
		for _, e := range scan(v, rewardsOf) {
			if e.DeliveredAt == nil {
				events = append(events, e)
			}
		}
	})

	slices.SortStableFunc(events, func(a, b models.RewardEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

func (r *RewardRepo) MarkDelivered(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.s.write(func(v view) error {
		e, ok := lookup(v, rewardsOf, id)
		if !ok {
			return nil
		}
		if e.DeliveredAt == nil {
			e.DeliveredAt = &at
		}
		e.Attempts++
		put(v, rewardsOf, id, e)
		return nil
	})
}

func (r *RewardRepo) MarkFailed(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(v view) error {
		e, ok := lookup(v, rewardsOf, id)
		if !ok || e.DeliveredAt != nil {
			return nil
		}
		e.Attempts++
		put(v, rewardsOf, id, e)
		return nil
	})
}

func (r *RewardRepo) ApplyPoints(_ context.Context, e models.RewardEvent) (bool, error) {
	applied := false
	err := r.s.write(func(v view) error {
		if _, ok := lookup(v, pointsOf, e.ID); ok {
			return nil
		}
		put(v, pointsOf, e.ID, e)
		applied = true
		return nil
	})
	return applied, err
}

func (r *RewardRepo) SumPoints(_ context.Context, userID uuid.UUID) (int, error) {
	sum := 0
	r.s.read(func(v view) {
		for _, e := range scan(v, pointsOf) {
			if e.UserID == userID {
				sum += e.Points
			}
		}
	})
	return sum, nil
}
