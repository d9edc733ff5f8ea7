package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/bazaar/internal/models"
)

type RewardRepo struct {
	DB DBTX
}

const rewardColumns = `id, user_id, points, reason, description, source_id, created_at, delivered_at, attempts`

// Enqueue event; if the same fact is enqueued already return the stored one
const enqueueReward = `-- name: EnqueueReward
WITH insert_event AS (
	INSERT INTO reward_events (` + rewardColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, 0)
	ON CONFLICT (user_id, reason, source_id) DO NOTHING
	RETURNING ` + rewardColumns + `
)
SELECT ` + rewardColumns + ` FROM insert_event
UNION ALL
SELECT ` + rewardColumns + ` FROM reward_events WHERE user_id = $2 AND reason = $4 AND source_id = $6
LIMIT 1
`

func (r *RewardRepo) EnqueueReward(ctx context.Context, e models.RewardEvent) (models.RewardEvent, error) {
	rows, _ := r.DB.Query(ctx, enqueueReward, e.ID, e.UserID, e.Points, e.Reason, e.Description, e.SourceID, e.CreatedAt)
	event, err := pgx.CollectOneRow(rows, rowToRewardEvent)
	if err != nil {
		return event, dbError(err)
	}
	return event, nil
}

const listUndelivered = `-- name: ListUndelivered
SELECT ` + rewardColumns + ` FROM reward_events
WHERE delivered_at IS NULL
ORDER BY created_at
LIMIT $1
`

func (r *RewardRepo) ListUndelivered(ctx context.Context, limit int) ([]models.RewardEvent, error) {
	rows, _ := r.DB.Query(ctx, listUndelivered, limit)
	events, err := pgx.CollectRows(rows, rowToRewardEvent)
	if err != nil {
		return nil, dbError(err)
	}
	return events, nil
}

const markDelivered = `-- name: MarkDelivered
UPDATE reward_events
SET delivered_at = coalesce(delivered_at, $2), attempts = attempts + 1
WHERE id = $1
`

func (r *RewardRepo) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.DB.Exec(ctx, markDelivered, id, at)
	return dbError(err)
}

const markFailed = `-- name: MarkFailed
UPDATE reward_events
SET attempts = attempts + 1
WHERE id = $1 AND delivered_at IS NULL
`

func (r *RewardRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx, markFailed, id)
	return dbError(err)
}

const applyPoints = `-- name: ApplyPoints
INSERT INTO reward_points (event_id, user_id, points, reason)
VALUES ($1, $2, $3, $4)
ON CONFLICT (event_id) DO NOTHING
`

func (r *RewardRepo) ApplyPoints(ctx context.Context, e models.RewardEvent) (bool, error) {
	tag, err := r.DB.Exec(ctx, applyPoints, e.ID, e.UserID, e.Points, e.Reason)
	if err != nil {
		return false, dbError(err)
	}
	return tag.RowsAffected() == 1, nil
}

const sumPoints = `-- name: SumPoints
SELECT coalesce(sum(points), 0) FROM reward_points
WHERE user_id = $1
`

func (r *RewardRepo) SumPoints(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum int
	err := r.DB.QueryRow(ctx, sumPoints, userID).Scan(&sum)
	if err != nil {
		return 0, dbError(err)
	}
	return sum, nil
}

func rowToRewardEvent(row pgx.CollectableRow) (models.RewardEvent, error) {
	var e models.RewardEvent
	err := row.Scan(&e.ID, &e.UserID, &e.Points, &e.Reason, &e.Description, &e.SourceID, &e.CreatedAt, &e.DeliveredAt, &e.Attempts)
	return e, err
}
