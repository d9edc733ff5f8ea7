package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/models"
	"github.com/nkiryanov/bazaar/internal/repository"
)

func newListing() models.Listing {
	return models.Listing{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		Title:          "bicycle",
		Price:          decimal.NewFromInt(100),
		ShippingStatus: models.ShippingWaitingPayment,
		PaymentStatus:  models.PaymentNone,
	}
}

func TestStorage_InTx(t *testing.T) {
	t.Run("writes invisible until commit", func(t *testing.T) {
		s := NewStorage()
		l := newListing()
		committed := make(chan struct{})
		checked := make(chan struct{})

		go func() {
			_ = s.InTx(context.Background(), func(tx repository.Storage) error {
				_, err := tx.Listing().CreateListing(context.Background(), l)
				require.NoError(t, err)

				got, err := tx.Listing().GetListing(context.Background(), l.ID)
				require.NoError(t, err, "own writes are visible inside transaction")
				require.Equal(t, l.ID, got.ID)

				close(committed)
				<-checked
				return nil
			})
		}()

		<-committed
		_, err := s.Listing().GetListing(t.Context(), l.ID)
		require.ErrorIs(t, err, apperrors.ErrListingNotFound, "uncommitted write must not leak")
		close(checked)

		require.Eventually(t, func() bool {
			_, err := s.Listing().GetListing(t.Context(), l.ID)
			return err == nil
		}, time.Second, time.Millisecond)
	})

	t.Run("rollback on error", func(t *testing.T) {
		s := NewStorage()
		l := newListing()
		boom := errors.New("boom")

		err := s.InTx(t.Context(), func(tx repository.Storage) error {
			_, err := tx.Listing().CreateListing(t.Context(), l)
			require.NoError(t, err)
			return boom
		})

		require.ErrorIs(t, err, boom)
		_, err = s.Listing().GetListing(t.Context(), l.ID)
		require.ErrorIs(t, err, apperrors.ErrListingNotFound)
	})

	t.Run("cancelled context rolls back", func(t *testing.T) {
		s := NewStorage()
		l := newListing()
		ctx, cancel := context.WithCancel(t.Context())

		err := s.InTx(ctx, func(tx repository.Storage) error {
			_, err := tx.Listing().CreateListing(ctx, l)
			cancel()
			return err
		})

		require.ErrorIs(t, err, apperrors.ErrTransient)
		_, err = s.Listing().GetListing(t.Context(), l.ID)
		require.ErrorIs(t, err, apperrors.ErrListingNotFound)
	})

	t.Run("lock wait aborted by context is transient", func(t *testing.T) {
		s := NewStorage()
		l := newListing()
		_, err := s.Listing().CreateListing(t.Context(), l)
		require.NoError(t, err)

		locked := make(chan struct{})
		release := make(chan struct{})
		go func() {
			_ = s.InTx(context.Background(), func(tx repository.Storage) error {
				_, err := tx.Listing().GetListingForUpdate(context.Background(), l.ID)
				require.NoError(t, err)
				close(locked)
				<-release
				return nil
			})
		}()
		<-locked
		defer close(release)

		ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
		defer cancel()
		err = s.InTx(ctx, func(tx repository.Storage) error {
			_, err := tx.Listing().GetListingForUpdate(ctx, l.ID)
			return err
		})

		require.ErrorIs(t, err, apperrors.ErrTransient)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("lock is reentrant within transaction", func(t *testing.T) {
		s := NewStorage()
		l := newListing()
		_, err := s.Listing().CreateListing(t.Context(), l)
		require.NoError(t, err)

		err = s.InTx(t.Context(), func(tx repository.Storage) error {
			if _, err := tx.Listing().GetListingForUpdate(t.Context(), l.ID); err != nil {
				return err
			}
			_, err := tx.Listing().GetListingForUpdate(t.Context(), l.ID)
			return err
		})

		require.NoError(t, err)
	})

	t.Run("failed nested transaction rolls back own writes only", func(t *testing.T) {
		s := NewStorage()
		outer, inner := newListing(), newListing()
		boom := errors.New("boom")

		err := s.InTx(t.Context(), func(tx repository.Storage) error {
			if _, err := tx.Listing().CreateListing(t.Context(), outer); err != nil {
				return err
			}

			err := tx.InTx(t.Context(), func(nested repository.Storage) error {
				_, err := nested.Reward().EnqueueReward(t.Context(), models.RewardEvent{
					ID: uuid.New(), UserID: uuid.New(), Points: 10, Reason: models.RewardPurchaseCompleted, SourceID: uuid.New(),
				})
				require.NoError(t, err)
				_, err = nested.Listing().CreateListing(t.Context(), inner)
				require.NoError(t, err)
				return boom
			})
			require.ErrorIs(t, err, boom)

			_, err = tx.Listing().GetListing(t.Context(), inner.ID)
			require.ErrorIs(t, err, apperrors.ErrListingNotFound, "outer transaction must not see rolled back writes")
			return nil
		})
		require.NoError(t, err)

		_, err = s.Listing().GetListing(t.Context(), outer.ID)
		require.NoError(t, err, "outer writes are committed")
		_, err = s.Listing().GetListing(t.Context(), inner.ID)
		require.ErrorIs(t, err, apperrors.ErrListingNotFound)

		events, err := s.Reward().ListUndelivered(t.Context(), 10)
		require.NoError(t, err)
		require.Empty(t, events, "half written rewards must be discarded")
	})

	t.Run("succeeded nested transaction commits with outer", func(t *testing.T) {
		s := NewStorage()
		l := newListing()

		err := s.InTx(t.Context(), func(tx repository.Storage) error {
			return tx.InTx(t.Context(), func(nested repository.Storage) error {
				_, err := nested.Listing().CreateListing(t.Context(), l)
				return err
			})
		})
		require.NoError(t, err)

		_, err = s.Listing().GetListing(t.Context(), l.ID)
		require.NoError(t, err)
	})

	t.Run("failed nested transaction releases its locks", func(t *testing.T) {
		s := NewStorage()
		l := newListing()
		_, err := s.Listing().CreateListing(t.Context(), l)
		require.NoError(t, err)

		err = s.InTx(t.Context(), func(tx repository.Storage) error {
			_ = tx.InTx(t.Context(), func(nested repository.Storage) error {
				_, err := nested.Listing().GetListingForUpdate(t.Context(), l.ID)
				require.NoError(t, err)
				return errors.New("boom")
			})

			// Outer transaction is still running, but the listing is free for others
			ctx, cancel := context.WithTimeout(t.Context(), time.Second)
			defer cancel()
			done := make(chan error, 1)
			go func() {
				done <- s.InTx(ctx, func(other repository.Storage) error {
					_, err := other.Listing().GetListingForUpdate(ctx, l.ID)
					return err
				})
			}()
			return <-done
		})
		require.NoError(t, err)
	})
}

func TestStorage_Locks(t *testing.T) {
	// Runs fn concurrently in n transactions that lock key and reports the peak of simultaneous holders
	peak := func(t *testing.T, n int, lock func(tx repository.Storage, i int) error) int32 {
		s := NewStorage()
		var inside, maxInside atomic.Int32
		var wg sync.WaitGroup

		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.InTx(context.Background(), func(tx repository.Storage) error {
					if err := lock(tx, i); err != nil {
						return err
					}
					cur := inside.Add(1)
					for {
						prev := maxInside.Load()
						if cur <= prev || maxInside.CompareAndSwap(prev, cur) {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
					inside.Add(-1)
					return nil
				})
				require.NoError(t, err)
			}()
		}
		wg.Wait()
		return maxInside.Load()
	}

	t.Run("same user serialized", func(t *testing.T) {
		user := uuid.New()

		got := peak(t, 5, func(tx repository.Storage, _ int) error {
			return tx.Withdrawal().LockUser(context.Background(), user)
		})

		require.EqualValues(t, 1, got)
	})

	t.Run("different users do not contend", func(t *testing.T) {
		users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
		ready := sync.WaitGroup{}
		ready.Add(len(users))

		got := peak(t, len(users), func(tx repository.Storage, i int) error {
			if err := tx.Withdrawal().LockUser(context.Background(), users[i]); err != nil {
				return err
			}
			// Every holder waits for the others, a shared lock would deadlock here
			ready.Done()
			ready.Wait()
			return nil
		})

		require.EqualValues(t, len(users), got)
	})
}

func TestStorage_Repos(t *testing.T) {
	ctx := t.Context()

	t.Run("bids newest first", func(t *testing.T) {
		s := NewStorage()
		listingID := uuid.New()
		at := time.Now()
		older := models.Bid{ID: uuid.New(), ListingID: listingID, Amount: decimal.NewFromInt(10), CreatedAt: at}
		newer := models.Bid{ID: uuid.New(), ListingID: listingID, Amount: decimal.NewFromInt(20), CreatedAt: at.Add(time.Second)}
		other := models.Bid{ID: uuid.New(), ListingID: uuid.New(), Amount: decimal.NewFromInt(30), CreatedAt: at}

		for _, b := range []models.Bid{older, newer, other} {
			_, err := s.Bid().CreateBid(ctx, b)
			require.NoError(t, err)
		}

		bids, err := s.Bid().ListBids(ctx, listingID)

		require.NoError(t, err)
		require.Equal(t, []models.Bid{newer, older}, bids)
	})

	t.Run("one active transaction per listing", func(t *testing.T) {
		s := NewStorage()
		listingID := uuid.New()
		first := models.Transaction{ID: uuid.New(), ListingID: listingID, Status: models.TransactionHeld}

		_, err := s.Transaction().CreateTransaction(ctx, first)
		require.NoError(t, err)

		_, err = s.Transaction().CreateTransaction(ctx, models.Transaction{ID: uuid.New(), ListingID: listingID, Status: models.TransactionHeld})
		require.ErrorIs(t, err, apperrors.ErrListingNotPurchasable)

		_, err = s.Transaction().UpdateTransactionStatus(ctx, first.ID, models.TransactionCompleted)
		require.NoError(t, err)

		_, err = s.Transaction().CreateTransaction(ctx, models.Transaction{ID: uuid.New(), ListingID: listingID, Status: models.TransactionHeld})
		require.NoError(t, err, "completed transaction does not block")
	})

	t.Run("withdrawal sums", func(t *testing.T) {
		s := NewStorage()
		user := uuid.New()
		for _, status := range []string{models.WithdrawalPending, models.WithdrawalApproved, models.WithdrawalRejected} {
			_, err := s.Withdrawal().CreateWithdrawal(ctx, models.Withdrawal{ID: uuid.New(), UserID: user, Amount: decimal.NewFromInt(100), Status: status})
			require.NoError(t, err)
		}

		sum, err := s.Withdrawal().SumAmount(ctx, user, models.WithdrawalOutstanding)

		require.NoError(t, err)
		require.True(t, sum.Equal(decimal.NewFromInt(200)), "got %s", sum)
	})

	t.Run("reward enqueue and points are idempotent", func(t *testing.T) {
		s := NewStorage()
		e := models.RewardEvent{ID: uuid.New(), UserID: uuid.New(), Points: 20, Reason: models.RewardSaleCompleted, SourceID: uuid.New(), CreatedAt: time.Now()}

		_, err := s.Reward().EnqueueReward(ctx, e)
		require.NoError(t, err)
		dup := e
		dup.ID = uuid.New()
		stored, err := s.Reward().EnqueueReward(ctx, dup)
		require.NoError(t, err)
		require.Equal(t, e.ID, stored.ID)

		applied, err := s.Reward().ApplyPoints(ctx, e)
		require.NoError(t, err)
		require.True(t, applied)
		applied, err = s.Reward().ApplyPoints(ctx, e)
		require.NoError(t, err)
		require.False(t, applied)

		points, err := s.Reward().SumPoints(ctx, e.UserID)
		require.NoError(t, err)
		require.Equal(t, 20, points)

		require.NoError(t, s.Reward().MarkDelivered(ctx, e.ID, time.Now()))
		pending, err := s.Reward().ListUndelivered(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("concurrent enqueue of same fact keeps one", func(t *testing.T) {
		s := NewStorage()
		user, source := uuid.New(), uuid.New()
		var wg sync.WaitGroup

		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.InTx(context.Background(), func(tx repository.Storage) error {
					_, err := tx.Reward().EnqueueReward(context.Background(), models.RewardEvent{
						ID: uuid.New(), UserID: user, Points: 10, Reason: models.RewardPurchaseCompleted, SourceID: source, CreatedAt: time.Now(),
					})
					return err
				})
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		pending, err := s.Reward().ListUndelivered(ctx, 100)
		require.NoError(t, err)
		require.Len(t, pending, 1)
	})
}
