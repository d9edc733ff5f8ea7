package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/repository"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
// Begin on pgx.Tx creates a savepoint, so storages nest
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Storage struct {
	db DBTX
}

func NewStorage(db DBTX) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) Listing() repository.ListingRepo {
	return &ListingRepo{DB: s.db}
}

func (s *Storage) Bid() repository.BidRepo {
	return &BidRepo{DB: s.db}
}

func (s *Storage) Transaction() repository.TransactionRepo {
	return &TransactionRepo{DB: s.db}
}

func (s *Storage) Withdrawal() repository.WithdrawalRepo {
	return &WithdrawalRepo{DB: s.db}
}

func (s *Storage) Reward() repository.RewardRepo {
	return &RewardRepo{DB: s.db}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return dbError(err)
	}

	defer func() {
		switch err {
		case nil:
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = dbError(commitErr)
			}
		default:
			// Use fresh context: the request one may be cancelled already, and the rollback must still happen
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	err = fn(NewStorage(tx))

	return err
}

// dbError wraps error happened while talking to postgres
// Failures that may pass on retry are marked as apperrors.ErrTransient
func dbError(err error) error {
	var pgErr *pgconn.PgError
	var connErr *pgconn.ConnectError

	switch {
	case err == nil:
		return nil
	case errors.As(err, &pgErr):
		switch {
		case pgErr.Code == pgerrcode.SerializationFailure,
			pgErr.Code == pgerrcode.DeadlockDetected,
			pgErr.Code == pgerrcode.LockNotAvailable,
			pgErr.Code == pgerrcode.QueryCanceled,
			pgErr.Code == pgerrcode.AdminShutdown,
			pgerrcode.IsConnectionException(pgErr.Code):
			return apperrors.Transient(err)
		case pgErr.Code == pgerrcode.CheckViolation,
			pgErr.Code == pgerrcode.NumericValueOutOfRange:
			return fmt.Errorf("%w: %w", apperrors.ErrPolicyViolation, err)
		default:
			return fmt.Errorf("db error: %w", err)
		}
	case errors.As(err, &connErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err):
		return apperrors.Transient(err)
	default:
		return fmt.Errorf("db error: %w", err)
	}
}
