package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tour-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// TxFunc runs against repositories bound to one open transaction.
type TxFunc func(ctx context.Context, repo *Repository) error

// Transactor scopes a unit of work. The transaction is committed when fn
// returns nil and rolled back on every other exit, including panics.
type Transactor interface {
	WithinTx(ctx context.Context, fn TxFunc) error
	// WithinReadTx runs fn in a read-only REPEATABLE READ snapshot.
	WithinReadTx(ctx context.Context, fn TxFunc) error
}

type TxConfig struct {
	MaxRetries  int
	LockTimeout time.Duration
	BaseBackoff time.Duration
}

type pgTransactor struct {
	db  database.PgxIface
	log *zap.Logger
	cfg TxConfig
}

func NewTransactor(db database.PgxIface, log *zap.Logger, cfg TxConfig) Transactor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 20 * time.Millisecond
	}
	return &pgTransactor{
		db:  db,
		log: log.With(zap.String("component", "transactor")),
		cfg: cfg,
	}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn TxFunc) error {
	return t.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
}

func (t *pgTransactor) WithinReadTx(ctx context.Context, fn TxFunc) error {
	return t.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, false, fn)
}

func (t *pgTransactor) run(ctx context.Context, opts pgx.TxOptions, write bool, fn TxFunc) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = t.attempt(ctx, opts, write, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if attempt >= t.cfg.MaxRetries {
			break
		}

		delay := t.cfg.BaseBackoff << attempt
		t.log.Warn("Retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	t.log.Error("Transaction retries exhausted",
		zap.Int("max_retries", t.cfg.MaxRetries),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func (t *pgTransactor) attempt(ctx context.Context, opts pgx.TxOptions, write bool, fn TxFunc) (err error) {
	tx, err := t.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			t.rollback(tx)
			panic(p)
		}
		if err != nil {
			t.rollback(tx)
		}
	}()

	if write && t.cfg.LockTimeout > 0 {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.cfg.LockTimeout.Milliseconds())
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err = fn(ctx, NewRepository(tx, t.log)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *pgTransactor) rollback(tx pgx.Tx) {
	// the caller's ctx may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		t.log.Error("Failed to rollback transaction", zap.Error(err))
	}
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

// IsRetryable reports whether err is a contention failure worth another attempt.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
