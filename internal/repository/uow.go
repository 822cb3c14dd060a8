package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbtx is the query surface shared by *pgxpool.Pool and pgx.Tx, so
// repositories work both standalone and inside a unit of work.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TxBeginner starts transactions. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// UnitOfWork scopes repository operations to a single transaction so a
// scrape either lands fully or not at all.
type UnitOfWork struct {
	beginner TxBeginner
	tx       pgx.Tx

	channelStats *ChannelStatsRepository
	messageStats *MessageStatsRepository
}

// NewUnitOfWork creates a unit of work over the given pool.
func NewUnitOfWork(beginner TxBeginner) *UnitOfWork {
	return &UnitOfWork{beginner: beginner}
}

// Begin starts a transaction. Must not be called twice without a
// Commit or Rollback in between.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already in progress")
	}
	tx, err := u.beginner.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	u.tx = tx
	return nil
}

// ChannelStats returns the channel stats repository bound to the
// current transaction, creating it on first use.
func (u *UnitOfWork) ChannelStats() *ChannelStatsRepository {
	if u.channelStats == nil {
		u.channelStats = NewChannelStatsRepository(u.tx)
	}
	return u.channelStats
}

// MessageStats returns the message stats repository bound to the
// current transaction, creating it on first use.
func (u *UnitOfWork) MessageStats() *MessageStatsRepository {
	if u.messageStats == nil {
		u.messageStats = NewMessageStatsRepository(u.tx)
	}
	return u.messageStats
}

// Commit commits the current transaction.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.tx == nil {
		return fmt.Errorf("no transaction in progress")
	}
	err := u.tx.Commit(ctx)
	u.release()
	if err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the current transaction. Safe to call after Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback(ctx)
	u.release()
	if err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Do runs fn inside a transaction: commit on nil error, rollback
// otherwise. The repository cache is cleared on every path.
func (u *UnitOfWork) Do(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	if err := u.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		// no-op after a successful commit
		_ = u.Rollback(ctx)
	}()

	if err := fn(u); err != nil {
		return err
	}
	return u.Commit(ctx)
}

func (u *UnitOfWork) release() {
	u.tx = nil
	u.channelStats = nil
	u.messageStats = nil
}
