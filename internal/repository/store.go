package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the high-level persistence surface the scraper uses.
// Writes go through a unit of work; reads query the pool directly.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveScrape persists one scrape atomically: the channel snapshot and
// all of its message rows land in a single transaction.
func (s *Store) SaveScrape(ctx context.Context, snapshot *ChannelSnapshot, records []MessageRecord) error {
	uow := NewUnitOfWork(s.pool)
	err := uow.Do(ctx, func(uow *UnitOfWork) error {
		if err := uow.ChannelStats().Create(ctx, snapshot); err != nil {
			return err
		}
		return uow.MessageStats().CreateBatch(ctx, records)
	})
	if err != nil {
		return fmt.Errorf("save scrape: %w", err)
	}
	return nil
}

// History returns up to limit snapshots for a channel, newest first.
func (s *Store) History(ctx context.Context, channelID int64, limit int) ([]ChannelSnapshot, error) {
	snapshots, err := NewChannelStatsRepository(s.pool).ListByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	sortSnapshotsDesc(snapshots)
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}

// sortSnapshotsDesc orders snapshots by scraped_at, newest first.
func sortSnapshotsDesc(snapshots []ChannelSnapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].ScrapedAt.After(snapshots[j].ScrapedAt)
	})
}
