package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChannelStatsRepository handles channel_stats table operations.
type ChannelStatsRepository struct {
	db dbtx
}

// NewChannelStatsRepository creates a new channel stats repository.
func NewChannelStatsRepository(db dbtx) *ChannelStatsRepository {
	return &ChannelStatsRepository{db: db}
}

// Create inserts a snapshot and fills in its generated ID.
// Description is truncated to the column limit.
func (r *ChannelStatsRepository) Create(ctx context.Context, s *ChannelSnapshot) error {
	if s.Description != nil {
		truncated := TruncateRunes(*s.Description, MaxDescriptionLen)
		s.Description = &truncated
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO channel_stats (channel_id, username, title, scraped_at,
		                           subscribers_count, participants_count, description,
		                           total_messages, avg_views, avg_reactions, avg_forwards,
		                           messages_analyzed, recent_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`, s.ChannelID, s.Username, s.Title, s.ScrapedAt,
		s.SubscribersCount, s.ParticipantsCount, s.Description,
		s.TotalMessages, s.AvgViews, s.AvgReactions, s.AvgForwards,
		s.MessagesAnalyzed, s.RecentActivity,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create channel snapshot: %w", err)
	}
	return nil
}

// GetByID returns a snapshot by id, or nil when it does not exist.
func (r *ChannelStatsRepository) GetByID(ctx context.Context, id uuid.UUID) (*ChannelSnapshot, error) {
	var s ChannelSnapshot
	err := r.db.QueryRow(ctx, `
		SELECT id, channel_id, username, title, scraped_at,
		       subscribers_count, participants_count, description,
		       total_messages, avg_views, avg_reactions, avg_forwards,
		       messages_analyzed, recent_activity
		FROM channel_stats
		WHERE id = $1
	`, id).Scan(
		&s.ID, &s.ChannelID, &s.Username, &s.Title, &s.ScrapedAt,
		&s.SubscribersCount, &s.ParticipantsCount, &s.Description,
		&s.TotalMessages, &s.AvgViews, &s.AvgReactions, &s.AvgForwards,
		&s.MessagesAnalyzed, &s.RecentActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel snapshot: %w", err)
	}
	return &s, nil
}

// ListByChannel returns all snapshots for a channel. No ordering is
// guaranteed; callers sort.
func (r *ChannelStatsRepository) ListByChannel(ctx context.Context, channelID int64) ([]ChannelSnapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, channel_id, username, title, scraped_at,
		       subscribers_count, participants_count, description,
		       total_messages, avg_views, avg_reactions, avg_forwards,
		       messages_analyzed, recent_activity
		FROM channel_stats
		WHERE channel_id = $1
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list channel snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []ChannelSnapshot
	for rows.Next() {
		var s ChannelSnapshot
		if err := rows.Scan(
			&s.ID, &s.ChannelID, &s.Username, &s.Title, &s.ScrapedAt,
			&s.SubscribersCount, &s.ParticipantsCount, &s.Description,
			&s.TotalMessages, &s.AvgViews, &s.AvgReactions, &s.AvgForwards,
			&s.MessagesAnalyzed, &s.RecentActivity,
		); err != nil {
			return nil, fmt.Errorf("scan channel snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel snapshots: %w", err)
	}
	return snapshots, nil
}

// Update rewrites a snapshot's mutable fields.
func (r *ChannelStatsRepository) Update(ctx context.Context, s *ChannelSnapshot) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE channel_stats
		SET username = $2, title = $3, subscribers_count = $4,
		    participants_count = $5, description = $6, total_messages = $7,
		    avg_views = $8, avg_reactions = $9, avg_forwards = $10,
		    messages_analyzed = $11, recent_activity = $12
		WHERE id = $1
	`, s.ID, s.Username, s.Title, s.SubscribersCount,
		s.ParticipantsCount, s.Description, s.TotalMessages,
		s.AvgViews, s.AvgReactions, s.AvgForwards,
		s.MessagesAnalyzed, s.RecentActivity)
	if err != nil {
		return fmt.Errorf("update channel snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel snapshot %s not found", s.ID)
	}
	return nil
}

// DeleteByID removes a snapshot.
func (r *ChannelStatsRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM channel_stats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete channel snapshot: %w", err)
	}
	return nil
}
