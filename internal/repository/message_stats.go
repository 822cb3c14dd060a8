package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MessageStatsRepository handles message_stats table operations.
type MessageStatsRepository struct {
	db dbtx
}

// NewMessageStatsRepository creates a new message stats repository.
func NewMessageStatsRepository(db dbtx) *MessageStatsRepository {
	return &MessageStatsRepository{db: db}
}

const insertMessageSQL = `
	INSERT INTO message_stats (channel_id, message_id, date, scraped_at,
	                           views, forwards, replies, reactions,
	                           text, media_type, has_media)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`

// Create inserts a message row and fills in its generated ID.
// Text is truncated to the column limit.
func (r *MessageStatsRepository) Create(ctx context.Context, m *MessageRecord) error {
	truncateText(m)

	err := r.db.QueryRow(ctx, insertMessageSQL,
		m.ChannelID, m.MessageID, m.Date, m.ScrapedAt,
		m.Views, m.Forwards, m.Replies, m.Reactions,
		m.Text, m.MediaType, boolToInt(m.HasMedia),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create message record: %w", err)
	}
	return nil
}

// CreateBatch inserts message rows in a single round trip and fills in
// their generated IDs.
func (r *MessageStatsRepository) CreateBatch(ctx context.Context, records []MessageRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range records {
		truncateText(&records[i])
		m := &records[i]
		batch.Queue(insertMessageSQL,
			m.ChannelID, m.MessageID, m.Date, m.ScrapedAt,
			m.Views, m.Forwards, m.Replies, m.Reactions,
			m.Text, m.MediaType, boolToInt(m.HasMedia),
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for i := range records {
		if err := results.QueryRow().Scan(&records[i].ID); err != nil {
			return fmt.Errorf("batch insert message %d: %w", records[i].MessageID, err)
		}
	}
	return nil
}

// GetByID returns a message row by id, or nil when it does not exist.
func (r *MessageStatsRepository) GetByID(ctx context.Context, id uuid.UUID) (*MessageRecord, error) {
	var (
		m        MessageRecord
		hasMedia int
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, channel_id, message_id, date, scraped_at,
		       views, forwards, replies, reactions,
		       text, media_type, has_media
		FROM message_stats
		WHERE id = $1
	`, id).Scan(
		&m.ID, &m.ChannelID, &m.MessageID, &m.Date, &m.ScrapedAt,
		&m.Views, &m.Forwards, &m.Replies, &m.Reactions,
		&m.Text, &m.MediaType, &hasMedia,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message record: %w", err)
	}
	m.HasMedia = hasMedia != 0
	return &m, nil
}

// ListByChannel returns all message rows for a channel. No ordering is
// guaranteed; callers sort.
func (r *MessageStatsRepository) ListByChannel(ctx context.Context, channelID int64) ([]MessageRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, channel_id, message_id, date, scraped_at,
		       views, forwards, replies, reactions,
		       text, media_type, has_media
		FROM message_stats
		WHERE channel_id = $1
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list message records: %w", err)
	}
	defer rows.Close()

	var records []MessageRecord
	for rows.Next() {
		var (
			m        MessageRecord
			hasMedia int
		)
		if err := rows.Scan(
			&m.ID, &m.ChannelID, &m.MessageID, &m.Date, &m.ScrapedAt,
			&m.Views, &m.Forwards, &m.Replies, &m.Reactions,
			&m.Text, &m.MediaType, &hasMedia,
		); err != nil {
			return nil, fmt.Errorf("scan message record: %w", err)
		}
		m.HasMedia = hasMedia != 0
		records = append(records, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message records: %w", err)
	}
	return records, nil
}

// Update rewrites a message row's counters.
func (r *MessageStatsRepository) Update(ctx context.Context, m *MessageRecord) error {
	truncateText(m)

	tag, err := r.db.Exec(ctx, `
		UPDATE message_stats
		SET views = $2, forwards = $3, replies = $4, reactions = $5,
		    text = $6, media_type = $7, has_media = $8
		WHERE id = $1
	`, m.ID, m.Views, m.Forwards, m.Replies, m.Reactions,
		m.Text, m.MediaType, boolToInt(m.HasMedia))
	if err != nil {
		return fmt.Errorf("update message record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("message record %s not found", m.ID)
	}
	return nil
}

// DeleteByID removes a message row.
func (r *MessageStatsRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM message_stats WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete message record: %w", err)
	}
	return nil
}

func truncateText(m *MessageRecord) {
	if m.Text != nil {
		truncated := TruncateRunes(*m.Text, MaxTextLen)
		m.Text = &truncated
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
