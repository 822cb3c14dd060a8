// Package scraper orchestrates a channel scrape end to end: resolve,
// fetch, aggregate, persist.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/telegram"
)

// Defaults applied when the caller does not specify a limit.
const (
	DefaultScrapeLimit  = 100
	DefaultHistoryLimit = 10
)

// TelegramClient defines the telegram operations the scraper needs.
type TelegramClient interface {
	Resolve(ctx context.Context, identifier string) (*telegram.Channel, error)
	FullInfo(ctx context.Context, channel *telegram.Channel) (*telegram.FullInfo, error)
	RecentMessages(ctx context.Context, channel *telegram.Channel, limit int) ([]telegram.Message, error)
}

// Storage persists scrape results and serves history reads.
type Storage interface {
	SaveScrape(ctx context.Context, snapshot *repository.ChannelSnapshot, records []repository.MessageRecord) error
	History(ctx context.Context, channelID int64, limit int) ([]repository.ChannelSnapshot, error)
}

// SessionUploader pushes the telegram session to durable storage.
type SessionUploader interface {
	UploadSession(ctx context.Context) bool
}

// EventPublisher publishes scrape lifecycle events.
type EventPublisher interface {
	PublishScrapeCompleted(ctx context.Context, event ScrapeCompletedEvent) error
}

// ScrapeCompletedEvent announces a finished scrape on the bus.
type ScrapeCompletedEvent struct {
	SnapshotID       uuid.UUID `json:"snapshot_id"`
	ChannelID        int64     `json:"channel_id"`
	Username         *string   `json:"username,omitempty"`
	MessagesAnalyzed int       `json:"messages_analyzed"`
	ScrapedAt        time.Time `json:"scraped_at"`
}

// MessageStats is the per-post payload returned from a scrape.
type MessageStats struct {
	MessageID int            `json:"message_id"`
	Date      time.Time      `json:"date"`
	Views     *int           `json:"views"`
	Forwards  *int           `json:"forwards"`
	Replies   int            `json:"replies"`
	Reactions map[string]int `json:"reactions,omitempty"`
	HasMedia  bool           `json:"has_media"`
	MediaType string         `json:"media_type,omitempty"`
	Text      string         `json:"text"`
}

// ScrapeResult is the full outcome of one scrape. Averages keep full
// precision here; the persisted snapshot floors them.
type ScrapeResult struct {
	SnapshotID        uuid.UUID      `json:"snapshot_id"`
	ChannelID         int64          `json:"channel_id"`
	Username          *string        `json:"username,omitempty"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	SubscribersCount  *int           `json:"subscribers_count"`
	ParticipantsCount *int           `json:"participants_count"`
	ScrapedAt         time.Time      `json:"scraped_at"`
	TotalMessages     int            `json:"total_messages"`
	AvgViews          float64        `json:"avg_views"`
	AvgReactions      float64        `json:"avg_reactions"`
	AvgForwards       float64        `json:"avg_forwards"`
	MessagesAnalyzed  int            `json:"messages_analyzed"`
	Messages          []MessageStats `json:"messages"`
}

// Service orchestrates the scraping process.
type Service struct {
	tgClient  TelegramClient
	storage   Storage
	session   SessionUploader
	publisher EventPublisher
	log       *logger.Logger

	now func() time.Time
}

// NewService creates a new scraper service. publisher may be nil.
func NewService(tgClient TelegramClient, storage Storage, session SessionUploader, publisher EventPublisher) *Service {
	return &Service{
		tgClient:  tgClient,
		storage:   storage,
		session:   session,
		publisher: publisher,
		log:       logger.Get(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Scrape fetches the newest messages of a channel, aggregates their
// engagement and persists everything in one transaction.
func (s *Service) Scrape(ctx context.Context, identifier string, limit int) (*ScrapeResult, error) {
	if limit <= 0 {
		limit = DefaultScrapeLimit
	}

	channel, err := s.tgClient.Resolve(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("resolve channel: %w", err)
	}

	s.log.Info().
		Int64("channel_id", channel.ID).
		Str("title", channel.Title).
		Int("limit", limit).
		Msg("scraper: starting scrape")

	// extended profile is best-effort, the entity already carries the basics
	var description string
	subscribers := channel.ParticipantsCount
	if full, err := s.tgClient.FullInfo(ctx, channel); err != nil {
		s.log.Warn().Err(err).Int64("channel_id", channel.ID).Msg("scraper: full channel info unavailable")
	} else {
		description = full.About
		if full.ParticipantsCount != nil {
			subscribers = full.ParticipantsCount
		}
	}

	messages, err := s.tgClient.RecentMessages(ctx, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	agg := aggregateMessages(messages)
	scrapedAt := s.now()

	snapshot := buildSnapshot(channel, description, subscribers, agg, messages, scrapedAt)
	records := buildRecords(channel.ID, messages, scrapedAt)

	if err := s.storage.SaveScrape(ctx, snapshot, records); err != nil {
		return nil, fmt.Errorf("persist scrape: %w", err)
	}

	// auth key may have rotated during the scrape
	if s.session != nil {
		s.session.UploadSession(ctx)
	}

	s.publishCompleted(ctx, snapshot)

	s.log.Info().
		Int64("channel_id", channel.ID).
		Int("messages", agg.MessagesAnalyzed).
		Msg("scraper: scrape completed")

	return buildResult(snapshot, channel, description, agg, messages), nil
}

// History returns up to limit snapshots for a channel, newest first.
func (s *Service) History(ctx context.Context, channelID int64, limit int) ([]repository.ChannelSnapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return s.storage.History(ctx, channelID, limit)
}

func (s *Service) publishCompleted(ctx context.Context, snapshot *repository.ChannelSnapshot) {
	if s.publisher == nil {
		return
	}
	event := ScrapeCompletedEvent{
		SnapshotID:       snapshot.ID,
		ChannelID:        snapshot.ChannelID,
		Username:         snapshot.Username,
		MessagesAnalyzed: snapshot.MessagesAnalyzed,
		ScrapedAt:        snapshot.ScrapedAt,
	}
	if err := s.publisher.PublishScrapeCompleted(ctx, event); err != nil {
		s.log.Warn().Err(err).Msg("scraper: failed to publish scrape event")
	}
}

func buildSnapshot(channel *telegram.Channel, description string, subscribers *int, agg Aggregate, messages []telegram.Message, scrapedAt time.Time) *repository.ChannelSnapshot {
	snapshot := &repository.ChannelSnapshot{
		ChannelID: channel.ID,
		Title:     channel.Title,
		ScrapedAt: scrapedAt,

		SubscribersCount:  subscribers,
		ParticipantsCount: channel.ParticipantsCount,

		TotalMessages: len(messages),
		// floored at persist time, the API keeps the full precision
		AvgViews:         int(agg.AvgViews),
		AvgReactions:     int(agg.AvgReactions),
		AvgForwards:      int(agg.AvgForwards),
		MessagesAnalyzed: agg.MessagesAnalyzed,

		RecentActivity: &repository.ActivityRecap{
			LastScrape:    scrapedAt,
			MessagesCount: len(messages),
		},
	}
	if channel.Username != "" {
		username := channel.Username
		snapshot.Username = &username
	}
	if description != "" {
		snapshot.Description = &description
	}
	return snapshot
}

func buildRecords(channelID int64, messages []telegram.Message, scrapedAt time.Time) []repository.MessageRecord {
	records := make([]repository.MessageRecord, 0, len(messages))
	for _, m := range messages {
		record := repository.MessageRecord{
			ChannelID: channelID,
			MessageID: int64(m.ID),
			Date:      m.Date,
			ScrapedAt: scrapedAt,
			Views:     m.Views,
			Forwards:  m.Forwards,
			Replies:   m.Replies,
			Reactions: m.Reactions,
			HasMedia:  m.HasMedia,
		}
		if m.Text != "" {
			text := m.Text
			record.Text = &text
		}
		if m.MediaType != "" {
			mediaType := m.MediaType
			record.MediaType = &mediaType
		}
		records = append(records, record)
	}
	return records
}

func buildResult(snapshot *repository.ChannelSnapshot, channel *telegram.Channel, description string, agg Aggregate, messages []telegram.Message) *ScrapeResult {
	result := &ScrapeResult{
		SnapshotID:        snapshot.ID,
		ChannelID:         channel.ID,
		Username:          snapshot.Username,
		Title:             channel.Title,
		Description:       description,
		SubscribersCount:  snapshot.SubscribersCount,
		ParticipantsCount: snapshot.ParticipantsCount,
		ScrapedAt:         snapshot.ScrapedAt,
		TotalMessages:     snapshot.TotalMessages,
		AvgViews:          agg.AvgViews,
		AvgReactions:      agg.AvgReactions,
		AvgForwards:       agg.AvgForwards,
		MessagesAnalyzed:  agg.MessagesAnalyzed,
		Messages:          make([]MessageStats, 0, len(messages)),
	}
	for _, m := range messages {
		result.Messages = append(result.Messages, MessageStats{
			MessageID: m.ID,
			Date:      m.Date,
			Views:     m.Views,
			Forwards:  m.Forwards,
			Replies:   m.Replies,
			Reactions: m.Reactions,
			HasMedia:  m.HasMedia,
			MediaType: m.MediaType,
			Text:      m.Text,
		})
	}
	return result
}
