package api

import (
	"time"

	"github.com/blockedby/tgstats/internal/repository"
)

// ScrapeRequest is the POST /scrape body.
type ScrapeRequest struct {
	ChannelIdentifier string `json:"channel_identifier" validate:"required"`
	LimitMessages     int    `json:"limit_messages"`
}

// HealthResponse reports service liveness and session storage state.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	S3Storage   string `json:"s3_storage"`
	SessionFile string `json:"session_file"`
}

// SnapshotResponse is one history entry in GET /stats responses.
type SnapshotResponse struct {
	ID                string    `json:"id"`
	ChannelID         int64     `json:"channel_id"`
	Username          *string   `json:"username,omitempty"`
	Title             string    `json:"title"`
	ScrapedAt         time.Time `json:"scraped_at"`
	SubscribersCount  *int      `json:"subscribers_count"`
	ParticipantsCount *int      `json:"participants_count"`
	Description       *string   `json:"description,omitempty"`
	TotalMessages     int       `json:"total_messages"`
	AvgViews          int       `json:"avg_views"`
	AvgReactions      int       `json:"avg_reactions"`
	AvgForwards       int       `json:"avg_forwards"`
	MessagesAnalyzed  int       `json:"messages_analyzed"`
}

// StatsHistoryResponse is the GET /stats/{channel_id} payload.
type StatsHistoryResponse struct {
	ChannelID int64              `json:"channel_id"`
	History   []SnapshotResponse `json:"history"`
}

// SnapshotFromRepo maps a stored snapshot to its API shape.
func SnapshotFromRepo(s *repository.ChannelSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:                s.ID.String(),
		ChannelID:         s.ChannelID,
		Username:          s.Username,
		Title:             s.Title,
		ScrapedAt:         s.ScrapedAt,
		SubscribersCount:  s.SubscribersCount,
		ParticipantsCount: s.ParticipantsCount,
		Description:       s.Description,
		TotalMessages:     s.TotalMessages,
		AvgViews:          s.AvgViews,
		AvgReactions:      s.AvgReactions,
		AvgForwards:       s.AvgForwards,
		MessagesAnalyzed:  s.MessagesAnalyzed,
	}
}

// SnapshotsFromRepo maps a list of stored snapshots to their API shape.
func SnapshotsFromRepo(snapshots []repository.ChannelSnapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, 0, len(snapshots))
	for i := range snapshots {
		out = append(out, SnapshotFromRepo(&snapshots[i]))
	}
	return out
}
