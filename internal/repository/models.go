// Package repository provides transactional persistence for scraped
// channel statistics.
package repository

import (
	"time"

	"github.com/google/uuid"
)

// Column width limits enforced at persist time.
const (
	MaxDescriptionLen = 500
	MaxTextLen        = 1000
)

// ChannelSnapshot is one point-in-time aggregate row for a channel.
type ChannelSnapshot struct {
	ID        uuid.UUID
	ChannelID int64
	Username  *string
	Title     string
	ScrapedAt time.Time

	SubscribersCount  *int
	ParticipantsCount *int
	Description       *string

	TotalMessages    int
	AvgViews         int
	AvgReactions     int
	AvgForwards      int
	MessagesAnalyzed int

	RecentActivity *ActivityRecap
}

// ActivityRecap is the small recap blob stored alongside the snapshot:
// when the scrape ran and how many messages it covered.
type ActivityRecap struct {
	LastScrape    time.Time `json:"last_scrape"`
	MessagesCount int       `json:"messages_count"`
}

// MessageRecord is one scraped post row.
type MessageRecord struct {
	ID        uuid.UUID
	ChannelID int64
	MessageID int64
	Date      time.Time
	ScrapedAt time.Time

	Views     *int
	Forwards  *int
	Replies   int
	Reactions map[string]int

	Text      *string
	MediaType *string
	HasMedia  bool
}

// TruncateRunes shortens s to at most max runes. Rune-based so a
// multi-byte character is never split.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
