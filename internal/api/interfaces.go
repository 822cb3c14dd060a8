package api

import (
	"context"

	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/scraper"
)

// ScraperService is the scraping surface the API exposes.
type ScraperService interface {
	Scrape(ctx context.Context, identifier string, limit int) (*scraper.ScrapeResult, error)
	History(ctx context.Context, channelID int64, limit int) ([]repository.ChannelSnapshot, error)
}

// SessionInfo reports the state of durable session storage for health checks.
type SessionInfo interface {
	Available() bool
	LocalPath() string
}
