// Package publisher emits scrape lifecycle events to NATS JetStream.
package publisher

import (
	"context"
	"fmt"

	"github.com/blockedby/tgstats/internal/scraper"
)

// Stream layout for scrape events.
const (
	StreamScrapes          = "SCRAPES"
	SubjectScrapeCompleted = "scrapes.completed"
)

// StreamSubjects returns the subject space the scrapes stream captures.
func StreamSubjects() []string {
	return []string{"scrapes.>"}
}

// JetStreamClient is the publishing surface of the jetstream wrapper.
type JetStreamClient interface {
	Publish(ctx context.Context, subject string, data any) error
}

// NATSPublisher implements scraper.EventPublisher on a jetstream client.
type NATSPublisher struct {
	client JetStreamClient
}

// NewNATSPublisher creates a new publisher.
func NewNATSPublisher(client JetStreamClient) *NATSPublisher {
	return &NATSPublisher{client: client}
}

// PublishScrapeCompleted publishes a scrape completed event.
func (p *NATSPublisher) PublishScrapeCompleted(ctx context.Context, event scraper.ScrapeCompletedEvent) error {
	if err := p.client.Publish(ctx, SubjectScrapeCompleted, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
