package scraper

import "github.com/blockedby/tgstats/internal/telegram"

// Aggregate holds full-precision engagement averages for one scrape.
// Persistence floors them to ints; the API returns them as is.
type Aggregate struct {
	AvgViews         float64
	AvgReactions     float64
	AvgForwards      float64
	MessagesAnalyzed int
}

// aggregateMessages computes engagement averages over a fetched batch.
//
// Views are averaged over messages that actually carry a view counter,
// so service gaps do not drag the number down. Reactions and forwards
// are averaged over every fetched message: a post without them counts
// as zero engagement.
func aggregateMessages(messages []telegram.Message) Aggregate {
	agg := Aggregate{MessagesAnalyzed: len(messages)}
	if len(messages) == 0 {
		return agg
	}

	var (
		viewsSum     int
		viewsCount   int
		reactionsSum int
		forwardsSum  int
	)

	for _, m := range messages {
		if m.Views != nil {
			viewsSum += *m.Views
			viewsCount++
		}
		if m.Forwards != nil {
			forwardsSum += *m.Forwards
		}
		for _, count := range m.Reactions {
			reactionsSum += count
		}
	}

	if viewsCount > 0 {
		agg.AvgViews = float64(viewsSum) / float64(viewsCount)
	}
	agg.AvgReactions = float64(reactionsSum) / float64(len(messages))
	agg.AvgForwards = float64(forwardsSum) / float64(len(messages))
	return agg
}
