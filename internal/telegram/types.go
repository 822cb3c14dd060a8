package telegram

import "time"

// Channel is the resolved Telegram entity we scrape.
// ParticipantsCount is nil when the resolve call did not carry it.
type Channel struct {
	ID         int64
	AccessHash int64
	Username   string
	Title      string
	Broadcast  bool
	// Legacy marks basic (pre-supergroup) chats, which have no access hash.
	Legacy            bool
	ParticipantsCount *int
}

// FullInfo carries the extended channel profile from GetFullChannel.
type FullInfo struct {
	About             string
	ParticipantsCount *int
}

// Message is a single channel post with its engagement counters.
// Views and Forwards are nil when Telegram omits them (service
// messages, legacy chats).
type Message struct {
	ID        int
	ChannelID int64
	Text      string
	Date      time.Time
	Views     *int
	Forwards  *int
	Replies   int
	Reactions map[string]int
	HasMedia  bool
	MediaType string
}
