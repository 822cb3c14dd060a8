// Package telegram provides Telegram MTProto client wrapper.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/logger"
)

// Client wraps the manager-held gotgproto client and provides the
// high-level operations the scraper needs.
type Client struct {
	manager     *Manager
	rateLimiter *RateLimiter
	log         *logger.Logger
}

// NewClient creates a new telegram client wrapper using the Manager.
func NewClient(manager *Manager) *Client {
	return &Client{
		manager:     manager,
		rateLimiter: DefaultRateLimiter(),
		log:         logger.Get(),
	}
}

// Close stops the client via the manager.
func (c *Client) Close() {
	if c.manager != nil {
		c.manager.Stop()
	}
}

// GetStatus returns the current status of the telegram client.
func (c *Client) GetStatus() Status {
	return c.manager.GetStatus()
}

// API returns the raw tg.Client for direct API calls, connecting the
// manager first when it is not yet authorized. A failed startup connect
// is retried here on the next call instead of rejecting forever.
func (c *Client) API(ctx context.Context) (*tg.Client, error) {
	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}
	proto := c.manager.GetClient()
	if proto == nil {
		return nil, ErrNotAuthorized
	}
	return proto.API(), nil
}

func (c *Client) ensureConnected(ctx context.Context) error {
	if c.manager.GetStatus() == StatusAuthorized {
		return nil
	}
	return c.manager.Connect(ctx)
}

// Resolve turns a channel identifier into a Channel. Accepted forms:
// @handle, bare handle, numeric channel id, t.me/handle links and
// t.me/+hash invite links (the account must already be a member).
func (c *Client) Resolve(ctx context.Context, identifier string) (*Channel, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrChannelNotFound)
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	if invite, ok := inviteHash(identifier); ok {
		return c.resolveInvite(ctx, invite)
	}

	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return c.resolveID(ctx, id)
	}

	return c.resolveUsername(ctx, normalizeUsername(identifier))
}

// normalizeUsername strips @ prefixes and t.me link forms from a handle.
func normalizeUsername(identifier string) string {
	s := strings.TrimPrefix(identifier, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "telegram.me/")
	s = strings.TrimPrefix(s, "@")
	return strings.TrimSuffix(s, "/")
}

// inviteHash extracts the hash from a t.me/+hash or t.me/joinchat/hash link.
func inviteHash(identifier string) (string, bool) {
	s := strings.TrimPrefix(identifier, "https://")
	s = strings.TrimPrefix(s, "http://")
	if !strings.HasPrefix(s, "t.me/") && !strings.HasPrefix(s, "telegram.me/") {
		return "", false
	}
	s = strings.TrimPrefix(s, "t.me/")
	s = strings.TrimPrefix(s, "telegram.me/")
	s = strings.TrimSuffix(s, "/")

	switch {
	case strings.HasPrefix(s, "+"):
		return strings.TrimPrefix(s, "+"), true
	case strings.HasPrefix(s, "joinchat/"):
		return strings.TrimPrefix(s, "joinchat/"), true
	}
	return "", false
}

func (c *Client) resolveUsername(ctx context.Context, username string) (*Channel, error) {
	c.log.Info().Str("username", username).Msg("telegram: resolving channel username")

	api, err := c.API(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{
		Username: username,
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, classifyError(err, fmt.Sprintf("resolve username %s", username))
	}

	for _, chat := range resolved.Chats {
		if channel, ok := chatToChannel(chat); ok {
			channel.Username = username
			return channel, nil
		}
	}
	return nil, fmt.Errorf("no channel for username %s: %w", username, ErrChannelNotFound)
}

func (c *Client) resolveID(ctx context.Context, id int64) (*Channel, error) {
	c.log.Info().Int64("channel_id", id).Msg("telegram: resolving channel id")

	api, err := c.API(ctx)
	if err != nil {
		return nil, err
	}
	chats, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: id},
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, classifyError(err, fmt.Sprintf("resolve channel %d", id))
	}

	for _, chat := range chats.GetChats() {
		if channel, ok := chatToChannel(chat); ok && channel.ID == id {
			return channel, nil
		}
	}
	return nil, fmt.Errorf("no channel with id %d: %w", id, ErrChannelNotFound)
}

// resolveInvite handles t.me invite links. CheckChatInvite only returns
// the chat entity when the account is already a member; otherwise the
// channel is off limits to us.
func (c *Client) resolveInvite(ctx context.Context, hash string) (*Channel, error) {
	c.log.Info().Msg("telegram: resolving invite link")

	api, err := c.API(ctx)
	if err != nil {
		return nil, err
	}
	invite, err := api.MessagesCheckChatInvite(ctx, hash)
	if err != nil {
		c.noteFloodWait(err)
		return nil, classifyError(err, "check chat invite")
	}

	already, ok := invite.(*tg.ChatInviteAlready)
	if !ok {
		return nil, fmt.Errorf("not a member of invite chat: %w", ErrAccessDenied)
	}
	channel, ok := chatToChannel(already.Chat)
	if !ok {
		return nil, fmt.Errorf("invite does not point at a channel: %w", ErrChannelNotFound)
	}
	return channel, nil
}

// chatToChannel maps the tg chat classes onto our Channel.
func chatToChannel(chat tg.ChatClass) (*Channel, bool) {
	switch ch := chat.(type) {
	case *tg.Channel:
		out := &Channel{
			ID:         ch.ID,
			AccessHash: ch.AccessHash,
			Username:   ch.Username,
			Title:      ch.Title,
			Broadcast:  ch.Broadcast,
		}
		if count, ok := ch.GetParticipantsCount(); ok {
			out.ParticipantsCount = &count
		}
		return out, true
	case *tg.Chat:
		count := ch.ParticipantsCount
		return &Channel{
			ID:                ch.ID,
			Title:             ch.Title,
			Legacy:            true,
			ParticipantsCount: &count,
		}, true
	}
	return nil, false
}

// FullInfo fetches the extended channel profile. Callers treat it as
// best-effort and fall back to the counts on the basic entity.
func (c *Client) FullInfo(ctx context.Context, channel *Channel) (*FullInfo, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	api, err := c.API(ctx)
	if err != nil {
		return nil, err
	}

	if channel.Legacy {
		full, err := api.MessagesGetFullChat(ctx, channel.ID)
		if err != nil {
			c.noteFloodWait(err)
			return nil, classifyError(err, "get full chat")
		}
		chatFull, ok := full.FullChat.(*tg.ChatFull)
		if !ok {
			return nil, fmt.Errorf("unexpected full chat type %T", full.FullChat)
		}
		return &FullInfo{About: chatFull.About}, nil
	}

	full, err := api.ChannelsGetFullChannel(ctx, &tg.InputChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	})
	if err != nil {
		c.noteFloodWait(err)
		return nil, classifyError(err, "get full channel")
	}

	chFull, ok := full.FullChat.(*tg.ChannelFull)
	if !ok {
		return nil, fmt.Errorf("unexpected full channel type %T", full.FullChat)
	}

	info := &FullInfo{About: chFull.About}
	count := chFull.ParticipantsCount
	info.ParticipantsCount = &count
	return info, nil
}

// RecentMessages fetches up to limit newest messages from the channel,
// paging MessagesGetHistory in batches of at most 100.
func (c *Client) RecentMessages(ctx context.Context, channel *Channel, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var (
		messages []Message
		offsetID int
	)

	for len(messages) < limit {
		batch := limit - len(messages)
		if batch > 100 {
			batch = 100 // telegram api page limit
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		api, err := c.API(ctx)
		if err != nil {
			return nil, err
		}

		c.log.Debug().Int64("channel_id", channel.ID).Int("offset_id", offsetID).Int("limit", batch).
			Msg("telegram: calling MessagesGetHistory")
		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     channel.inputPeer(),
			OffsetID: offsetID,
			Limit:    batch,
		})
		if err != nil {
			c.noteFloodWait(err)
			return nil, classifyError(err, "get history")
		}

		raw := rawMessages(history)
		if len(raw) == 0 {
			break // channel exhausted
		}

		for _, msg := range raw {
			if m := parseMessage(msg, channel.ID); m != nil {
				messages = append(messages, *m)
			}
		}
		// advance past the whole raw page; a page of only service
		// messages still moves the cursor
		offsetID = raw[len(raw)-1].GetID()
	}

	if len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (ch *Channel) inputPeer() tg.InputPeerClass {
	if ch.Legacy {
		return &tg.InputPeerChat{ChatID: ch.ID}
	}
	return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
}

// rawMessages pulls the message list out of a history response.
func rawMessages(history tg.MessagesMessagesClass) []tg.MessageClass {
	switch h := history.(type) {
	case *tg.MessagesChannelMessages:
		return h.Messages
	case *tg.MessagesMessages:
		return h.Messages
	case *tg.MessagesMessagesSlice:
		return h.Messages
	}
	return nil
}

// parseMessage extracts the engagement counters from a single post.
func parseMessage(msg tg.MessageClass, channelID int64) *Message {
	m, ok := msg.(*tg.Message)
	if !ok {
		return nil
	}

	out := &Message{
		ID:        m.ID,
		ChannelID: channelID,
		Text:      m.Message,
		Date:      time.Unix(int64(m.Date), 0).UTC(),
	}

	if views, ok := m.GetViews(); ok {
		out.Views = &views
	}
	if forwards, ok := m.GetForwards(); ok {
		out.Forwards = &forwards
	}
	if replies, ok := m.GetReplies(); ok {
		out.Replies = replies.Replies
	}
	if reactions, ok := m.GetReactions(); ok {
		out.Reactions = reactionCounts(reactions)
	}
	if media, ok := m.GetMedia(); ok {
		out.HasMedia = true
		out.MediaType = mediaKind(media)
	}

	return out
}

// reactionCounts flattens reaction results into key -> count.
// Emoji reactions keep their emoticon; custom emoji reactions get a
// stable document_<id> key.
func reactionCounts(reactions tg.MessageReactions) map[string]int {
	if len(reactions.Results) == 0 {
		return nil
	}

	counts := make(map[string]int, len(reactions.Results))
	for _, result := range reactions.Results {
		counts[reactionKey(result.Reaction)] += result.Count
	}
	return counts
}

func reactionKey(reaction tg.ReactionClass) string {
	switch r := reaction.(type) {
	case *tg.ReactionEmoji:
		return r.Emoticon
	case *tg.ReactionCustomEmoji:
		return fmt.Sprintf("document_%d", r.DocumentID)
	}
	// other reaction kinds (paid etc.) keep their own distinct key
	return reaction.String()
}

func mediaKind(media tg.MessageMediaClass) string {
	switch media.(type) {
	case *tg.MessageMediaPhoto:
		return "photo"
	case *tg.MessageMediaDocument:
		return "document"
	}
	return "other"
}

// noteFloodWait feeds FLOOD_WAIT backoff into the rate limiter.
func (c *Client) noteFloodWait(err error) {
	if wait := floodWaitSeconds(err); wait > 0 {
		c.log.Warn().Int("wait_seconds", wait).Msg("telegram: FLOOD_WAIT detected, updating rate limiter")
		c.rateLimiter.SetFloodWait(wait)
	}
}
