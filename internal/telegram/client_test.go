package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/celestix/gotgproto"
	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/config"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"durov", "durov"},
		{"@durov", "durov"},
		{"https://t.me/durov", "durov"},
		{"t.me/durov/", "durov"},
		{"telegram.me/durov", "durov"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeUsername(tt.in), tt.in)
	}
}

func TestInviteHash(t *testing.T) {
	tests := []struct {
		in       string
		wantHash string
		wantOK   bool
	}{
		{"https://t.me/+AbCdEf123", "AbCdEf123", true},
		{"t.me/+AbCdEf123", "AbCdEf123", true},
		{"t.me/joinchat/AbCdEf123", "AbCdEf123", true},
		{"t.me/durov", "", false},
		{"@durov", "", false},
		{"+123456", "", false},
	}

	for _, tt := range tests {
		hash, ok := inviteHash(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.wantHash, hash, tt.in)
	}
}

func TestParseMessage(t *testing.T) {
	raw := &tg.Message{
		ID:      42,
		Message: "hello world",
		Date:    1700000000,
	}
	raw.SetViews(1500)
	raw.SetForwards(30)
	raw.SetReplies(tg.MessageReplies{Replies: 7})
	raw.SetReactions(tg.MessageReactions{
		Results: []tg.ReactionCount{
			{Reaction: &tg.ReactionEmoji{Emoticon: "👍"}, Count: 12},
			{Reaction: &tg.ReactionCustomEmoji{DocumentID: 987}, Count: 3},
		},
	})
	raw.SetMedia(&tg.MessageMediaPhoto{})

	m := parseMessage(raw, 100500)
	require.NotNil(t, m)

	assert.Equal(t, 42, m.ID)
	assert.Equal(t, int64(100500), m.ChannelID)
	assert.Equal(t, "hello world", m.Text)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), m.Date)
	require.NotNil(t, m.Views)
	assert.Equal(t, 1500, *m.Views)
	require.NotNil(t, m.Forwards)
	assert.Equal(t, 30, *m.Forwards)
	assert.Equal(t, 7, m.Replies)
	assert.Equal(t, map[string]int{"👍": 12, "document_987": 3}, m.Reactions)
	assert.True(t, m.HasMedia)
	assert.Equal(t, "photo", m.MediaType)
}

func TestParseMessage_MinimalPost(t *testing.T) {
	m := parseMessage(&tg.Message{ID: 1, Message: "bare"}, 1)
	require.NotNil(t, m)

	assert.Nil(t, m.Views)
	assert.Nil(t, m.Forwards)
	assert.Zero(t, m.Replies)
	assert.Nil(t, m.Reactions)
	assert.False(t, m.HasMedia)
	assert.Empty(t, m.MediaType)
}

func TestParseMessage_SkipsServiceMessages(t *testing.T) {
	assert.Nil(t, parseMessage(&tg.MessageService{ID: 5}, 1))
	assert.Nil(t, parseMessage(&tg.MessageEmpty{ID: 6}, 1))
}

func TestReactionKey(t *testing.T) {
	assert.Equal(t, "🔥", reactionKey(&tg.ReactionEmoji{Emoticon: "🔥"}))
	assert.Equal(t, "document_987", reactionKey(&tg.ReactionCustomEmoji{DocumentID: 987}))

	// other reaction kinds fall back to their string form and stay distinct
	key := reactionKey(&tg.ReactionEmpty{})
	assert.Contains(t, key, "ReactionEmpty")
	assert.NotEqual(t, key, reactionKey(&tg.ReactionEmoji{Emoticon: "👍"}))
}

func TestMediaKind(t *testing.T) {
	assert.Equal(t, "photo", mediaKind(&tg.MessageMediaPhoto{}))
	assert.Equal(t, "document", mediaKind(&tg.MessageMediaDocument{}))
	assert.Equal(t, "other", mediaKind(&tg.MessageMediaGeo{}))
}

func TestRawMessages(t *testing.T) {
	history := &tg.MessagesChannelMessages{
		Messages: []tg.MessageClass{
			&tg.Message{ID: 3, Message: "newest"},
			&tg.MessageService{ID: 2},
			&tg.Message{ID: 1, Message: "oldest"},
		},
	}

	raw := rawMessages(history)
	require.Len(t, raw, 3)
	assert.Equal(t, 3, raw[0].GetID())
	assert.Equal(t, 1, raw[2].GetID())
}

func TestRawMessages_ServiceOnlyPageKeepsCursorMoving(t *testing.T) {
	// a page of only service messages must not read as "exhausted":
	// paging advances from the last raw item, not the last parsed one
	history := &tg.MessagesChannelMessages{
		Messages: []tg.MessageClass{
			&tg.MessageService{ID: 20},
			&tg.MessageService{ID: 19},
		},
	}

	raw := rawMessages(history)
	require.Len(t, raw, 2)
	assert.Equal(t, 19, raw[len(raw)-1].GetID())

	for _, msg := range raw {
		assert.Nil(t, parseMessage(msg, 1))
	}
}

func TestRawMessages_EmptyResponse(t *testing.T) {
	assert.Empty(t, rawMessages(&tg.MessagesChannelMessages{}))
	assert.Empty(t, rawMessages(&tg.MessagesMessagesNotModified{}))
}

func TestChatToChannel(t *testing.T) {
	ch := &tg.Channel{
		ID:         123,
		AccessHash: 456,
		Username:   "news",
		Title:      "News",
		Broadcast:  true,
	}
	ch.SetParticipantsCount(1000)

	got, ok := chatToChannel(ch)
	require.True(t, ok)
	assert.Equal(t, int64(123), got.ID)
	assert.Equal(t, int64(456), got.AccessHash)
	assert.True(t, got.Broadcast)
	assert.False(t, got.Legacy)
	require.NotNil(t, got.ParticipantsCount)
	assert.Equal(t, 1000, *got.ParticipantsCount)
}

func TestChatToChannel_LegacyChat(t *testing.T) {
	got, ok := chatToChannel(&tg.Chat{ID: 55, Title: "Old Group", ParticipantsCount: 12})
	require.True(t, ok)
	assert.True(t, got.Legacy)
	assert.Equal(t, int64(55), got.ID)
	require.NotNil(t, got.ParticipantsCount)
	assert.Equal(t, 12, *got.ParticipantsCount)
}

func TestChatToChannel_Forbidden(t *testing.T) {
	_, ok := chatToChannel(&tg.ChannelForbidden{ID: 9})
	assert.False(t, ok)
}

func TestClient_EnsureConnected_RetriesAfterFailedConnect(t *testing.T) {
	m := NewManager(managerConfig(), &fakeSessionStore{})
	calls := 0
	m.SetClientFactory(func(ctx context.Context, cfg *config.Config, sessionPath string) (*gotgproto.Client, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	c := NewClient(m)

	// a transient startup failure leaves the manager in AUTH_FAILED
	require.Error(t, c.ensureConnected(context.Background()))
	assert.Equal(t, StatusAuthFailed, m.GetStatus())

	// the next call connects again instead of rejecting forever
	m.SetClientFactory(func(ctx context.Context, cfg *config.Config, sessionPath string) (*gotgproto.Client, error) {
		calls++
		return &gotgproto.Client{}, nil
	})
	require.NoError(t, c.ensureConnected(context.Background()))
	assert.Equal(t, StatusAuthorized, m.GetStatus())
	assert.Equal(t, 2, calls)

	// once authorized there is nothing left to reconnect
	require.NoError(t, c.ensureConnected(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestChannelInputPeer(t *testing.T) {
	ch := &Channel{ID: 1, AccessHash: 2}
	peer, ok := ch.inputPeer().(*tg.InputPeerChannel)
	require.True(t, ok)
	assert.Equal(t, int64(1), peer.ChannelID)
	assert.Equal(t, int64(2), peer.AccessHash)

	legacy := &Channel{ID: 3, Legacy: true}
	chatPeer, ok := legacy.inputPeer().(*tg.InputPeerChat)
	require.True(t, ok)
	assert.Equal(t, int64(3), chatPeer.ChatID)
}
