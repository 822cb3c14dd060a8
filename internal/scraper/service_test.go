package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/tgstats/internal/repository"
	"github.com/blockedby/tgstats/internal/telegram"
)

type fakeTelegram struct {
	channel     *telegram.Channel
	resolveErr  error
	fullInfo    *telegram.FullInfo
	fullInfoErr error
	messages    []telegram.Message
	messagesErr error

	gotIdentifier string
	gotLimit      int
}

func (f *fakeTelegram) Resolve(ctx context.Context, identifier string) (*telegram.Channel, error) {
	f.gotIdentifier = identifier
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.channel, nil
}

func (f *fakeTelegram) FullInfo(ctx context.Context, channel *telegram.Channel) (*telegram.FullInfo, error) {
	if f.fullInfoErr != nil {
		return nil, f.fullInfoErr
	}
	return f.fullInfo, nil
}

func (f *fakeTelegram) RecentMessages(ctx context.Context, channel *telegram.Channel, limit int) ([]telegram.Message, error) {
	f.gotLimit = limit
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	return f.messages, nil
}

type fakeStorage struct {
	snapshot *repository.ChannelSnapshot
	records  []repository.MessageRecord
	saveErr  error
	saves    int

	history    []repository.ChannelSnapshot
	historyErr error
	gotChannel int64
	gotLimit   int
}

func (f *fakeStorage) SaveScrape(ctx context.Context, snapshot *repository.ChannelSnapshot, records []repository.MessageRecord) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshot = snapshot
	f.records = records
	return nil
}

func (f *fakeStorage) History(ctx context.Context, channelID int64, limit int) ([]repository.ChannelSnapshot, error) {
	f.gotChannel = channelID
	f.gotLimit = limit
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.history, nil
}

type fakeUploader struct {
	uploads int
}

func (f *fakeUploader) UploadSession(ctx context.Context) bool {
	f.uploads++
	return true
}

type fakePublisher struct {
	events []ScrapeCompletedEvent
	err    error
}

func (f *fakePublisher) PublishScrapeCompleted(ctx context.Context, event ScrapeCompletedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func testChannel() *telegram.Channel {
	return &telegram.Channel{
		ID:                100500,
		AccessHash:        42,
		Username:          "technews",
		Title:             "Tech News",
		Broadcast:         true,
		ParticipantsCount: intPtr(5000),
	}
}

func newTestService(tg *fakeTelegram, storage *fakeStorage, uploader *fakeUploader, publisher EventPublisher) *Service {
	svc := NewService(tg, storage, uploader, publisher)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestService_Scrape_FullFlow(t *testing.T) {
	tg := &fakeTelegram{
		channel:  testChannel(),
		fullInfo: &telegram.FullInfo{About: "All about tech", ParticipantsCount: intPtr(5100)},
		messages: []telegram.Message{
			{ID: 2, Text: "second", Views: intPtr(100), Reactions: map[string]int{"👍": 10}},
			{ID: 1, Text: "first"},
		},
	}
	storage := &fakeStorage{}
	uploader := &fakeUploader{}
	publisher := &fakePublisher{}
	svc := newTestService(tg, storage, uploader, publisher)

	result, err := svc.Scrape(context.Background(), "@technews", 50)
	require.NoError(t, err)

	assert.Equal(t, "@technews", tg.gotIdentifier)
	assert.Equal(t, 50, tg.gotLimit)

	// avg_views over the one message with views, reactions over all fetched
	assert.Equal(t, 100.0, result.AvgViews)
	assert.Equal(t, 5.0, result.AvgReactions)
	assert.Equal(t, 2, result.MessagesAnalyzed)
	assert.Equal(t, "All about tech", result.Description)
	require.NotNil(t, result.SubscribersCount)
	assert.Equal(t, 5100, *result.SubscribersCount)
	require.NotNil(t, result.Username)
	assert.Equal(t, "technews", *result.Username)
	require.Len(t, result.Messages, 2)

	require.NotNil(t, storage.snapshot)
	assert.Equal(t, int64(100500), storage.snapshot.ChannelID)
	assert.Equal(t, 100, storage.snapshot.AvgViews)
	assert.Equal(t, 5, storage.snapshot.AvgReactions)
	require.Len(t, storage.records, 2)
	assert.Equal(t, int64(2), storage.records[0].MessageID)

	// recap blob carries the scrape timestamp and message count only
	require.NotNil(t, storage.snapshot.RecentActivity)
	assert.Equal(t, time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), storage.snapshot.RecentActivity.LastScrape)
	assert.Equal(t, 2, storage.snapshot.RecentActivity.MessagesCount)

	assert.Equal(t, 1, uploader.uploads)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, int64(100500), publisher.events[0].ChannelID)
}

func TestService_Scrape_DefaultLimit(t *testing.T) {
	tg := &fakeTelegram{channel: testChannel()}
	svc := newTestService(tg, &fakeStorage{}, &fakeUploader{}, nil)

	_, err := svc.Scrape(context.Background(), "technews", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultScrapeLimit, tg.gotLimit)
}

func TestService_Scrape_ResolveError(t *testing.T) {
	tg := &fakeTelegram{resolveErr: telegram.ErrChannelNotFound}
	storage := &fakeStorage{}
	svc := newTestService(tg, storage, &fakeUploader{}, nil)

	_, err := svc.Scrape(context.Background(), "missing", 10)

	require.ErrorIs(t, err, telegram.ErrChannelNotFound)
	assert.Equal(t, 0, storage.saves)
}

func TestService_Scrape_FullInfoFailureIsBestEffort(t *testing.T) {
	tg := &fakeTelegram{
		channel:     testChannel(),
		fullInfoErr: errors.New("CHAT_ADMIN_REQUIRED"),
		messages:    []telegram.Message{{ID: 1, Views: intPtr(10)}},
	}
	storage := &fakeStorage{}
	svc := newTestService(tg, storage, &fakeUploader{}, nil)

	result, err := svc.Scrape(context.Background(), "technews", 10)
	require.NoError(t, err)

	// falls back to the count on the basic entity
	require.NotNil(t, result.SubscribersCount)
	assert.Equal(t, 5000, *result.SubscribersCount)
	assert.Empty(t, result.Description)
}

func TestService_Scrape_FetchError(t *testing.T) {
	tg := &fakeTelegram{channel: testChannel(), messagesErr: &telegram.FloodWaitError{Wait: 30 * time.Second}}
	storage := &fakeStorage{}
	svc := newTestService(tg, storage, &fakeUploader{}, nil)

	_, err := svc.Scrape(context.Background(), "technews", 10)

	var floodErr *telegram.FloodWaitError
	require.ErrorAs(t, err, &floodErr)
	assert.Equal(t, 0, storage.saves)
}

func TestService_Scrape_PersistError(t *testing.T) {
	tg := &fakeTelegram{channel: testChannel()}
	storage := &fakeStorage{saveErr: errors.New("db down")}
	uploader := &fakeUploader{}
	svc := newTestService(tg, storage, uploader, nil)

	_, err := svc.Scrape(context.Background(), "technews", 10)

	require.Error(t, err)
	// nothing persisted means no session push either
	assert.Equal(t, 0, uploader.uploads)
}

func TestService_Scrape_TruncatesLongText(t *testing.T) {
	longText := strings.Repeat("a", 2000)
	tg := &fakeTelegram{
		channel:  testChannel(),
		messages: []telegram.Message{{ID: 1, Text: longText}},
	}
	storage := &fakeStorage{}
	svc := newTestService(tg, storage, &fakeUploader{}, nil)

	result, err := svc.Scrape(context.Background(), "technews", 10)
	require.NoError(t, err)

	// records carry the raw text; the repository truncates at persist time
	require.Len(t, storage.records, 1)
	require.NotNil(t, storage.records[0].Text)
	// the API response keeps the full text
	assert.Len(t, result.Messages[0].Text, 2000)
}

func TestService_Scrape_PublishFailureIsNonFatal(t *testing.T) {
	tg := &fakeTelegram{channel: testChannel(), messages: []telegram.Message{{ID: 1}}}
	svc := newTestService(tg, &fakeStorage{}, &fakeUploader{}, &fakePublisher{err: errors.New("nats down")})

	_, err := svc.Scrape(context.Background(), "technews", 10)
	assert.NoError(t, err)
}

func TestService_Scrape_NilPublisher(t *testing.T) {
	tg := &fakeTelegram{channel: testChannel()}
	svc := newTestService(tg, &fakeStorage{}, &fakeUploader{}, nil)

	_, err := svc.Scrape(context.Background(), "technews", 10)
	assert.NoError(t, err)
}

func TestService_History_DefaultLimit(t *testing.T) {
	storage := &fakeStorage{history: []repository.ChannelSnapshot{{ChannelID: 7}}}
	svc := newTestService(&fakeTelegram{}, storage, &fakeUploader{}, nil)

	snapshots, err := svc.History(context.Background(), 7, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(7), storage.gotChannel)
	assert.Equal(t, DefaultHistoryLimit, storage.gotLimit)
	assert.Len(t, snapshots, 1)
}

func TestService_History_ExplicitLimit(t *testing.T) {
	storage := &fakeStorage{}
	svc := newTestService(&fakeTelegram{}, storage, &fakeUploader{}, nil)

	_, err := svc.History(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, storage.gotLimit)
}

func TestService_History_Error(t *testing.T) {
	storage := &fakeStorage{historyErr: errors.New("db down")}
	svc := newTestService(&fakeTelegram{}, storage, &fakeUploader{}, nil)

	_, err := svc.History(context.Background(), 7, 5)
	assert.Error(t, err)
}
