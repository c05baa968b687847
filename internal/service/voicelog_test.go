package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/repository"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

type fakeGuildSource struct {
	channels []chat.Channel
	members  []chat.Member
}

func (f *fakeGuildSource) GuildChannels(ctx context.Context, guildID int64) ([]chat.Channel, error) {
	return f.channels, nil
}

func (f *fakeGuildSource) GuildMembers(ctx context.Context, guildID int64) ([]chat.Member, error) {
	return f.members, nil
}

func newVoiceLogFixture(t *testing.T) (*VoiceLogService, *fakeGuildSource, repository.Book) {
	t.Helper()
	ledger, err := repository.NewSQLLedger("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	src := &fakeGuildSource{
		channels: []chat.Channel{
			{ID: 20, Name: "voice-a", Type: chat.ChannelTypeVoice},
			{ID: 21, Name: "voice-b", Type: chat.ChannelTypeVoice},
			{ID: 10, Name: "general", Type: chat.ChannelTypeText},
		},
		members: []chat.Member{
			{ID: 1, Name: "alice", DisplayName: "alice"},
			{ID: 2, Name: "bob", DisplayName: "bob"},
			{ID: 3, Name: "robo", DisplayName: "robo", Bot: true},
		},
	}
	boundary, err := timewindow.ParseBoundary("00:00:00")
	require.NoError(t, err)

	book := ledger.Book("voice-log")
	svc := NewVoiceLogService(book, src, boundary, repository.NewKeyedMutex(), zerolog.Nop())
	return svc, src, book
}

func TestRecordUpdateAppends(t *testing.T) {
	svc, _, book := newVoiceLogFixture(t)
	svc.now = func() time.Time { return time.Date(2023, 3, 10, 21, 0, 0, 0, timewindow.JST) }
	ctx := context.Background()

	up := chat.VoiceUpdate{
		GuildID: 99,
		Member:  chat.Member{ID: 1, DisplayName: "alice"},
		Before:  chat.VoiceState{},
		After:   chat.VoiceState{ChannelID: 20, ChannelName: "voice-a"},
	}
	require.NoError(t, svc.RecordUpdate(ctx, up))

	// leave while streaming
	up = chat.VoiceUpdate{
		GuildID: 99,
		Member:  chat.Member{ID: 1, DisplayName: "alice"},
		Before:  chat.VoiceState{ChannelID: 20, ChannelName: "voice-a", SelfStream: true},
		After:   chat.VoiceState{},
	}
	require.NoError(t, svc.RecordUpdate(ctx, up))

	sheet, err := book.Sheet(ctx, "99")
	require.NoError(t, err)
	records, err := sheet.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "join", records[0]["state"])
	assert.Equal(t, "20", records[0]["channel_id"])
	assert.Equal(t, "2023/03/10", records[0]["date"])
	assert.Equal(t, "leave,stream_end", records[1]["state"])
	// the leave record keeps the channel that was left
	assert.Equal(t, "20", records[1]["channel_id"])
}

func TestCountStates(t *testing.T) {
	svc, _, _ := newVoiceLogFixture(t)
	ctx := context.Background()

	base := time.Date(2023, 3, 10, 20, 0, 0, 0, timewindow.JST)
	joins := []struct {
		user    int64
		channel int64
		name    string
	}{
		{1, 20, "voice-a"},
		{1, 20, "voice-a"},
		{2, 21, "voice-b"},
	}
	for i, j := range joins {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		require.NoError(t, svc.RecordUpdate(ctx, chat.VoiceUpdate{
			GuildID: 99,
			Member:  chat.Member{ID: j.user, DisplayName: "u"},
			Before:  chat.VoiceState{},
			After:   chat.VoiceState{ChannelID: j.channel, ChannelName: j.name},
		}))
	}

	counts, err := svc.CountStates(ctx, 99, CountParams{State: "join", Minimum: true})
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, int64(1), counts[0].User.ID)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, int64(2), counts[1].User.ID)
	assert.Equal(t, 1, counts[1].Count)

	// minimum=false keeps zero rows for the full cross product (2 users x 2 voice channels)
	counts, err = svc.CountStates(ctx, 99, CountParams{State: "join", Minimum: false})
	require.NoError(t, err)
	assert.Len(t, counts, 4)

	// user filter
	counts, err = svc.CountStates(ctx, 99, CountParams{State: "join", UserIDs: []int64{2}, Minimum: true})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, int64(2), counts[0].User.ID)
}

func TestCountStatesWindowFilter(t *testing.T) {
	svc, _, _ := newVoiceLogFixture(t)
	ctx := context.Background()

	days := []time.Time{
		time.Date(2023, 3, 1, 12, 0, 0, 0, timewindow.JST),
		time.Date(2023, 3, 5, 12, 0, 0, 0, timewindow.JST),
		time.Date(2023, 3, 9, 12, 0, 0, 0, timewindow.JST),
	}
	for _, d := range days {
		d := d
		svc.now = func() time.Time { return d }
		require.NoError(t, svc.RecordUpdate(ctx, chat.VoiceUpdate{
			GuildID: 99,
			Member:  chat.Member{ID: 1, DisplayName: "alice"},
			Before:  chat.VoiceState{},
			After:   chat.VoiceState{ChannelID: 20, ChannelName: "voice-a"},
		}))
	}

	w, err := timewindow.ParseBeforeAfter(args.Args{"before": "2023-03-08", "after": "2023-03-02"})
	require.NoError(t, err)

	counts, err := svc.CountStates(ctx, 99, CountParams{State: "join", Window: w, Minimum: true})
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, 1, counts[0].Count)
}

func TestCountStatesBrokenRecord(t *testing.T) {
	svc, _, book := newVoiceLogFixture(t)
	ctx := context.Background()

	sheet, err := book.GetOrCreateSheet(ctx, "99", repository.WithHeader([]string{"date", "time", "user_name", "user_id", "channel_name", "channel_id", "state"}))
	require.NoError(t, err)
	require.NoError(t, sheet.AppendRow(ctx, []string{"garbage", "99:99:99", "alice", "1", "voice-a", "20", "join"}))

	_, err = svc.CountStates(ctx, 99, CountParams{State: "join"})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "既存レコードの日時のパースに失敗しました。", execErr.Title)
}
