package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guild-audit-bot/internal/repository"
	"github.com/example/guild-audit-bot/pkg/chat"
)

func newDirectoryFixture(t *testing.T) (*DirectoryService, *fakeGuildSource, repository.Book) {
	t.Helper()
	ledger, err := repository.NewSQLLedger("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	book := ledger.Book("directory")

	joined := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeGuildSource{
		channels: []chat.Channel{
			{ID: 10, Name: "general", Type: chat.ChannelTypeText, CreatedAt: time.Date(2022, 12, 31, 20, 0, 0, 0, time.UTC)},
			{ID: 20, Name: "voice-a", Type: chat.ChannelTypeVoice, CreatedAt: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)},
		},
		members: []chat.Member{
			{ID: 1, Name: "alice", DisplayName: "ありす", JoinedAt: &joined},
			{ID: 2, Name: "bob", DisplayName: "bob"},
		},
	}
	svc := NewDirectoryService(book, src, repository.NewKeyedMutex(), zerolog.Nop())
	return svc, src, book
}

func TestSyncChannels(t *testing.T) {
	svc, _, book := newDirectoryFixture(t)
	ctx := context.Background()

	n, err := svc.SyncChannels(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sheet, err := book.Sheet(ctx, "99.channel")
	require.NoError(t, err)
	records, err := sheet.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Channel creation dates render as civil dates, so the UTC instant
	// 2022-12-31 20:00 lands on the next day.
	assert.Equal(t, map[string]string{
		"id": "10", "name": "general", "type": "text", "created_at": "2023/01/01",
	}, records[0])
	assert.Equal(t, "2023/01/10", records[1]["created_at"])
}

func TestSyncMembers(t *testing.T) {
	svc, _, book := newDirectoryFixture(t)
	ctx := context.Background()

	n, err := svc.SyncMembers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sheet, err := book.Sheet(ctx, "99.member")
	require.NoError(t, err)
	records, err := sheet.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, map[string]string{
		"id": "1", "name": "alice", "nick": "ありす", "joined_at": "2023/04/01",
	}, records[0])
	assert.Equal(t, "UNKNOWN", records[1]["joined_at"])
}

func TestSyncReplacesStaleRows(t *testing.T) {
	svc, src, book := newDirectoryFixture(t)
	ctx := context.Background()

	_, err := svc.SyncMembers(ctx, 99)
	require.NoError(t, err)

	// bob leaves, carol joins; the re-sync must leave exactly one row per
	// live member with no leftovers.
	src.members = []chat.Member{
		{ID: 1, Name: "alice", DisplayName: "ありす"},
		{ID: 3, Name: "carol", DisplayName: "carol"},
	}
	n, err := svc.SyncMembers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sheet, err := book.Sheet(ctx, "99.member")
	require.NoError(t, err)
	records, err := sheet.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0]["id"])
	assert.Equal(t, "3", records[1]["id"])
}
