package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/pkg/chat"
)

func TestMessageRecordsJSON(t *testing.T) {
	created := time.Date(2023, 4, 1, 3, 30, 0, 0, time.UTC) // 12:30 JST
	edited := created.Add(10 * time.Minute)
	msgs := []chat.Message{
		{ID: 1, Author: chat.Member{Name: "alice", DisplayName: "ありす"}, Content: "おはよう", CreatedAt: created, EditedAt: &edited},
		{ID: 2, Author: chat.Member{Name: "bob", DisplayName: "bob"}, Content: "hi", CreatedAt: created},
	}

	data, err := EncodeJSON(MessageRecords(msgs))
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"created_at": "2023-04-01 12:30:00"`)
	assert.Contains(t, s, `"edited_at": "2023-04-01 12:40:00"`)
	assert.Contains(t, s, `"おはよう"`)
	// the second message was never edited
	assert.Equal(t, 1, strings.Count(s, "edited_at"))
}

func TestMessageCountCSV(t *testing.T) {
	result := &service.MessageCountResult{
		Users: []chat.Member{
			{ID: 1, DisplayName: "alice"},
			{ID: 2, DisplayName: "bob"},
		},
		Channels: []chat.Channel{
			{ID: 10, Name: "general"},
			{ID: 11, Name: "random"},
		},
		Counts: map[int64]map[int64]int{
			1: {10: 3, 11: 0},
			2: {10: 1, 11: 5},
		},
	}

	data, err := MessageCountCSV(result)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "user,general,random", lines[0])
	assert.Equal(t, "alice,3,0", lines[1])
	assert.Equal(t, "bob,1,5", lines[2])
}

func TestArtifactFilenames(t *testing.T) {
	assert.Equal(t, "10_2023-01-01_None_messages.json", MessageDumpFilename(10, "2023-01-01", "None"))
	assert.Equal(t, "message_count_20230101_20230201.csv", MessageCountFilename("2023/01/01", "2023/02/01"))
	assert.Equal(t, "ignore_list_99.json", IgnoreListFilename(99))
}
