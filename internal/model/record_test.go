package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoiceStateRecordRowRoundTrip(t *testing.T) {
	rec := VoiceStateRecord{
		Date:        "2023/03/09",
		Time:        "26:15:00.000000",
		UserName:    "alice",
		UserID:      42,
		ChannelName: "general",
		ChannelID:   7,
		State:       "join,mute_on",
	}
	row := rec.ToRow()
	assert.Equal(t, []string{"2023/03/09", "26:15:00.000000", "alice", "42", "general", "7", "join,mute_on"}, row)

	m := map[string]string{}
	for i, key := range VoiceStateRecordHeader {
		m[key] = row[i]
	}
	assert.Equal(t, rec, VoiceStateRecordFromMap(m))
}

func TestVoiceStateRecordHasState(t *testing.T) {
	rec := VoiceStateRecord{State: "leave,stream_end"}
	assert.True(t, rec.HasState("leave"))
	assert.True(t, rec.HasState("stream_end"))
	// substring matching is intentionally loose
	assert.True(t, rec.HasState("stream"))
	assert.False(t, rec.HasState("join"))
}

func TestNotifyRecordRowRoundTrip(t *testing.T) {
	rec := NotifyRecord{UserID: 1, ChannelID: 2, IsValid: true}
	assert.Equal(t, []string{"1", "2", "True"}, rec.ToRow())

	got := NotifyRecordFromMap(map[string]string{"user_id": "1", "channel_id": "2", "is_valid": "True"})
	assert.Equal(t, rec, got)

	got = NotifyRecordFromMap(map[string]string{"user_id": "1", "channel_id": "2", "is_valid": "False"})
	assert.False(t, got.IsValid)
}
