package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/guild-audit-bot/pkg/chat"
)

func TestClassifyVoiceState(t *testing.T) {
	tests := []struct {
		name   string
		before chat.VoiceState
		after  chat.VoiceState
		want   []string
	}{
		{
			name:   "join",
			before: chat.VoiceState{},
			after:  chat.VoiceState{ChannelID: 1},
			want:   []string{"join"},
		},
		{
			name:   "join already muted",
			before: chat.VoiceState{SelfMute: true},
			after:  chat.VoiceState{ChannelID: 1, SelfMute: true},
			want:   []string{"join", "mute_on"},
		},
		{
			name:   "join already muted and deafened",
			before: chat.VoiceState{SelfMute: true, SelfDeaf: true},
			after:  chat.VoiceState{ChannelID: 1, SelfMute: true, SelfDeaf: true},
			want:   []string{"join", "mute_on", "deaf_on"},
		},
		{
			name:   "leave while streaming forces stream_end",
			before: chat.VoiceState{ChannelID: 1, SelfStream: true},
			after:  chat.VoiceState{SelfStream: false},
			want:   []string{"leave", "stream_end"},
		},
		{
			name:   "leave with video forces video_off",
			before: chat.VoiceState{ChannelID: 1, SelfVideo: true},
			after:  chat.VoiceState{},
			want:   []string{"leave", "video_off"},
		},
		{
			name:   "move keeps independent video_on",
			before: chat.VoiceState{ChannelID: 1},
			after:  chat.VoiceState{ChannelID: 2, SelfVideo: true},
			want:   []string{"move", "video_on"},
		},
		{
			name:   "move while streaming dedupes stream_end",
			before: chat.VoiceState{ChannelID: 1, SelfStream: true},
			after:  chat.VoiceState{ChannelID: 2, SelfStream: false},
			want:   []string{"move", "stream_end"},
		},
		{
			name:   "same channel flag toggles only",
			before: chat.VoiceState{ChannelID: 1, SelfMute: true},
			after:  chat.VoiceState{ChannelID: 1, SelfMute: false, SelfDeaf: true},
			want:   []string{"mute_off", "deaf_on"},
		},
		{
			name:   "afk transitions",
			before: chat.VoiceState{ChannelID: 1, AFK: false},
			after:  chat.VoiceState{ChannelID: 1, AFK: true},
			want:   []string{"afk_in"},
		},
		{
			name:   "no change",
			before: chat.VoiceState{ChannelID: 1},
			after:  chat.VoiceState{ChannelID: 1},
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyVoiceState(tt.before, tt.after)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyVoiceStateDeterministic(t *testing.T) {
	before := chat.VoiceState{ChannelID: 1, SelfStream: true, SelfVideo: true}
	after := chat.VoiceState{SelfMute: true}

	first := ClassifyVoiceState(before, after)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ClassifyVoiceState(before, after))
	}

	seen := map[string]bool{}
	for _, tag := range first {
		assert.False(t, seen[tag], "duplicate tag %s", tag)
		seen[tag] = true
	}
}

func TestJoinTags(t *testing.T) {
	assert.Equal(t, "join,mute_on", JoinTags([]string{"join", "mute_on"}))
	assert.Equal(t, "", JoinTags(nil))
}
