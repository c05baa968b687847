package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guild-audit-bot/pkg/chat"
)

type fakeReactionSource struct {
	channels map[int64][]chat.Channel
	members  map[int64][]chat.Member
	messages map[int64]map[int64]*chat.Message // channel id -> message id
	denied   map[int64]bool                    // channel ids returning forbidden
}

func (f *fakeReactionSource) GuildChannels(_ context.Context, guildID int64) ([]chat.Channel, error) {
	return f.channels[guildID], nil
}

func (f *fakeReactionSource) GuildMembers(_ context.Context, guildID int64) ([]chat.Member, error) {
	return f.members[guildID], nil
}

func (f *fakeReactionSource) ChannelMessage(_ context.Context, channelID, messageID int64) (*chat.Message, error) {
	if f.denied[channelID] {
		return nil, chat.ErrForbidden
	}
	msg, ok := f.messages[channelID][messageID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return msg, nil
}

var (
	auditAuthor = chat.Member{ID: 1, Name: "author"}
	auditAlice  = chat.Member{ID: 2, Name: "alice"}
	auditBob    = chat.Member{ID: 3, Name: "bob"}
	auditCarol  = chat.Member{ID: 4, Name: "carol"}
	auditBot    = chat.Member{ID: 5, Name: "beep", Bot: true}
)

func newAuditFixture() (*ReactionAuditor, *chat.Message) {
	msg := &chat.Message{
		ID: 100, ChannelID: 11, Author: auditAuthor,
		Reactions: []chat.Reaction{
			{Emoji: chat.Emoji{Kind: chat.EmojiCustom, ID: 900, Name: "sushi"}, Users: []chat.Member{auditAlice, auditBot}},
			{Emoji: chat.Emoji{Kind: chat.EmojiUnicode, Text: "👍"}, Users: []chat.Member{auditAlice, auditBob, auditAuthor}},
		},
	}
	src := &fakeReactionSource{
		channels: map[int64][]chat.Channel{
			10: {
				{ID: 11, Name: "general", Type: chat.ChannelTypeText},
				{ID: 12, Name: "vault", Type: chat.ChannelTypeText},
				{ID: 13, Name: "lounge", Type: chat.ChannelTypeVoice},
			},
		},
		members: map[int64][]chat.Member{
			10: {auditAuthor, auditAlice, auditBob, auditCarol, auditBot},
		},
		messages: map[int64]map[int64]*chat.Message{11: {100: msg}},
		denied:   map[int64]bool{12: true},
	}
	return NewReactionAuditor(src, zerolog.Nop()), msg
}

func TestFindMessageSkipsInaccessibleChannels(t *testing.T) {
	auditor, _ := newAuditFixture()

	ch, msg, err := auditor.FindMessage(context.Background(), 10, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(11), ch.ID)
	assert.Equal(t, int64(100), msg.ID)
}

func TestFindMessageNotFound(t *testing.T) {
	auditor, _ := newAuditFixture()

	_, _, err := auditor.FindMessage(context.Background(), 10, 999)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "message", notFound.Kind)
}

func TestAuditSpecificEmoji(t *testing.T) {
	auditor, msg := newAuditFixture()

	res, err := auditor.Audit(context.Background(), 10, msg, ReactionQuery{Emoji: ":sushi:"})
	require.NoError(t, err)
	// The bot reactor is dropped, the human one kept.
	assert.Equal(t, []chat.Member{auditAlice}, res.Users)
}

func TestAuditUnicodeEmojiDropsAuthor(t *testing.T) {
	auditor, msg := newAuditFixture()

	res, err := auditor.Audit(context.Background(), 10, msg, ReactionQuery{Emoji: "👍"})
	require.NoError(t, err)
	assert.Equal(t, []chat.Member{auditAlice, auditBob}, res.Users)
}

func TestAuditUnknownEmojiIsEmpty(t *testing.T) {
	auditor, msg := newAuditFixture()

	res, err := auditor.Audit(context.Background(), 10, msg, ReactionQuery{Emoji: "🎲"})
	require.NoError(t, err)
	assert.Empty(t, res.Users)
}

func TestAuditAllDeduplicates(t *testing.T) {
	auditor, msg := newAuditFixture()

	res, err := auditor.Audit(context.Background(), 10, msg, ReactionQuery{Emoji: "all"})
	require.NoError(t, err)
	// alice reacted twice but appears once.
	assert.Equal(t, []chat.Member{auditAlice, auditBob}, res.Users)
}

func TestAuditNone(t *testing.T) {
	auditor, msg := newAuditFixture()

	res, err := auditor.Audit(context.Background(), 10, msg, ReactionQuery{Emoji: "none"})
	require.NoError(t, err)
	assert.True(t, res.NoReaction)
	// carol never reacted; bots and the author are out of scope.
	assert.Equal(t, []chat.Member{auditCarol}, res.Users)
}

func TestAuditIgnoreList(t *testing.T) {
	auditor, msg := newAuditFixture()

	res, err := auditor.Audit(context.Background(), 10, msg, ReactionQuery{Emoji: "👍", IgnoreIDs: []int64{auditAlice.ID}})
	require.NoError(t, err)
	assert.Equal(t, []chat.Member{auditBob}, res.Users)
}
