package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/pkg/chat"
)

// ReactionSource is the part of the chat client the reaction audit reads.
type ReactionSource interface {
	GuildChannels(ctx context.Context, guildID int64) ([]chat.Channel, error)
	GuildMembers(ctx context.Context, guildID int64) ([]chat.Member, error)
	ChannelMessage(ctx context.Context, channelID, messageID int64) (*chat.Message, error)
}

// ReactionAuditor resolves a message by id and reports which members did or
// did not react to it.
type ReactionAuditor struct {
	src    ReactionSource
	logger zerolog.Logger
}

func NewReactionAuditor(src ReactionSource, logger zerolog.Logger) *ReactionAuditor {
	return &ReactionAuditor{src: src, logger: logger}
}

// FindMessage searches the guild's text channels for the message. Channels
// where the message is absent or the bot lacks access are skipped.
func (a *ReactionAuditor) FindMessage(ctx context.Context, guildID, messageID int64) (*chat.Channel, *chat.Message, error) {
	channels, err := a.src.GuildChannels(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}
	for _, ch := range channels {
		if ch.Type != chat.ChannelTypeText {
			continue
		}
		msg, err := a.src.ChannelMessage(ctx, ch.ID, messageID)
		if errors.Is(err, chat.ErrNotFound) || errors.Is(err, chat.ErrForbidden) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		a.logger.Debug().Str("channel", ch.Name).Int64("message_id", messageID).Msg("message found")
		found := ch
		return &found, msg, nil
	}
	return nil, nil, &NotFoundError{Kind: "message", ID: messageID}
}

// ReactionQuery selects which users to report.
type ReactionQuery struct {
	// Emoji is the reaction selector: an emoji string, "all" for users with
	// any reaction, or "none" for members with no reaction at all.
	Emoji string
	// IgnoreIDs excludes the listed users from the result.
	IgnoreIDs []int64
}

// AuditResult lists the matching users, deduplicated, in first-seen order.
type AuditResult struct {
	Users []chat.Member
	// NoReaction is true when the query asked for members without reactions.
	NoReaction bool
}

// Audit evaluates the query against one message. Bots, the message author and
// ignored users are never reported.
func (a *ReactionAuditor) Audit(ctx context.Context, guildID int64, msg *chat.Message, q ReactionQuery) (*AuditResult, error) {
	switch strings.ToLower(q.Emoji) {
	case "none":
		members, err := a.src.GuildMembers(ctx, guildID)
		if err != nil {
			return nil, err
		}
		candidates := filterAuditUsers(members, msg, q.IgnoreIDs)
		return &AuditResult{Users: noReactionUsers(msg, candidates), NoReaction: true}, nil
	case "all":
		var users []chat.Member
		for _, r := range msg.Reactions {
			users = append(users, filterAuditUsers(r.Users, msg, q.IgnoreIDs)...)
		}
		return &AuditResult{Users: dedupeMembers(users)}, nil
	default:
		return &AuditResult{Users: dedupeMembers(reactionUsers(msg, q.Emoji, q.IgnoreIDs))}, nil
	}
}

// reactionUsers returns the filtered users of the first reaction group whose
// emoji matches the query.
func reactionUsers(msg *chat.Message, emoji string, ignoreIDs []int64) []chat.Member {
	for _, r := range msg.Reactions {
		if !r.Emoji.Matches(emoji) {
			continue
		}
		return filterAuditUsers(r.Users, msg, ignoreIDs)
	}
	return nil
}

// noReactionUsers removes every candidate who appears in any reaction group.
func noReactionUsers(msg *chat.Message, candidates []chat.Member) []chat.Member {
	reacted := make(map[int64]bool)
	for _, r := range msg.Reactions {
		for _, u := range r.Users {
			reacted[u.ID] = true
		}
	}
	var out []chat.Member
	for _, c := range candidates {
		if !reacted[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func filterAuditUsers(users []chat.Member, msg *chat.Message, ignoreIDs []int64) []chat.Member {
	ignored := make(map[int64]bool, len(ignoreIDs))
	for _, id := range ignoreIDs {
		ignored[id] = true
	}
	var out []chat.Member
	for _, u := range users {
		if u.Bot || u.ID == msg.Author.ID || ignored[u.ID] {
			continue
		}
		out = append(out, u)
	}
	return out
}

func dedupeMembers(users []chat.Member) []chat.Member {
	seen := make(map[int64]bool, len(users))
	out := users[:0]
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}
