package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// MessageIter yields history messages newest-first; nil message is the end.
type MessageIter interface {
	Next(ctx context.Context) (*chat.Message, error)
}

// HistorySource is the part of the chat client the aggregator reads from.
type HistorySource interface {
	Channel(ctx context.Context, channelID int64) (*chat.Channel, error)
	GuildChannels(ctx context.Context, guildID int64) ([]chat.Channel, error)
	GuildMembers(ctx context.Context, guildID int64) ([]chat.Member, error)
	GuildEmojis(ctx context.Context, guildID int64) ([]chat.Emoji, error)
	History(channelID int64, before, after *time.Time) MessageIter
}

// ChannelWarning records a requested channel that was excluded from a scan.
type ChannelWarning struct {
	ChannelID int64
	Reason    string
}

// HistoryAggregator folds message history into per-entity counters.
type HistoryAggregator struct {
	src    HistorySource
	logger zerolog.Logger
}

func NewHistoryAggregator(src HistorySource, logger zerolog.Logger) *HistoryAggregator {
	return &HistoryAggregator{src: src, logger: logger}
}

// MessageCountResult maps user id → channel id → message count. Counters
// exist for the full (non-bot member × scanned channel) cross-product, so
// absent activity is an explicit zero.
type MessageCountResult struct {
	Users    []chat.Member
	Channels []chat.Channel
	Counts   map[int64]map[int64]int
	Warnings []ChannelWarning
}

// CountMessages counts messages per non-bot member per requested channel
// within the window. A channel id that does not resolve, or resolves to a
// non-text channel, is excluded with a warning; the scan continues.
func (a *HistoryAggregator) CountMessages(ctx context.Context, guildID int64, channelIDs []int64, w timewindow.Window) (*MessageCountResult, error) {
	members, err := a.src.GuildMembers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	var users []chat.Member
	for _, m := range members {
		if !m.Bot {
			users = append(users, m)
		}
	}

	result := &MessageCountResult{
		Users:  users,
		Counts: map[int64]map[int64]int{},
	}
	for _, u := range users {
		result.Counts[u.ID] = map[int64]int{}
	}

	for _, channelID := range channelIDs {
		ch, err := a.src.Channel(ctx, channelID)
		if err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				a.logger.Error().Int64("channel_id", channelID).Msg("not found channel")
				result.Warnings = append(result.Warnings, ChannelWarning{ChannelID: channelID, Reason: "チャンネルが見つかりませんでした"})
				continue
			}
			return nil, fmt.Errorf("resolve channel %d: %w", channelID, err)
		}
		if ch.Type != chat.ChannelTypeText {
			a.logger.Error().Str("channel", ch.Name).Str("type", string(ch.Type)).Msg("not a text channel")
			result.Warnings = append(result.Warnings, ChannelWarning{ChannelID: channelID, Reason: "テキストチャンネルではありません"})
			continue
		}

		// seed explicit zeros for this channel before scanning
		for _, u := range users {
			result.Counts[u.ID][ch.ID] = 0
		}

		it := a.src.History(ch.ID, w.QueryBefore(), w.QueryAfter())
		for {
			msg, err := it.Next(ctx)
			if err != nil {
				return nil, fmt.Errorf("scan %s history: %w", ch.Name, err)
			}
			if msg == nil {
				break
			}
			if counts, ok := result.Counts[msg.Author.ID]; ok {
				counts[ch.ID]++
			}
		}
		result.Channels = append(result.Channels, *ch)
	}
	return result, nil
}

// DumpMessages collects a channel's full history within the window,
// newest-first as the stream yields it. Unlike the counting scans, a channel
// that does not resolve or is not a text channel is a hard error here.
func (a *HistoryAggregator) DumpMessages(ctx context.Context, channelID int64, w timewindow.Window) (*chat.Channel, []chat.Message, error) {
	ch, err := a.src.Channel(ctx, channelID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, nil, &NotFoundError{Kind: "channel", ID: channelID}
		}
		return nil, nil, fmt.Errorf("resolve channel %d: %w", channelID, err)
	}
	if ch.Type != chat.ChannelTypeText {
		return nil, nil, &ChannelTypeError{Name: ch.Name, Type: string(ch.Type)}
	}

	it := a.src.History(ch.ID, w.QueryBefore(), w.QueryAfter())
	var msgs []chat.Message
	for {
		msg, err := it.Next(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("scan %s history: %w", ch.Name, err)
		}
		if msg == nil {
			break
		}
		msgs = append(msgs, *msg)
	}
	return ch, msgs, nil
}

type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// ParseSortOrder maps the order argument: "descending" sorts high-to-low,
// anything else ascending.
func ParseSortOrder(value string) SortOrder {
	if strings.EqualFold(value, "descending") {
		return SortDescending
	}
	return SortAscending
}

// EmojiCount is the counter pair for one guild custom emoji.
type EmojiCount struct {
	Emoji    chat.Emoji
	Content  int // textual mentions in message bodies
	Reaction int // reaction groups using the emoji
}

func (c EmojiCount) Total() int { return c.Content + c.Reaction }

// EmojiCountResult holds the ranked counters after clamping.
type EmojiCountResult struct {
	Counts   []EmojiCount
	Rank     int
	Order    SortOrder
	Warnings []ChannelWarning
}

// CountEmojis counts content mentions and reaction uses of every guild
// custom emoji over the requested channels (all text channels when none
// given). Channels the bot cannot read are skipped with a warning; this is
// the scan's one partial-failure-tolerant path.
func (a *HistoryAggregator) CountEmojis(ctx context.Context, guildID int64, channelIDs []int64, w timewindow.Window, includeBots bool, order SortOrder, rank int) (*EmojiCountResult, error) {
	emojis, err := a.src.GuildEmojis(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch emojis: %w", err)
	}
	counters := make([]EmojiCount, len(emojis))
	for i, e := range emojis {
		counters[i] = EmojiCount{Emoji: e}
	}

	result := &EmojiCountResult{Order: order}

	channels, warnings, err := a.resolveTextChannels(ctx, guildID, channelIDs)
	if err != nil {
		return nil, err
	}
	result.Warnings = warnings

	for _, ch := range channels {
		it := a.src.History(ch.ID, w.QueryBefore(), w.QueryAfter())
		for {
			msg, err := it.Next(ctx)
			if err != nil {
				if errors.Is(err, chat.ErrForbidden) {
					a.logger.Warn().Str("channel", ch.Name).Msg("no permission to read history, skipping")
					result.Warnings = append(result.Warnings, ChannelWarning{ChannelID: ch.ID, Reason: "履歴を取得できませんでした"})
					break
				}
				return nil, fmt.Errorf("scan %s history: %w", ch.Name, err)
			}
			if msg == nil {
				break
			}
			for i := range counters {
				tallyEmoji(&counters[i], msg, includeBots)
			}
		}
	}

	result.Rank = clampRank(rank, len(counters))
	sort.SliceStable(counters, func(i, j int) bool {
		if order == SortDescending {
			return counters[i].Total() > counters[j].Total()
		}
		return counters[i].Total() < counters[j].Total()
	})
	if len(counters) > result.Rank {
		counters = counters[:result.Rank]
	}
	result.Counts = counters
	return result, nil
}

func tallyEmoji(c *EmojiCount, msg *chat.Message, includeBots bool) {
	if c.Emoji.Name != "" && strings.Contains(msg.Content, c.Emoji.Name) {
		if includeBots || !msg.Author.Bot {
			c.Content++
		}
	}
	for _, reaction := range msg.Reactions {
		if !reaction.Emoji.Is(c.Emoji) {
			continue
		}
		if !includeBots && allBots(reaction.Users) {
			continue
		}
		c.Reaction++
	}
}

func allBots(users []chat.Member) bool {
	if len(users) == 0 {
		return false
	}
	for _, u := range users {
		if !u.Bot {
			return false
		}
	}
	return true
}

func clampRank(rank, tracked int) int {
	if rank > tracked {
		rank = tracked
	}
	if rank < 1 {
		rank = 1
	}
	return rank
}

// resolveTextChannels resolves an explicit channel id list (warning on bad
// entries) or falls back to every text channel in the guild.
func (a *HistoryAggregator) resolveTextChannels(ctx context.Context, guildID int64, channelIDs []int64) ([]chat.Channel, []ChannelWarning, error) {
	if len(channelIDs) == 0 {
		all, err := a.src.GuildChannels(ctx, guildID)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch channels: %w", err)
		}
		var channels []chat.Channel
		for _, ch := range all {
			if ch.Type == chat.ChannelTypeText {
				channels = append(channels, ch)
			}
		}
		return channels, nil, nil
	}

	var channels []chat.Channel
	var warnings []ChannelWarning
	for _, id := range channelIDs {
		ch, err := a.src.Channel(ctx, id)
		if err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				warnings = append(warnings, ChannelWarning{ChannelID: id, Reason: "チャンネルが見つかりませんでした"})
				continue
			}
			return nil, nil, fmt.Errorf("resolve channel %d: %w", id, err)
		}
		if ch.Type != chat.ChannelTypeText {
			warnings = append(warnings, ChannelWarning{ChannelID: id, Reason: "テキストチャンネルではありません"})
			continue
		}
		channels = append(channels, *ch)
	}
	return channels, warnings, nil
}
