package cmdHandlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

const defaultEmojiRank = 10

// handleEmojiCount ranks the guild's custom emojis by combined content and
// reaction use and replies with an embed of the top (or bottom) entries.
func (c *CmdHandler) handleEmojiCount(ctx context.Context, m *chat.Message, a args.Args) error {
	channelIDs, err := a.Int64List("channel", ",", nil)
	if err != nil {
		return err
	}
	window, err := timewindow.ParseBeforeAfter(a)
	if err != nil {
		return err
	}
	includeBots := a.Bool("bot", false)
	order := service.ParseSortOrder(a.String("order", ""))
	rank, err := a.Int("rank", defaultEmojiRank)
	if err != nil {
		return err
	}

	result, err := c.aggregator.CountEmojis(ctx, m.GuildID, channelIDs, window, includeBots, order, rank)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s チャンネルID: `%d`", warning.Reason, warning.ChannelID))
	}

	title := fmt.Sprintf("カスタム絵文字 ランキング ワースト%d", result.Rank)
	if order == service.SortDescending {
		title = fmt.Sprintf("カスタム絵文字 ランキング ベスト%d", result.Rank)
	}
	beforeStr, afterStr := c.displayRange(ctx, m.GuildID, window)
	embed := &chat.Embed{
		Title:       title,
		Description: fmt.Sprintf("%s ~ %s", afterStr, beforeStr),
	}
	names := make([]string, 0, len(result.Counts))
	for i, count := range result.Counts {
		embed.AddField(
			fmt.Sprintf("%d位 %s 合計: %d回", i+1, count.Emoji, count.Total()),
			fmt.Sprintf("メッセージ内: %d回 リアクション: %d回", count.Content, count.Reaction),
			false,
		)
		names = append(names, count.Emoji.String())
	}
	c.sendEmbed(ctx, m.ChannelID, "", embed)
	c.sendMessage(ctx, m.ChannelID, strings.Join(names, " "))
	return nil
}
