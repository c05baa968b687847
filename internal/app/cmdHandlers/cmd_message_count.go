package cmdHandlers

import (
	"context"
	"fmt"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/export"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// handleMessageCount counts messages per member per channel and replies with
// a CSV artifact: one "user" column plus one column per scanned channel.
func (c *CmdHandler) handleMessageCount(ctx context.Context, m *chat.Message, a args.Args) error {
	if !a.Has("channel") {
		return args.NewArgumentError("channel", "チャンネルIDを一つ以上必ず設定してください")
	}
	channelIDs, err := a.Int64List("channel", ",", nil)
	if err != nil {
		return err
	}
	window, err := timewindow.ParseBeforeAfter(a)
	if err != nil {
		return err
	}

	result, err := c.aggregator.CountMessages(ctx, m.GuildID, channelIDs, window)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s チャンネルID: `%d`", warning.Reason, warning.ChannelID))
	}

	data, err := export.MessageCountCSV(result)
	if err != nil {
		return err
	}

	beforeStr, afterStr := c.displayRange(ctx, m.GuildID, window)
	embed := &chat.Embed{
		Title:       MessageCountCmd,
		Description: fmt.Sprintf("集計期間: %s ~ %s", afterStr, beforeStr),
	}
	for _, ch := range result.Channels {
		embed.AddField("#"+ch.Name, fmt.Sprintf("%d", ch.ID), false)
	}
	c.sendFile(ctx, m.ChannelID, export.MessageCountFilename(afterStr, beforeStr), data, "", embed)
	return nil
}
