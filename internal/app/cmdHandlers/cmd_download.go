package cmdHandlers

import (
	"context"
	"fmt"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/export"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// handleDownloadMessages dumps one channel's history within the window as a
// JSON artifact.
func (c *CmdHandler) handleDownloadMessages(ctx context.Context, m *chat.Message, a args.Args) error {
	channelID, err := a.RequireInt64("channel")
	if err != nil {
		return err
	}
	window, err := timewindow.ParseBeforeAfter(a)
	if err != nil {
		return err
	}

	ch, msgs, err := c.aggregator.DumpMessages(ctx, channelID, window)
	if err != nil {
		return err
	}

	data, err := export.EncodeJSON(export.MessageRecords(msgs))
	if err != nil {
		return err
	}

	// hyphenated bounds with "None" for an open side, matching the filename
	beforeStr, afterStr := "None", "None"
	if window.Before != nil {
		beforeStr = window.Before.In(timewindow.JST).Format(timewindow.DateFormatHyphen)
	}
	if window.After != nil {
		afterStr = window.After.In(timewindow.JST).Format(timewindow.DateFormatHyphen)
	}
	text := fmt.Sprintf("#%s\n%s ~ %s", ch.Name, afterStr, beforeStr)
	c.sendFile(ctx, m.ChannelID, export.MessageDumpFilename(ch.ID, afterStr, beforeStr), data, text, nil)
	return nil
}
