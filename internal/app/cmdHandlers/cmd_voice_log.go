package cmdHandlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/export"
	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// handleVoiceStates counts matching voice-log records per (user, channel)
// pair and replies with a JSON artifact.
func (c *CmdHandler) handleVoiceStates(ctx context.Context, m *chat.Message, a args.Args) error {
	if !a.Has("count") {
		return args.NewArgumentError("count", "対象のステートを必ず指定してください")
	}
	userIDs, err := a.Int64List("user", ",", nil)
	if err != nil {
		return err
	}
	channelIDs, err := a.Int64List("channel", ",", nil)
	if err != nil {
		return err
	}
	window, err := timewindow.ParseBeforeAfter(a)
	if err != nil {
		return err
	}

	params := service.CountParams{
		State:      a.String("count", ""),
		UserIDs:    userIDs,
		ChannelIDs: channelIDs,
		Window:     window,
		Minimum:    a.Bool("minimum", true),
	}
	results, err := c.voiceLog.CountStates(ctx, m.GuildID, params)
	if err != nil {
		return err
	}

	data, err := export.EncodeJSON(results)
	if err != nil {
		return err
	}
	beforeStr, afterStr := c.displayRange(ctx, m.GuildID, window)
	filename := strings.ReplaceAll(
		fmt.Sprintf("logging_voice_states_count_%s_%s_%s.json", params.State, afterStr, beforeStr), "/", "")
	c.sendFile(ctx, m.ChannelID, filename, data, "", nil)
	return nil
}
