package cmdHandlers

import (
	"context"
	"fmt"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// handleLoggingMessages refreshes the guild's directory snapshot sheets.
// update=channel,member selects which snapshots to rewrite.
func (c *CmdHandler) handleLoggingMessages(ctx context.Context, m *chat.Message, a args.Args) error {
	modes := a.List("update", ",", nil)
	if len(modes) == 0 {
		return args.NewArgumentError("update", "更新対象を指定してください(channel/member)")
	}
	for _, mode := range modes {
		switch mode {
		case "channel":
			n, err := c.directory.SyncChannels(ctx, m.GuildID)
			if err != nil {
				return err
			}
			c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("チャンネル一覧を更新しました(%d件)", n))
		case "member":
			n, err := c.directory.SyncMembers(ctx, m.GuildID)
			if err != nil {
				return err
			}
			c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("メンバー一覧を更新しました(%d件)", n))
		default:
			return args.NewArgumentError("update", fmt.Sprintf("不明な更新対象です: %s", mode))
		}
	}
	return nil
}
