package cmdHandlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// handleNotifyWhenSent manages (user, channel) message-notification
// subscriptions: register/delete/enable/disable/list.
func (c *CmdHandler) handleNotifyWhenSent(ctx context.Context, m *chat.Message, a args.Args) error {
	if a.Bool("list", false) {
		return c.listNotify(ctx, m, a.Bool("all", false))
	}

	var mode string
	for _, candidate := range []string{"register", "delete", "enable", "disable"} {
		if a.Bool(candidate, false) {
			mode = candidate
			break
		}
	}
	if mode == "" {
		return args.NewArgumentError("mode", "モードを必ず指定してください(register/delete/enable/disable/list)")
	}
	if !a.Has("channel") {
		return args.NewArgumentError("channel", "対象となるチャンネルを指定してください")
	}
	channelID, err := a.Int64("channel", 0)
	if err != nil {
		return args.NewArgumentError("channel", "チャンネルIDの指定が正しくありません")
	}
	channel, err := c.client.Channel(ctx, channelID)
	if errors.Is(err, chat.ErrNotFound) {
		return &service.NotFoundError{Kind: "channel", ID: channelID}
	}
	if err != nil {
		return err
	}

	switch mode {
	case "register":
		if err := c.notify.Register(ctx, m.GuildID, m.Author.ID, channelID); err != nil {
			return err
		}
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s を通知対象として登録しました", channel.Mention()))
	case "delete":
		if err := c.notify.Delete(ctx, m.GuildID, m.Author.ID, channelID); err != nil {
			return err
		}
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s の通知設定を削除しました", channel.Mention()))
	case "enable":
		if err := c.notify.SetValid(ctx, m.GuildID, m.Author.ID, channelID, true); err != nil {
			return err
		}
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s の通知設定を有効にしました", channel.Mention()))
	case "disable":
		if err := c.notify.SetValid(ctx, m.GuildID, m.Author.ID, channelID, false); err != nil {
			return err
		}
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s の通知設定を無効にしました", channel.Mention()))
	}
	return nil
}

func (c *CmdHandler) listNotify(ctx context.Context, m *chat.Message, all bool) error {
	guildName := ""
	if guild, err := c.client.Guild(ctx, m.GuildID); err == nil {
		guildName = guild.Name
	}
	embed := &chat.Embed{
		Title:       fmt.Sprintf("%s の通知一覧", m.Author.DisplayName),
		Description: fmt.Sprintf("サーバー名: %s", guildName),
	}
	for _, record := range c.notify.List(m.GuildID, m.Author.ID, all) {
		channelName := fmt.Sprintf("%d", record.ChannelID)
		if channel, err := c.client.Channel(ctx, record.ChannelID); err == nil {
			channelName = channel.Name
		}
		state := "無効"
		if record.IsValid {
			state = "有効"
		}
		embed.AddField(fmt.Sprintf("チャンネル名: %s", channelName), fmt.Sprintf("通知状態: %s", state), false)
	}
	c.sendEmbed(ctx, m.ChannelID, "", embed)
	return nil
}
