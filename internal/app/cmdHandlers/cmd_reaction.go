package cmdHandlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/export"
	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// handleMentionReaction mentions users by their reaction status on a message,
// or manages the guild's ignore list when the manage flag is set.
func (c *CmdHandler) handleMentionReaction(ctx context.Context, m *chat.Message, a args.Args) error {
	if a.Bool("manage", false) {
		return c.manageIgnoreList(ctx, m, a)
	}
	return c.mentionReactionUsers(ctx, m, a)
}

func (c *CmdHandler) mentionReactionUsers(ctx context.Context, m *chat.Message, a args.Args) error {
	if !a.Has("message") {
		return args.NewArgumentError("message", "対象のメッセージIDを必ず指定してください")
	}
	if !a.Has("reaction") {
		return args.NewArgumentError("reaction", "対象のリアクションを必ず指定してください")
	}
	messageID, err := a.Int64("message", 0)
	if err != nil {
		return args.NewArgumentError("message", "メッセージIDの指定が正しくありません")
	}
	reaction := a.String("reaction", "")
	useIgnoreList := a.Bool("ignore_list", true)
	expand := a.Bool("expand_message", false)

	var ignoreIDs []int64
	if useIgnoreList {
		ignoreIDs, err = c.ignore.IDs(ctx, m.GuildID)
		if err != nil {
			return err
		}
	}

	_, target, err := c.auditor.FindMessage(ctx, m.GuildID, messageID)
	if err != nil {
		return err
	}
	result, err := c.auditor.Audit(ctx, m.GuildID, target, service.ReactionQuery{Emoji: reaction, IgnoreIDs: ignoreIDs})
	if err != nil {
		return err
	}

	var title string
	switch {
	case result.NoReaction:
		title = "リアクションしていない"
	case strings.EqualFold(reaction, "all"):
		title = "リアクションしている"
	default:
		title = fmt.Sprintf("%s をリアクションしている", reaction)
	}
	description := ""
	if len(result.Users) > 0 {
		title += "ユーザーは以下の通りです"
		mentions := make([]string, len(result.Users))
		for i, u := range result.Users {
			mentions[i] = u.Mention()
		}
		description = strings.Join(mentions, ", ")
	} else {
		title += "ユーザーは居ませんでした"
	}
	embed := &chat.Embed{Title: title, Description: description}
	embed.AddField("対象のメッセージ", target.JumpURL, false)
	c.sendEmbed(ctx, m.ChannelID, "", embed)

	if expand {
		c.sendEmbed(ctx, m.ChannelID, "", &chat.Embed{
			Title:       fmt.Sprintf("%s のメッセージ", target.Author.DisplayName),
			Description: target.Content,
		})
	}
	return nil
}

func (c *CmdHandler) manageIgnoreList(ctx context.Context, m *chat.Message, a args.Args) error {
	if !a.Bool("ignore_list", false) {
		return nil
	}
	guild, err := c.client.Guild(ctx, m.GuildID)
	if err != nil {
		return err
	}

	// append and remove become one read-once/apply/write-once batch; the
	// confirmation messages go out only after the write lands.
	var edits []service.IgnoreEdit
	var confirmations []string

	if a.Has("append") {
		appendID, err := a.Int64("append", 0)
		if err != nil {
			return args.NewArgumentError("append", "ユーザーIDの指定が正しくありません")
		}
		member, err := c.client.Member(ctx, m.GuildID, appendID)
		if errors.Is(err, chat.ErrNotFound) {
			return &service.NotFoundError{Kind: "user", ID: appendID}
		}
		if err != nil {
			return err
		}
		edits = append(edits, service.AppendIgnore(appendID))
		confirmations = append(confirmations, fmt.Sprintf(
			"%s[%d] を %s[%d] の無視リストに追加しました。", member.DisplayName, appendID, guild.Name, guild.ID))
	}

	if a.Has("remove") {
		remove := a.String("remove", "")
		if strings.EqualFold(remove, "all") {
			edits = append(edits, service.ClearIgnore())
			confirmations = append(confirmations, fmt.Sprintf(
				"%s[%d] の無視リストから全てのユーザーを除去しました。", guild.Name, guild.ID))
		} else {
			removeID, err := strconv.ParseInt(remove, 10, 64)
			if err != nil {
				return service.NewExecutionError("ユーザーIDの指定が正しくありません", "remove", remove)
			}
			edits = append(edits, service.RemoveIgnore(removeID))
			confirmations = append(confirmations, fmt.Sprintf(
				"%s[%d] の無視リストから user_id=%d を除去しました。", guild.Name, guild.ID, removeID))
		}
	}

	if len(edits) > 0 {
		if err := c.ignore.Apply(ctx, m.GuildID, edits...); err != nil {
			return err
		}
		for _, confirmation := range confirmations {
			c.sendMessage(ctx, m.ChannelID, confirmation)
		}
	}

	if a.Bool("download", false) {
		if err := c.downloadIgnoreList(ctx, m); err != nil {
			return err
		}
	}
	if a.Bool("show", false) {
		if err := c.showIgnoreList(ctx, m, guild); err != nil {
			return err
		}
	}
	return nil
}

func (c *CmdHandler) downloadIgnoreList(ctx context.Context, m *chat.Message) error {
	ids, err := c.ignore.IDs(ctx, m.GuildID)
	if err != nil {
		return err
	}
	entries := make([]export.IgnoreEntry, 0, len(ids))
	for _, id := range ids {
		entry := export.IgnoreEntry{ID: id, Name: "Not Found", DisplayName: "Not Found"}
		// the user may have left the guild since being listed
		if member, err := c.client.Member(ctx, m.GuildID, id); err == nil {
			entry.Name = member.Name
			entry.DisplayName = member.DisplayName
		}
		entries = append(entries, entry)
	}
	data, err := export.EncodeJSON(entries)
	if err != nil {
		return err
	}
	c.sendFile(ctx, m.ChannelID, export.IgnoreListFilename(m.GuildID), data, "", nil)
	return nil
}

func (c *CmdHandler) showIgnoreList(ctx context.Context, m *chat.Message, guild *chat.Guild) error {
	ids, err := c.ignore.IDs(ctx, m.GuildID)
	if err != nil {
		return err
	}
	embed := &chat.Embed{
		Title:       MentionReactionCmd + " 無視リスト",
		Description: fmt.Sprintf("サーバー: %s[%d]", guild.Name, guild.ID),
	}
	if len(ids) == 0 {
		embed.AddField("なし", "-", false)
	}
	for _, id := range ids {
		name := "[Not Found]"
		if member, err := c.client.Member(ctx, m.GuildID, id); err == nil {
			name = member.DisplayName
		}
		embed.AddField(name, strconv.FormatInt(id, 10), false)
	}
	c.sendEmbed(ctx, m.ChannelID, "", embed)
	return nil
}
