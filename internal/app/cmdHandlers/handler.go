// Package cmdHandlers dispatches slash commands and gateway events to the
// domain services and renders their results back into the chat.
package cmdHandlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/args"
	"github.com/example/guild-audit-bot/internal/service"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

const (
	MessageCountCmd     = "/message_count"
	EmojiCountCmd       = "/emoji_count"
	VoiceStatesCmd      = "/logging_voice_states"
	LoggingMessagesCmd  = "/logging_messages"
	MentionReactionCmd  = "/mention_to_reaction_users"
	NotifyWhenSentCmd   = "/notify_when_sent"
	DownloadMessagesCmd = "/download_messages_json"
	PingCmd             = "/ping"
)

// ChatClient is the part of the chat API the handlers reply through.
type ChatClient interface {
	SendMessage(ctx context.Context, channelID int64, text string) error
	SendEmbed(ctx context.Context, channelID int64, text string, embed *chat.Embed) error
	SendDirectEmbed(ctx context.Context, userID int64, embed *chat.Embed) error
	SendFile(ctx context.Context, channelID int64, filename string, content []byte, text string, embed *chat.Embed) error
	Guild(ctx context.Context, guildID int64) (*chat.Guild, error)
	Channel(ctx context.Context, channelID int64) (*chat.Channel, error)
	Member(ctx context.Context, guildID, userID int64) (*chat.Member, error)
}

type CmdHandler struct {
	client     ChatClient
	aggregator *service.HistoryAggregator
	voiceLog   *service.VoiceLogService
	notify     *service.NotifyService
	ignore     *service.IgnoreListService
	directory  *service.DirectoryService
	auditor    *service.ReactionAuditor
	logger     zerolog.Logger
}

func NewCmdHandler(
	client ChatClient,
	aggregator *service.HistoryAggregator,
	voiceLog *service.VoiceLogService,
	notify *service.NotifyService,
	ignore *service.IgnoreListService,
	directory *service.DirectoryService,
	auditor *service.ReactionAuditor,
	logger zerolog.Logger,
) *CmdHandler {
	return &CmdHandler{
		client:     client,
		aggregator: aggregator,
		voiceLog:   voiceLog,
		notify:     notify,
		ignore:     ignore,
		directory:  directory,
		auditor:    auditor,
		logger:     logger,
	}
}

// HandleMessage processes one incoming message: notify subscriptions first,
// then command dispatch when the message is a slash command.
func (c *CmdHandler) HandleMessage(ctx context.Context, m *chat.Message) {
	if m.Author.Bot {
		return
	}
	if m.GuildID == 0 {
		return
	}

	c.notifyOnMessage(ctx, m)

	if !strings.HasPrefix(m.Content, "/") {
		return
	}
	fields := strings.Fields(m.Content)
	cmd := fields[0]
	a := args.Parse(fields[1:])

	logger := c.logger.With().
		Str("cmd", cmd).
		Str("invocation_id", ulid.Make().String()).
		Int64("guild_id", m.GuildID).
		Int64("user_id", m.Author.ID).
		Logger()
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Any("panic", r).Msg("command panicked")
			c.sendMessage(ctx, m.ChannelID, "コマンドの実行に失敗しました。管理者に問い合わせてください。")
		}
	}()

	var err error
	switch cmd {
	case MessageCountCmd:
		err = c.handleMessageCount(ctx, m, a)
	case EmojiCountCmd:
		err = c.handleEmojiCount(ctx, m, a)
	case VoiceStatesCmd:
		err = c.handleVoiceStates(ctx, m, a)
	case LoggingMessagesCmd:
		err = c.handleLoggingMessages(ctx, m, a)
	case MentionReactionCmd:
		err = c.handleMentionReaction(ctx, m, a)
	case NotifyWhenSentCmd:
		err = c.handleNotifyWhenSent(ctx, m, a)
	case DownloadMessagesCmd:
		err = c.handleDownloadMessages(ctx, m, a)
	case PingCmd:
		err = c.handlePing(ctx, m)
	default:
		logger.Debug().Msg("unknown command")
		return
	}

	logger.Info().Err(err).Msg("command executed")
	if err != nil {
		c.replyError(ctx, m, err)
	}
}

// HandleVoiceUpdate appends one voice-log record per transition.
func (c *CmdHandler) HandleVoiceUpdate(ctx context.Context, up chat.VoiceUpdate) {
	if err := c.voiceLog.RecordUpdate(ctx, up); err != nil {
		c.logger.Error().Err(err).Int64("guild_id", up.GuildID).Msg("record voice update")
	}
}

// HandleReady rehydrates the notify caches for every connected guild.
func (c *CmdHandler) HandleReady(ctx context.Context, guildIDs []int64) {
	for _, guildID := range guildIDs {
		if err := c.notify.Rehydrate(ctx, guildID); err != nil {
			c.logger.Error().Err(err).Int64("guild_id", guildID).Msg("rehydrate notify records")
		}
	}
}

// notifyOnMessage DMs every subscriber whose (user, channel) subscription
// matches the message.
func (c *CmdHandler) notifyOnMessage(ctx context.Context, m *chat.Message) {
	records := c.notify.Matches(m.GuildID, m.ChannelID, m.Author.ID)
	if len(records) == 0 {
		return
	}
	guildName := ""
	if guild, err := c.client.Guild(ctx, m.GuildID); err == nil {
		guildName = guild.Name
	}
	channelName := ""
	if ch, err := c.client.Channel(ctx, m.ChannelID); err == nil {
		channelName = ch.Name
	}
	for _, record := range records {
		member, err := c.client.Member(ctx, m.GuildID, record.UserID)
		if err != nil {
			continue
		}
		embed := &chat.Embed{
			Title:       fmt.Sprintf("#%s(%s)にメッセージの送信がありました", channelName, guildName),
			Description: m.JumpURL,
		}
		if err := c.client.SendDirectEmbed(ctx, member.ID, embed); err != nil {
			c.logger.Error().Err(err).Int64("user_id", member.ID).Msg("send notify dm")
		}
	}
}

// replyError renders the error taxonomy into user-facing messages. Anything
// outside the taxonomy gets a generic reply and a log entry.
func (c *CmdHandler) replyError(ctx context.Context, m *chat.Message, err error) {
	var argErr *args.ArgumentError
	if errors.As(err, &argErr) {
		embed := &chat.Embed{Title: "引数が正しくありません"}
		for field, reason := range argErr.Fields {
			embed.AddField(field, reason, false)
		}
		c.sendEmbed(ctx, m.ChannelID, "", embed)
		return
	}
	var execErr *service.ExecutionError
	if errors.As(err, &execErr) {
		embed := &chat.Embed{Title: execErr.Title}
		for field, value := range execErr.Fields {
			embed.AddField(field, value, false)
		}
		c.sendEmbed(ctx, m.ChannelID, "", embed)
		return
	}
	var notFound *service.NotFoundError
	if errors.As(err, &notFound) {
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("対象が見つかりませんでした。ID: `%d` が正しいか確認してください。", notFound.ID))
		return
	}
	var typeErr *service.ChannelTypeError
	if errors.As(err, &typeErr) {
		c.sendMessage(ctx, m.ChannelID, fmt.Sprintf("%s はテキストチャンネルではありません。", typeErr.Name))
		return
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("command failed")
	c.sendMessage(ctx, m.ChannelID, "コマンドの実行に失敗しました。管理者に問い合わせてください。")
}

func (c *CmdHandler) sendMessage(ctx context.Context, channelID int64, text string) {
	if err := c.client.SendMessage(ctx, channelID, text); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send message")
	}
}

func (c *CmdHandler) sendEmbed(ctx context.Context, channelID int64, text string, embed *chat.Embed) {
	if err := c.client.SendEmbed(ctx, channelID, text, embed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send embed")
	}
}

func (c *CmdHandler) sendFile(ctx context.Context, channelID int64, filename string, content []byte, text string, embed *chat.Embed) {
	if err := c.client.SendFile(ctx, channelID, filename, content, text, embed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("send file")
	}
}

// displayRange renders the window bounds for report headers, defaulting the
// missing after bound to the guild's creation date.
func (c *CmdHandler) displayRange(ctx context.Context, guildID int64, w timewindow.Window) (beforeStr, afterStr string) {
	var created time.Time
	if guild, err := c.client.Guild(ctx, guildID); err == nil {
		created = guild.CreatedAt
	}
	return w.DisplayRange(created)
}
