package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/model"
	"github.com/example/guild-audit-bot/internal/repository"
	"github.com/example/guild-audit-bot/internal/timewindow"
	"github.com/example/guild-audit-bot/pkg/chat"
)

// TemplateSheetName is the sheet duplicated for new guilds in the voice-log
// and notify books.
const TemplateSheetName = "template"

// GuildSource is the part of the chat client the ledger services use to
// resolve guild entities.
type GuildSource interface {
	GuildChannels(ctx context.Context, guildID int64) ([]chat.Channel, error)
	GuildMembers(ctx context.Context, guildID int64) ([]chat.Member, error)
}

// VoiceLogService appends one ledger record per observed voice transition
// and answers counting queries over the accumulated log.
type VoiceLogService struct {
	book     repository.Book
	src      GuildSource
	boundary time.Time
	locks    *repository.KeyedMutex
	logger   zerolog.Logger
	now      func() time.Time
}

func NewVoiceLogService(book repository.Book, src GuildSource, boundary time.Time, locks *repository.KeyedMutex, logger zerolog.Logger) *VoiceLogService {
	return &VoiceLogService{
		book:     book,
		src:      src,
		boundary: boundary,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *VoiceLogService) sheet(ctx context.Context, guildID int64) (repository.Sheet, error) {
	name := strconv.FormatInt(guildID, 10)
	return s.book.GetOrCreateSheet(ctx, name, repository.CopyFromTemplate(s.book, TemplateSheetName, model.VoiceStateRecordHeader))
}

// RecordUpdate classifies the transition and appends exactly one record to
// the guild's event log. The log is append-only; history is never rewritten.
func (s *VoiceLogService) RecordUpdate(ctx context.Context, up chat.VoiceUpdate) error {
	tags := ClassifyVoiceState(up.Before, up.After)

	channelID, channelName := up.After.ChannelID, up.After.ChannelName
	if !up.After.Connected() && up.Before.Connected() {
		channelID, channelName = up.Before.ChannelID, up.Before.ChannelName
	}

	dateStr, timeStr := timewindow.SplitRollover(s.now(), s.boundary)
	record := model.VoiceStateRecord{
		Date:        dateStr,
		Time:        timeStr,
		UserName:    up.Member.DisplayName,
		UserID:      up.Member.ID,
		ChannelName: channelName,
		ChannelID:   channelID,
		State:       JoinTags(tags),
	}

	unlock := s.locks.Lock(strconv.FormatInt(up.GuildID, 10))
	defer unlock()

	sheet, err := s.sheet(ctx, up.GuildID)
	if err != nil {
		return err
	}
	if err := sheet.AppendRow(ctx, record.ToRow()); err != nil {
		return fmt.Errorf("append voice record: %w", err)
	}
	s.logger.Debug().Int64("user_id", record.UserID).Str("state", record.State).Msg("append voice record")
	return nil
}

// VoiceStateCount is one (user, channel) tally of matching log records.
type VoiceStateCount struct {
	User    chat.Member  `json:"user"`
	Channel chat.Channel `json:"channel"`
	State   string       `json:"state"`
	Count   int          `json:"count"`
}

// CountParams narrows a voice-log counting query. Empty UserIDs means every
// non-bot member; empty ChannelIDs means every voice channel.
type CountParams struct {
	State      string
	UserIDs    []int64
	ChannelIDs []int64
	Window     timewindow.Window
	// Minimum omits zero-count rows from the result.
	Minimum bool
}

// CountStates reads the guild's event log, filters it by the window and the
// query, and tallies matches per (user, channel) pair.
func (s *VoiceLogService) CountStates(ctx context.Context, guildID int64, p CountParams) ([]VoiceStateCount, error) {
	sheet, err := s.sheet(ctx, guildID)
	if err != nil {
		return nil, err
	}
	raw, err := sheet.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("read voice log: %w", err)
	}

	var records []model.VoiceStateRecord
	for _, m := range raw {
		record := model.VoiceStateRecordFromMap(m)
		dt, err := timewindow.JoinRollover(record.Date, record.Time)
		if err != nil {
			s.logger.Error().Err(err).Str("date", record.Date).Str("time", record.Time).Msg("broken voice record")
			return nil, NewExecutionError("既存レコードの日時のパースに失敗しました。", "date", record.Date, "time", record.Time)
		}
		if !p.Window.Contains(dt) {
			continue
		}
		records = append(records, record)
	}

	members, err := s.src.GuildMembers(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	users := filterMembers(members, p.UserIDs)

	channels, err := s.src.GuildChannels(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("fetch channels: %w", err)
	}
	targets := filterVoiceChannels(channels, p.ChannelIDs)

	var results []VoiceStateCount
	for _, user := range users {
		for _, channel := range targets {
			count := 0
			for _, record := range records {
				if record.UserID == user.ID && record.ChannelID == channel.ID && record.HasState(p.State) {
					count++
				}
			}
			if p.Minimum && count == 0 {
				continue
			}
			results = append(results, VoiceStateCount{User: user, Channel: channel, State: p.State, Count: count})
		}
	}
	return results, nil
}

// filterMembers keeps the requested ids, or every non-bot member when no
// ids were requested.
func filterMembers(members []chat.Member, ids []int64) []chat.Member {
	var out []chat.Member
	if len(ids) == 0 {
		for _, m := range members {
			if !m.Bot {
				out = append(out, m)
			}
		}
		return out
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, m := range members {
		if want[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// filterVoiceChannels keeps the requested ids, or every voice channel when
// no ids were requested.
func filterVoiceChannels(channels []chat.Channel, ids []int64) []chat.Channel {
	var out []chat.Channel
	if len(ids) == 0 {
		for _, ch := range channels {
			if ch.Type == chat.ChannelTypeVoice {
				out = append(out, ch)
			}
		}
		return out
	}
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, ch := range channels {
		if want[ch.ID] {
			out = append(out, ch)
		}
	}
	return out
}
