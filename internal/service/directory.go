package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/model"
	"github.com/example/guild-audit-bot/internal/repository"
	"github.com/example/guild-audit-bot/internal/timewindow"
)

// DirectoryService maintains the per-guild channel and member snapshot
// sheets. Snapshots are derived state: each sync fully replaces the sheet
// with one row per currently live entity.
type DirectoryService struct {
	book   repository.Book
	src    GuildSource
	locks  *repository.KeyedMutex
	logger zerolog.Logger
}

func NewDirectoryService(book repository.Book, src GuildSource, locks *repository.KeyedMutex, logger zerolog.Logger) *DirectoryService {
	return &DirectoryService{book: book, src: src, locks: locks, logger: logger}
}

// SyncChannels rewrites the "<guild>.channel" sheet from the guild's current
// channel list.
func (s *DirectoryService) SyncChannels(ctx context.Context, guildID int64) (int, error) {
	channels, err := s.src.GuildChannels(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("fetch channels: %w", err)
	}
	rows := make([][]string, 0, len(channels))
	seen := make(map[int64]bool, len(channels))
	for _, ch := range channels {
		if seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		rows = append(rows, []string{
			strconv.FormatInt(ch.ID, 10),
			ch.Name,
			string(ch.Type),
			ch.CreatedAt.In(timewindow.JST).Format(timewindow.DateFormatSlash),
		})
	}
	name := strconv.FormatInt(guildID, 10) + ".channel"
	if err := s.replace(ctx, guildID, name, model.DirectoryChannelHeader, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SyncMembers rewrites the "<guild>.member" sheet from the guild's current
// member list.
func (s *DirectoryService) SyncMembers(ctx context.Context, guildID int64) (int, error) {
	members, err := s.src.GuildMembers(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("fetch members: %w", err)
	}
	rows := make([][]string, 0, len(members))
	seen := make(map[int64]bool, len(members))
	for _, m := range members {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		joinedAt := "UNKNOWN"
		if m.JoinedAt != nil {
			joinedAt = m.JoinedAt.In(timewindow.JST).Format(timewindow.DateFormatSlash)
		}
		rows = append(rows, []string{
			strconv.FormatInt(m.ID, 10),
			m.Name,
			m.DisplayName,
			joinedAt,
		})
	}
	name := strconv.FormatInt(guildID, 10) + ".member"
	if err := s.replace(ctx, guildID, name, model.DirectoryMemberHeader, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *DirectoryService) replace(ctx context.Context, guildID int64, name string, header []string, rows [][]string) error {
	unlock := s.locks.Lock(strconv.FormatInt(guildID, 10))
	defer unlock()

	sheet, err := s.book.GetOrCreateSheet(ctx, name, repository.WithHeader(header))
	if err != nil {
		return err
	}
	prev, err := sheet.Records(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug().Str("sheet", name).Int("prev", len(prev)).Int("next", len(rows)).Msg("replace snapshot")
	if err := repository.ReplaceAll(ctx, sheet, header, rows); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
