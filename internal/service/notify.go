package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/model"
	"github.com/example/guild-audit-bot/internal/repository"
)

// NotifyService manages (user, channel) message-notification subscriptions.
// Records live in the ledger, one sheet per guild, and are mirrored in an
// in-process cache that is rehydrated on ready and flushed back with a full
// sheet replace after every mutation.
type NotifyService struct {
	book   repository.Book
	locks  *repository.KeyedMutex
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[int64][]model.NotifyRecord
}

func NewNotifyService(book repository.Book, locks *repository.KeyedMutex, logger zerolog.Logger) *NotifyService {
	return &NotifyService{
		book:   book,
		locks:  locks,
		logger: logger,
		cache:  map[int64][]model.NotifyRecord{},
	}
}

func (s *NotifyService) sheet(ctx context.Context, guildID int64) (repository.Sheet, error) {
	name := strconv.FormatInt(guildID, 10)
	return s.book.GetOrCreateSheet(ctx, name, repository.CopyFromTemplate(s.book, TemplateSheetName, model.NotifyRecordHeader))
}

// Rehydrate loads the guild's subscription sheet into the cache.
func (s *NotifyService) Rehydrate(ctx context.Context, guildID int64) error {
	sheet, err := s.sheet(ctx, guildID)
	if err != nil {
		return err
	}
	raw, err := sheet.Records(ctx)
	if err != nil {
		return fmt.Errorf("read notify sheet: %w", err)
	}
	records := make([]model.NotifyRecord, 0, len(raw))
	for _, m := range raw {
		records = append(records, model.NotifyRecordFromMap(m))
	}
	s.mu.Lock()
	s.cache[guildID] = records
	s.mu.Unlock()
	s.logger.Debug().Int64("guild_id", guildID).Int("records", len(records)).Msg("rehydrated notify records")
	return nil
}

// flushLocked rewrites the guild's sheet from the cache. A crash between a
// cache mutation and this flush loses the mutation; there is no
// partial-write recovery.
func (s *NotifyService) flush(ctx context.Context, guildID int64) error {
	s.mu.RLock()
	records := append([]model.NotifyRecord(nil), s.cache[guildID]...)
	s.mu.RUnlock()

	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = r.ToRow()
	}
	sheet, err := s.sheet(ctx, guildID)
	if err != nil {
		return err
	}
	return repository.ReplaceAll(ctx, sheet, model.NotifyRecordHeader, rows)
}

func (s *NotifyService) find(guildID, userID, channelID int64) (int, bool) {
	for i, r := range s.cache[guildID] {
		if r.UserID == userID && r.ChannelID == channelID {
			return i, true
		}
	}
	return 0, false
}

// Register adds a subscription; registering an existing (user, channel)
// pair is a domain error.
func (s *NotifyService) Register(ctx context.Context, guildID, userID, channelID int64) error {
	unlock := s.locks.Lock(strconv.FormatInt(guildID, 10))
	defer unlock()

	s.mu.Lock()
	if _, ok := s.find(guildID, userID, channelID); ok {
		s.mu.Unlock()
		return NewExecutionError("既に登録されているチャネルです", "channel_id", strconv.FormatInt(channelID, 10))
	}
	s.cache[guildID] = append(s.cache[guildID], model.NotifyRecord{UserID: userID, ChannelID: channelID, IsValid: true})
	s.mu.Unlock()

	return s.flush(ctx, guildID)
}

// Delete removes a subscription.
func (s *NotifyService) Delete(ctx context.Context, guildID, userID, channelID int64) error {
	unlock := s.locks.Lock(strconv.FormatInt(guildID, 10))
	defer unlock()

	s.mu.Lock()
	i, ok := s.find(guildID, userID, channelID)
	if !ok {
		s.mu.Unlock()
		return NewExecutionError("登録されていないチャネルです", "channel_id", strconv.FormatInt(channelID, 10))
	}
	s.cache[guildID] = append(s.cache[guildID][:i], s.cache[guildID][i+1:]...)
	s.mu.Unlock()

	return s.flush(ctx, guildID)
}

// SetValid enables or disables a subscription in place.
func (s *NotifyService) SetValid(ctx context.Context, guildID, userID, channelID int64, valid bool) error {
	unlock := s.locks.Lock(strconv.FormatInt(guildID, 10))
	defer unlock()

	s.mu.Lock()
	i, ok := s.find(guildID, userID, channelID)
	if !ok {
		s.mu.Unlock()
		return NewExecutionError("登録されていないチャネルです", "channel_id", strconv.FormatInt(channelID, 10))
	}
	s.cache[guildID][i].IsValid = valid
	s.mu.Unlock()

	return s.flush(ctx, guildID)
}

// List returns the guild's subscriptions, all of them or one user's.
func (s *NotifyService) List(guildID, userID int64, all bool) []model.NotifyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.NotifyRecord
	for _, r := range s.cache[guildID] {
		if !all && r.UserID != userID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Matches returns the valid subscriptions that fire for a message sent by
// authorID in channelID. A subscription fires for the subscriber's own
// messages in the registered channel; that is the behavior the sheet data
// was built around.
func (s *NotifyService) Matches(guildID, channelID, authorID int64) []model.NotifyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.NotifyRecord
	for _, r := range s.cache[guildID] {
		if r.UserID == authorID && r.ChannelID == channelID && r.IsValid {
			out = append(out, r)
		}
	}
	return out
}
