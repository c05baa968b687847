package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/example/guild-audit-bot/internal/repository"
)

// IgnoreListService manages the per-guild ignore list stored as one sheet
// column. Mutations rewrite the column positionally, padding with blanks so
// that every previously read slot gets overwritten. The slot count never
// shrinks within one mutation.
type IgnoreListService struct {
	book   repository.Book
	locks  *repository.KeyedMutex
	logger zerolog.Logger
}

func NewIgnoreListService(book repository.Book, locks *repository.KeyedMutex, logger zerolog.Logger) *IgnoreListService {
	return &IgnoreListService{book: book, locks: locks, logger: logger}
}

const ignoreListColumn = 1

func (s *IgnoreListService) sheet(ctx context.Context, guildID int64) (repository.Sheet, error) {
	return s.book.GetOrCreateSheet(ctx, strconv.FormatInt(guildID, 10), nil)
}

// IDs returns the non-empty slots parsed as user ids.
func (s *IgnoreListService) IDs(ctx context.Context, guildID int64) ([]int64, error) {
	sheet, err := s.sheet(ctx, guildID)
	if err != nil {
		return nil, err
	}
	slots, err := sheet.ColumnValues(ctx, ignoreListColumn)
	if err != nil {
		return nil, fmt.Errorf("read ignore list: %w", err)
	}
	return parseIgnoreSlots(slots), nil
}

func parseIgnoreSlots(slots []string) []int64 {
	var ids []int64
	for _, slot := range slots {
		if slot == "" {
			continue
		}
		id, err := strconv.ParseInt(slot, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// mutate runs one read-once/apply/write-once cycle over the slot list under
// the guild's lock. The in-memory slot count at write time always equals the
// number of slots rewritten.
func (s *IgnoreListService) mutate(ctx context.Context, guildID int64, apply func(slots []string) ([]string, error)) error {
	unlock := s.locks.Lock(strconv.FormatInt(guildID, 10))
	defer unlock()

	sheet, err := s.sheet(ctx, guildID)
	if err != nil {
		return err
	}
	slots, err := sheet.ColumnValues(ctx, ignoreListColumn)
	if err != nil {
		return fmt.Errorf("read ignore list: %w", err)
	}
	slots, err = apply(slots)
	if err != nil {
		return err
	}
	if err := sheet.UpdateColumn(ctx, ignoreListColumn, slots); err != nil {
		return fmt.Errorf("write ignore list: %w", err)
	}
	return nil
}

// IgnoreEdit is one independent edit over the slot list.
type IgnoreEdit func(slots []string) ([]string, error)

// AppendIgnore adds a user id as a new slot at the end of the list.
func AppendIgnore(userID int64) IgnoreEdit {
	return func(slots []string) ([]string, error) {
		return append(slots, strconv.FormatInt(userID, 10)), nil
	}
}

// RemoveIgnore drops the first slot holding userID and appends a blank so
// the rewritten column still covers every slot that was read.
func RemoveIgnore(userID int64) IgnoreEdit {
	return func(slots []string) ([]string, error) {
		target := strconv.FormatInt(userID, 10)
		found := false
		out := make([]string, 0, len(slots))
		for _, slot := range slots {
			if !found && slot == target {
				found = true
				continue
			}
			out = append(out, slot)
		}
		if !found {
			return nil, NewExecutionError("無視リストにユーザーが存在しません", "remove", target)
		}
		return append(out, ""), nil
	}
}

// ClearIgnore blanks every slot, keeping the slot count.
func ClearIgnore() IgnoreEdit {
	return func(slots []string) ([]string, error) {
		return make([]string, len(slots)), nil
	}
}

// Apply runs the edits in order inside one read-once/apply/write-once cycle.
// Any failing edit aborts the whole batch before the write.
func (s *IgnoreListService) Apply(ctx context.Context, guildID int64, edits ...IgnoreEdit) error {
	if len(edits) == 0 {
		return nil
	}
	return s.mutate(ctx, guildID, func(slots []string) ([]string, error) {
		var err error
		for _, edit := range edits {
			slots, err = edit(slots)
			if err != nil {
				return nil, err
			}
		}
		s.logger.Debug().Int64("guild_id", guildID).Int("edits", len(edits)).Msg("apply ignore list edits")
		return slots, nil
	})
}

// Append adds a user id as a new slot at the end of the list.
func (s *IgnoreListService) Append(ctx context.Context, guildID, userID int64) error {
	return s.Apply(ctx, guildID, AppendIgnore(userID))
}

// Remove drops the first slot holding userID, keeping the slot count.
func (s *IgnoreListService) Remove(ctx context.Context, guildID, userID int64) error {
	return s.Apply(ctx, guildID, RemoveIgnore(userID))
}

// RemoveAll blanks every slot, keeping the slot count.
func (s *IgnoreListService) RemoveAll(ctx context.Context, guildID int64) error {
	return s.Apply(ctx, guildID, ClearIgnore())
}
