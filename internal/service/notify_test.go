package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guild-audit-bot/internal/model"
	"github.com/example/guild-audit-bot/internal/repository"
)

func newNotifyFixture(t *testing.T) (*NotifyService, repository.Book) {
	t.Helper()
	ledger, err := repository.NewSQLLedger("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	book := ledger.Book("notify")
	return NewNotifyService(book, repository.NewKeyedMutex(), zerolog.Nop()), book
}

func TestNotifyRegisterAndFlush(t *testing.T) {
	svc, book := newNotifyFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, 99, 1, 10))
	require.NoError(t, svc.Register(ctx, 99, 2, 10))

	// duplicate registration is a domain error
	err := svc.Register(ctx, 99, 1, 10)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "既に登録されているチャネルです", execErr.Title)

	sheet, err := book.Sheet(ctx, "99")
	require.NoError(t, err)
	records, err := sheet.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0]["user_id"])
	assert.Equal(t, "True", records[0]["is_valid"])
}

func TestNotifyRehydrate(t *testing.T) {
	svc, book := newNotifyFixture(t)
	ctx := context.Background()

	sheet, err := book.GetOrCreateSheet(ctx, "99", repository.WithHeader(model.NotifyRecordHeader))
	require.NoError(t, err)
	require.NoError(t, sheet.AppendRows(ctx, [][]string{
		{"1", "10", "True"},
		{"2", "10", "False"},
	}))

	require.NoError(t, svc.Rehydrate(ctx, 99))

	all := svc.List(99, 0, true)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsValid)
	assert.False(t, all[1].IsValid)

	mine := svc.List(99, 1, false)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(1), mine[0].UserID)
}

func TestNotifyEnableDisableDelete(t *testing.T) {
	svc, _ := newNotifyFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, 99, 1, 10))

	require.NoError(t, svc.SetValid(ctx, 99, 1, 10, false))
	assert.Empty(t, svc.Matches(99, 10, 1))

	require.NoError(t, svc.SetValid(ctx, 99, 1, 10, true))
	assert.Len(t, svc.Matches(99, 10, 1), 1)

	require.NoError(t, svc.Delete(ctx, 99, 1, 10))
	assert.Empty(t, svc.List(99, 0, true))

	// deleting again is a domain error
	var execErr *ExecutionError
	require.ErrorAs(t, svc.Delete(ctx, 99, 1, 10), &execErr)
}

func TestNotifyMatches(t *testing.T) {
	svc, _ := newNotifyFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, 99, 1, 10))
	require.NoError(t, svc.Register(ctx, 99, 2, 11))

	// fires only for the subscriber's own messages in the registered channel
	assert.Len(t, svc.Matches(99, 10, 1), 1)
	assert.Empty(t, svc.Matches(99, 10, 2))
	assert.Empty(t, svc.Matches(99, 11, 1))
	assert.Empty(t, svc.Matches(98, 10, 1))
}
