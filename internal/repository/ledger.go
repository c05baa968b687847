// Package repository implements the tabular ledger the bot uses as durable
// state: books of named sheets holding positional string cells, the way the
// external spreadsheet service models them.
package repository

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned when a named sheet does not exist in a book.
var ErrSheetNotFound = errors.New("repository: sheet not found")

// Ledger opens books (spreadsheets) by key.
type Ledger interface {
	Book(key string) Book
}

// InitSheet seeds a freshly created sheet, e.g. with a header row.
type InitSheet func(ctx context.Context, s Sheet) error

// Book is one spreadsheet: a set of named sheets.
type Book interface {
	// Sheet returns the named sheet or ErrSheetNotFound.
	Sheet(ctx context.Context, name string) (Sheet, error)
	// GetOrCreateSheet returns the named sheet, creating and initializing
	// it when absent.
	GetOrCreateSheet(ctx context.Context, name string, init InitSheet) (Sheet, error)
}

// Sheet is one worksheet. Rows and columns are 1-based; row 1 holds the
// header for record-shaped sheets.
type Sheet interface {
	Name() string
	// Rows returns every row up to the last non-empty cell, padded to the
	// widest row.
	Rows(ctx context.Context) ([][]string, error)
	// Records maps each data row by the header row's column names.
	Records(ctx context.Context) ([]map[string]string, error)
	// Clear removes every cell.
	Clear(ctx context.Context) error
	AppendRow(ctx context.Context, row []string) error
	AppendRows(ctx context.Context, rows [][]string) error
	// ColumnValues returns the column's values up to its last non-empty
	// cell, keeping interior blanks as empty strings.
	ColumnValues(ctx context.Context, col int) ([]string, error)
	// UpdateColumn positionally rewrites rows 1..len(values) of the column.
	// Empty strings blank the slot without shifting later rows.
	UpdateColumn(ctx context.Context, col int, values []string) error
}

// ReplaceAll is the full-replace snapshot policy: prior rows are read only
// for debug logging, then the sheet is cleared and rewritten from scratch.
// Snapshot sheets are derived state, not history.
func ReplaceAll(ctx context.Context, s Sheet, header []string, rows [][]string) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	if err := s.AppendRow(ctx, header); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return s.AppendRows(ctx, rows)
}

// WithHeader returns an InitSheet that writes a header row.
func WithHeader(header []string) InitSheet {
	return func(ctx context.Context, s Sheet) error {
		return s.AppendRow(ctx, header)
	}
}

// CopyFromTemplate returns an InitSheet that duplicates the book's template
// sheet into the new one, falling back to a bare header when no template
// sheet exists.
func CopyFromTemplate(book Book, template string, fallbackHeader []string) InitSheet {
	return func(ctx context.Context, s Sheet) error {
		src, err := book.Sheet(ctx, template)
		if errors.Is(err, ErrSheetNotFound) {
			return s.AppendRow(ctx, fallbackHeader)
		}
		if err != nil {
			return err
		}
		rows, err := src.Rows(ctx)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return s.AppendRow(ctx, fallbackHeader)
		}
		return s.AppendRows(ctx, rows)
	}
}
