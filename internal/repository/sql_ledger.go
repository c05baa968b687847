package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLLedger stores the cell grid in a relational database. The same
// implementation serves sqlite (local deployments) and Postgres (hosted);
// $N placeholders are valid on both drivers.
type SQLLedger struct {
	db *sql.DB
}

// NewSQLLedger opens the ledger database with the given driver ("sqlite" or
// "pgx") and creates the schema when missing.
func NewSQLLedger(driver, dsn string) (*SQLLedger, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if driver == "sqlite" {
		// sqlite doesn't support concurrent writes
		db.SetMaxOpenConns(1)
	}
	l := &SQLLedger{db: db}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLLedger) init() error {
	_, err := l.db.Exec(`
        CREATE TABLE IF NOT EXISTS sheets (
            book TEXT NOT NULL,
            name TEXT NOT NULL,
            PRIMARY KEY (book, name)
        )`)
	if err != nil {
		return fmt.Errorf("create sheets table: %w", err)
	}
	_, err = l.db.Exec(`
        CREATE TABLE IF NOT EXISTS cells (
            book TEXT NOT NULL,
            sheet TEXT NOT NULL,
            row_idx INTEGER NOT NULL,
            col_idx INTEGER NOT NULL,
            value TEXT NOT NULL,
            PRIMARY KEY (book, sheet, row_idx, col_idx)
        )`)
	if err != nil {
		return fmt.Errorf("create cells table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (l *SQLLedger) Close() error { return l.db.Close() }

func (l *SQLLedger) Book(key string) Book {
	return &sqlBook{db: l.db, key: key}
}

type sqlBook struct {
	db  *sql.DB
	key string
}

func (b *sqlBook) Sheet(ctx context.Context, name string) (Sheet, error) {
	var one int
	err := b.db.QueryRowContext(ctx,
		`SELECT 1 FROM sheets WHERE book=$1 AND name=$2`, b.key, name).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, ErrSheetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sqlSheet{db: b.db, book: b.key, name: name}, nil
}

func (b *sqlBook) GetOrCreateSheet(ctx context.Context, name string, init InitSheet) (Sheet, error) {
	s, err := b.Sheet(ctx, name)
	if err == nil {
		return s, nil
	}
	if err != ErrSheetNotFound {
		return nil, err
	}
	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO sheets (book, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, b.key, name); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", name, err)
	}
	sheet := &sqlSheet{db: b.db, book: b.key, name: name}
	if init != nil {
		if err := init(ctx, sheet); err != nil {
			return nil, fmt.Errorf("init sheet %s: %w", name, err)
		}
	}
	return sheet, nil
}

type sqlSheet struct {
	db   *sql.DB
	book string
	name string
}

func (s *sqlSheet) Name() string { return s.name }

func (s *sqlSheet) Rows(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, col_idx, value FROM cells WHERE book=$1 AND sheet=$2 ORDER BY row_idx, col_idx`,
		s.book, s.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type cell struct {
		row, col int
		value    string
	}
	var cells []cell
	maxRow, maxCol := 0, 0
	for rows.Next() {
		var c cell
		if err := rows.Scan(&c.row, &c.col, &c.value); err != nil {
			return nil, err
		}
		cells = append(cells, c)
		if c.value != "" {
			if c.row > maxRow {
				maxRow = c.row
			}
			if c.col > maxCol {
				maxCol = c.col
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if maxRow == 0 {
		return nil, nil
	}
	grid := make([][]string, maxRow)
	for i := range grid {
		grid[i] = make([]string, maxCol)
	}
	for _, c := range cells {
		if c.row <= maxRow && c.col <= maxCol {
			grid[c.row-1][c.col-1] = c.value
		}
	}
	return grid, nil
}

func (s *sqlSheet) Records(ctx context.Context) ([]map[string]string, error) {
	grid, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, nil
	}
	header := grid[0]
	records := make([]map[string]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		record := make(map[string]string, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			if i < len(row) {
				record[key] = row[i]
			} else {
				record[key] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *sqlSheet) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cells WHERE book=$1 AND sheet=$2`, s.book, s.name)
	return err
}

func (s *sqlSheet) AppendRow(ctx context.Context, row []string) error {
	return s.AppendRows(ctx, [][]string{row})
}

func (s *sqlSheet) AppendRows(ctx context.Context, newRows [][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row_idx), 0) + 1 FROM cells WHERE book=$1 AND sheet=$2`,
		s.book, s.name).Scan(&next)
	if err != nil {
		return err
	}
	for i, row := range newRows {
		for j, value := range row {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cells (book, sheet, row_idx, col_idx, value) VALUES ($1, $2, $3, $4, $5)
                 ON CONFLICT (book, sheet, row_idx, col_idx) DO UPDATE SET value=EXCLUDED.value`,
				s.book, s.name, next+i, j+1, value); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *sqlSheet) ColumnValues(ctx context.Context, col int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, value FROM cells WHERE book=$1 AND sheet=$2 AND col_idx=$3 ORDER BY row_idx`,
		s.book, s.name, col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byRow := map[int]string{}
	last := 0
	for rows.Next() {
		var idx int
		var value string
		if err := rows.Scan(&idx, &value); err != nil {
			return nil, err
		}
		byRow[idx] = value
		if value != "" && idx > last {
			last = idx
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	values := make([]string, last)
	for i := 1; i <= last; i++ {
		values[i-1] = byRow[i]
	}
	return values, nil
}

func (s *sqlSheet) UpdateColumn(ctx context.Context, col int, values []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Positional upsert: rows 1..len(values) only. Empty strings blank the
	// slot in place so later rows keep their addresses.
	for i, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cells (book, sheet, row_idx, col_idx, value) VALUES ($1, $2, $3, $4, $5)
             ON CONFLICT (book, sheet, row_idx, col_idx) DO UPDATE SET value=EXCLUDED.value`,
			s.book, s.name, i+1, col, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}
