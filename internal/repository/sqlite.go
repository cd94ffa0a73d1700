package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mr1hm/go-neo-watch/internal/models"
)

var _ NEOCache = (*SQLiteDB)(nil)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS neo_pages (
			page_index INTEGER NOT NULL,
			page_size INTEGER NOT NULL,
			total_count INTEGER NOT NULL,
			payload TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (page_index, page_size)
		);

		CREATE TABLE IF NOT EXISTS neos (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_neo_pages_fetched_at ON neo_pages(fetched_at);
		CREATE INDEX IF NOT EXISTS idx_neos_fetched_at ON neos(fetched_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) GetPage(ctx context.Context, pageIndex, pageSize int) (*CachedPage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT total_count, payload, fetched_at FROM neo_pages WHERE page_index = ? AND page_size = ?`,
		pageIndex, pageSize)

	var (
		total     int
		payload   string
		fetchedAt int64
	)
	if err := row.Scan(&total, &payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading cached page: %w", err)
	}

	var items []models.NEO
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("error decoding cached page: %w", err)
	}

	return &CachedPage{
		Page: models.Page{
			Items:      items,
			TotalCount: total,
			PageIndex:  pageIndex,
			PageSize:   pageSize,
			Source:     models.SourceCache,
		},
		FetchedAt: time.UnixMilli(fetchedAt),
	}, nil
}

// PutPage stores the page and each of its records, so detail lookups for
// listed NEOs are served from the cache too.
func (s *SQLiteDB) PutPage(ctx context.Context, page models.Page, fetchedAt time.Time) error {
	items := page.Items
	if items == nil {
		items = []models.NEO{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("error encoding page: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO neo_pages (page_index, page_size, total_count, payload, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(page_index, page_size) DO UPDATE SET
			total_count = excluded.total_count,
			payload = excluded.payload,
			fetched_at = excluded.fetched_at`,
		page.PageIndex, page.PageSize, page.TotalCount, string(payload), fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error writing page: %w", err)
	}

	for _, n := range items {
		if err := putNEO(ctx, tx, n, fetchedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteDB) GetNEO(ctx context.Context, id string) (*CachedNEO, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload, fetched_at FROM neos WHERE id = ?`, id)

	var (
		payload   string
		fetchedAt int64
	)
	if err := row.Scan(&payload, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading cached neo: %w", err)
	}

	var n models.NEO
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return nil, fmt.Errorf("error decoding cached neo: %w", err)
	}
	return &CachedNEO{NEO: n, FetchedAt: time.UnixMilli(fetchedAt)}, nil
}

func (s *SQLiteDB) PutNEO(ctx context.Context, n models.NEO, fetchedAt time.Time) error {
	return putNEO(ctx, s.db, n, fetchedAt)
}

// Purge deletes pages and records fetched before olderThan.
func (s *SQLiteDB) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	cutoff := olderThan.UnixMilli()

	res, err := s.db.ExecContext(ctx, `DELETE FROM neo_pages WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error purging pages: %w", err)
	}
	pages, _ := res.RowsAffected()

	res, err = s.db.ExecContext(ctx, `DELETE FROM neos WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error purging neos: %w", err)
	}
	neos, _ := res.RowsAffected()

	return pages + neos, nil
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putNEO(ctx context.Context, db execer, n models.NEO, fetchedAt time.Time) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("error encoding neo %s: %w", n.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO neos (id, payload, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		n.ID, string(payload), fetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("error writing neo %s: %w", n.ID, err)
	}
	return nil
}
