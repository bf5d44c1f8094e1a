// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	"github.com/verte-zerg/mantra/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrNotFound is returned when a mantra does not exist.
	ErrNotFound = errors.New("mantra not found")
	// ErrDuplicateTitle is returned when a title is already taken (case-insensitive).
	ErrDuplicateTitle = errors.New("mantra title already exists")
	// ErrEmptyTitle is returned for blank titles.
	ErrEmptyTitle = errors.New("mantra title is empty")
	// ErrConflict is returned when a mantra's counter changed since it was read.
	ErrConflict = errors.New("mantra changed concurrently")
)

const dsnPragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

var mantraColumns = []string{"id", "title", "reads", "goal", "is_favorite", "position", "created_at", "updated_at"}

// Store wraps SQLite access for mantras and their reading events.
type Store struct {
	db      *sql.DB
	path    string
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?"+dsnPragmas)
	if err != nil {
		return nil, err
	}
	store := &Store{
		db:      db,
		path:    path,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now:     time.Now,
	}
	if err := store.migrate(context.Background()); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(ctx context.Context) error {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMantra(row scanner) (model.Mantra, error) {
	var m model.Mantra
	var fav int
	var createdMs, updatedMs int64
	if err := row.Scan(&m.ID, &m.Title, &m.Reads, &m.Goal, &fav, &m.Position, &createdMs, &updatedMs); err != nil {
		return model.Mantra{}, err
	}
	m.IsFavorite = fav != 0
	m.CreatedAt = time.UnixMilli(createdMs)
	m.UpdatedAt = time.UnixMilli(updatedMs)
	return m, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// CreateMantra inserts a new mantra at the end of the list.
func (s *Store) CreateMantra(ctx context.Context, title string, goal int32) (model.Mantra, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Mantra{}, ErrEmptyTitle
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Mantra{}, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM mantras WHERE title = ?`, title).Scan(&exists)
	if err != nil {
		return model.Mantra{}, err
	}
	if exists > 0 {
		err = fmt.Errorf("%w: %q", ErrDuplicateTitle, title)
		return model.Mantra{}, err
	}

	var position int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) + 1 FROM mantras`).Scan(&position)
	if err != nil {
		return model.Mantra{}, err
	}

	now := s.now()
	m := model.Mantra{
		ID:           uuid.NewString(),
		Title:        title,
		Position:     position,
		CreatedAt:    time.UnixMilli(now.UnixMilli()),
		UpdatedAt:    time.UnixMilli(now.UnixMilli()),
		CounterState: model.CounterState{Goal: goal},
	}
	query, args, err := s.builder.Insert("mantras").
		Columns(mantraColumns...).
		Values(m.ID, m.Title, m.Reads, m.Goal, boolInt(m.IsFavorite), m.Position, now.UnixMilli(), now.UnixMilli()).
		ToSql()
	if err != nil {
		return model.Mantra{}, err
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return model.Mantra{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Mantra{}, err
	}
	return m, nil
}

// GetMantra returns the mantra with the given id.
func (s *Store) GetMantra(ctx context.Context, id string) (model.Mantra, error) {
	query, args, err := s.builder.Select(mantraColumns...).
		From("mantras").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return model.Mantra{}, err
	}
	m, err := scanMantra(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mantra{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m, err
}

// FindMantra resolves ref as an id first, then as a case-insensitive title.
func (s *Store) FindMantra(ctx context.Context, ref string) (model.Mantra, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Mantra{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	m, err := s.GetMantra(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return m, err
	}
	query, args, err := s.builder.Select(mantraColumns...).
		From("mantras").
		Where(squirrel.Eq{"title": ref}).
		ToSql()
	if err != nil {
		return model.Mantra{}, err
	}
	m, err = scanMantra(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mantra{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	return m, err
}

// ListMantras returns mantras with favorites first, then in filter.Sort order.
// Ties fall back to position.
func (s *Store) ListMantras(ctx context.Context, filter model.MantraFilter) ([]model.Mantra, error) {
	q := s.builder.Select(mantraColumns...).
		From("mantras").
		OrderBy("is_favorite DESC")
	switch filter.Sort {
	case model.SortTitle:
		q = q.OrderBy("title COLLATE NOCASE ASC")
	case model.SortReads:
		q = q.OrderBy("reads DESC")
	}
	q = q.OrderBy("position ASC", "created_at ASC")
	if filter.FavoritesOnly {
		q = q.Where(squirrel.Eq{"is_favorite": 1})
	}
	if text := strings.TrimSpace(filter.Query); text != "" {
		q = q.Where(squirrel.Like{"title": "%" + text + "%"})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Mantra
	for rows.Next() {
		m, err := scanMantra(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteMantra removes a mantra and its reading events.
func (s *Store) DeleteMantra(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM readings WHERE mantra_id = ?`, id); err != nil {
		return err
	}
	var res sql.Result
	res, err = tx.ExecContext(ctx, `DELETE FROM mantras WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err = requireRow(res, id); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// SetFavorite updates the favorite flag.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	query, args, err := s.builder.Update("mantras").
		Set("is_favorite", boolInt(favorite)).
		Set("updated_at", s.now().UnixMilli()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
