// Package imports stores files imported from a browsing session.
package imports

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/leapstack-labs/repolens/pkg/core"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed width so imported_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned when no import has the requested id.
var ErrNotFound = errors.New("import not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Store is a SQL-backed import store.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to the import database. For sqlite the parent directory of
// a file DSN is created.
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if dir := filepath.Dir(dsn); dir != "." {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return nil, fmt.Errorf("failed to create database directory: %w", err)
				}
			}
		}
		db, err = sql.Open("sqlite", sqliteDSN(dsn))
		if err == nil {
			// one connection keeps :memory: databases shared and avoids SQLITE_BUSY
			db.SetMaxOpenConns(1)
		}
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported import driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return New(db, driver, logger), nil
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// New wraps an open database.
func New(db *sql.DB, driver string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		db:     db,
		driver: driver,
		logger: logger,
		now:    time.Now,
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs all pending migrations.
func (s *Store) Migrate() error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(s.driver); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Import records the previewed content of a file.
func (s *Store) Import(ctx context.Context, req core.ImportRequest) (*core.ImportRecord, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("import needs a file path")
	}

	sum := sha256.Sum256([]byte(req.Content))
	rec := &core.ImportRecord{
		ID:          uuid.New().String(),
		Source:      req.Source,
		Path:        req.Path,
		FileName:    req.FileName,
		Content:     req.Content,
		ContentHash: hex.EncodeToString(sum[:]),
		Size:        int64(len(req.Content)),
		ImportedAt:  s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO imports (id, source, path, file_name, content, content_hash, size, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.Source, rec.Path, rec.FileName, rec.Content, rec.ContentHash, rec.Size,
		rec.ImportedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert import: %w", err)
	}

	s.logger.Info("file imported", "id", rec.ID, "path", rec.Path, "size", rec.Size)
	return rec, nil
}

// List returns the most recent imports first. A limit of zero lists all.
func (s *Store) List(ctx context.Context, limit int) ([]core.ImportRecord, error) {
	query := `SELECT id, source, path, file_name, content_hash, size, imported_at
		FROM imports ORDER BY imported_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []core.ImportRecord
	for rows.Next() {
		var (
			rec core.ImportRecord
			at  string
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Path, &rec.FileName, &rec.ContentHash, &rec.Size, &at); err != nil {
			return nil, fmt.Errorf("failed to scan import: %w", err)
		}
		if rec.ImportedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("invalid imported_at %q: %w", at, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one import including its content.
func (s *Store) Get(ctx context.Context, id string) (*core.ImportRecord, error) {
	var (
		rec core.ImportRecord
		at  string
	)
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT id, source, path, file_name, content, content_hash, size, imported_at
		 FROM imports WHERE id = ?`), id,
	).Scan(&rec.ID, &rec.Source, &rec.Path, &rec.FileName, &rec.Content, &rec.ContentHash, &rec.Size, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import: %w", err)
	}
	if rec.ImportedAt, err = time.Parse(timeLayout, at); err != nil {
		return nil, fmt.Errorf("invalid imported_at %q: %w", at, err)
	}
	return &rec, nil
}

// Delete removes one import.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM imports WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete import: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
