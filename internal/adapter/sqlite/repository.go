package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neomorfeo/idledger/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: RecordRepository implements domain.RecordRepository.
var _ domain.RecordRepository = (*RecordRepository)(nil)

// RecordRepository implements domain.RecordRepository using SQLite.
type RecordRepository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*RecordRepository, error) {
	if err := EnsureDir(dataSourceName); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", DSN(dataSourceName))
	if err != nil {
		return nil, &domain.StorageError{Op: "opening database", Err: err}
	}

	// One connection keeps ":memory:" databases coherent and serializes
	// writers within the process.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &domain.StorageError{Op: "opening database", Err: err}
	}

	repo, err := NewFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// connPragmas run on every new connection. WAL and a busy timeout let several
// processes share one file and still get a clean UNIQUE rejection instead of
// SQLITE_BUSY.
var connPragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

// DSN appends the ledger's connection pragmas to a data source name.
func DSN(dataSourceName string) string {
	var b strings.Builder
	b.WriteString(dataSourceName)
	sep := "?"
	if strings.Contains(dataSourceName, "?") {
		sep = "&"
	}
	for _, p := range connPragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*RecordRepository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &RecordRepository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *RecordRepository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *RecordRepository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return &domain.StorageError{Op: "running migrations", Err: err}
	}

	return nil
}

// EnsureDir creates the parent directory of a file-backed database.
func EnsureDir(dataSourceName string) error {
	if dataSourceName == ":memory:" || strings.HasPrefix(dataSourceName, "file:") {
		return nil
	}
	dir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &domain.StorageError{Op: "creating database directory", Err: err}
	}
	return nil
}

const timeFormat = "2006-01-02T15:04:05.000000Z"

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *RecordRepository) Insert(ctx context.Context, rec domain.Record) error {
	return insert(ctx, r.db, rec)
}

// InsertTx inserts rec inside tx so the caller can commit other writes
// atomically with it.
func (r *RecordRepository) InsertTx(ctx context.Context, tx *sql.Tx, rec domain.Record) error {
	return insert(ctx, tx, rec)
}

func insert(ctx context.Context, db execer, rec domain.Record) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO identifiers (value, variant, category, prefix, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Value, string(rec.Variant), nullable(rec.Category), nullable(rec.Prefix),
		rec.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.DuplicateIdentifierError{Value: rec.Value}
		}
		return &domain.StorageError{Op: "inserting record", Err: err}
	}
	return nil
}

func (r *RecordRepository) Exists(ctx context.Context, value string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM identifiers WHERE value = ?`, value,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, &domain.StorageError{Op: "checking existence", Err: err}
	}
	return true, nil
}

func (r *RecordRepository) Get(ctx context.Context, value string) (domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT value, variant, category, prefix, created_at
		 FROM identifiers WHERE value = ?`, value,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Record{}, domain.ErrRecordNotFound
		}
		return domain.Record{}, &domain.StorageError{Op: "scanning record", Err: err}
	}
	return rec, nil
}

func (r *RecordRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Record, error) {
	query := `SELECT value, variant, category, prefix, created_at FROM identifiers`
	var (
		where []string
		args  []any
	)

	if filter.Variant != nil {
		where = append(where, `variant = ?`)
		args = append(args, string(*filter.Variant))
	}
	if filter.Category != nil {
		where = append(where, `category = ?`)
		args = append(args, *filter.Category)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}

	query += ` ORDER BY created_at DESC, value`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "listing records", Err: err}
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "scanning record row", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "listing records", Err: err}
	}

	return records, nil
}

// Summarize counts records by variant and category. All counts are read in
// one transaction so they come from the same snapshot even while another
// process is inserting.
func (r *RecordRepository) Summarize(ctx context.Context) (domain.Summary, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Summary{}, &domain.StorageError{Op: "summarizing records", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	summary := domain.NewSummary()

	byVariant, err := countBy(ctx, tx,
		`SELECT variant, COUNT(*) FROM identifiers GROUP BY variant`)
	if err != nil {
		return domain.Summary{}, err
	}
	for k, n := range byVariant {
		summary.ByVariant[domain.Variant(k)] = n
	}

	summary.ByCategory, err = countBy(ctx, tx,
		`SELECT category, COUNT(*) FROM identifiers WHERE category IS NOT NULL GROUP BY category`)
	if err != nil {
		return domain.Summary{}, err
	}

	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM identifiers`).Scan(&summary.Total); err != nil {
		return domain.Summary{}, &domain.StorageError{Op: "counting records", Err: err}
	}

	return summary, nil
}

func countBy(ctx context.Context, tx *sql.Tx, query string) (map[string]int, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "summarizing records", Err: err}
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, &domain.StorageError{Op: "scanning summary row", Err: err}
		}
		counts[key] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "summarizing records", Err: err}
	}
	return counts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (domain.Record, error) {
	var rec domain.Record
	var variant, createdAt string
	var category, prefix sql.NullString

	if err := s.Scan(&rec.Value, &variant, &category, &prefix, &createdAt); err != nil {
		return domain.Record{}, err
	}

	rec.Variant = domain.Variant(variant)
	rec.Category = category.String
	rec.Prefix = prefix.String
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return domain.Record{}, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	rec.CreatedAt = t

	return rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
