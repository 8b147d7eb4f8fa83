// Package db is the PostgreSQL store behind every kompassi service.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kompassi/kompassi/internal/ctxutil"
	"github.com/kompassi/kompassi/internal/metrics"
	"github.com/kompassi/kompassi/internal/models"
	"github.com/kompassi/kompassi/internal/paikkala"
	"github.com/kompassi/kompassi/migrations"
)

// ErrNotFound aliases the domain sentinel so callers may check either.
var ErrNotFound = models.ErrNotFound

func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(20)
	database.SetMaxIdleConns(5)
	database.SetConnMaxIdleTime(5 * time.Minute)

	if err := Ping(ctx, database); err != nil {
		_ = database.Close()
		return nil, err
	}
	return database, nil
}

func Ping(ctx context.Context, database *sql.DB) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()
	start := time.Now()
	err := database.PingContext(ctx)
	metrics.ObserveDBPing(time.Since(start))
	return err
}

// Migrate applies the embedded goose migrations.
func Migrate(database *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(database, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the store interfaces of the service packages. A Store returned by
// InTx runs every query inside that transaction.
type Store struct {
	db *sql.DB
	q  querier
	tx bool
}

func New(database *sql.DB) *Store {
	return &Store{db: database, q: database}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) inTx(ctx context.Context, fn func(*Store) error) error {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}
	return tx.Commit()
}

// InTx runs fn in a transaction for the seat reservation provisioner.
func (s *Store) InTx(ctx context.Context, fn func(paikkala.Store) error) error {
	return s.inTx(ctx, func(tx *Store) error { return fn(tx) })
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
