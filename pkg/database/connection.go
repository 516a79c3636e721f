// Package database wraps a pgx connection pool the way the teacher
// project's pkg/database does: a thin Pool type plus a QueryHelper for
// the callback-scan style used throughout the storage layer.
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

type Pool struct {
	pool *pgxpool.Pool
}

func NewPoolFromURL(ctx context.Context, url string) (*Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "parse pool config", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindStorageError, "ping database", err)
	}

	return &Pool{pool: pool}, nil
}

func (p *Pool) Close() {
	p.pool.Close()
}

func (p *Pool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := p.pool.Query(ctx, sql, args...)

	return rows, apperr.Wrap(apperr.KindStorageError, "query", err)
}

func (p *Pool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error) {
	tag, err := p.pool.Exec(ctx, sql, args...)

	return tag, apperr.Wrap(apperr.KindStorageError, "exec", err)
}

// BeginTx starts a transaction for a single top-level update
// operation. Spec.md §4.8 requires one transaction per update,
// including composite DELETE...INSERT updates.
func (p *Pool) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := p.pool.Begin(ctx)

	return tx, apperr.Wrap(apperr.KindStorageError, "begin transaction", err)
}

func (p *Pool) HasExtension(ctx context.Context, name string) (bool, error) {
	var exists bool

	query := "SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = $1)"

	err := p.pool.QueryRow(ctx, query, name).Scan(&exists)
	if err != nil {
		return false, apperr.Wrap(apperr.KindStorageError, "check extension "+name, err)
	}

	return exists, nil
}

func (p *Pool) CurrentDatabase(ctx context.Context) (string, error) {
	var dbName string

	err := p.pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName)
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorageError, "get current database", err)
	}

	return dbName, nil
}
