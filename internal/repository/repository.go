package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RowError reports one row that could not be written.
type RowError struct {
	Key string
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// upsertRows writes all rows in one pipelined batch. Postgres runs a batch as a single
// implicit transaction, so if any row fails the whole batch is retried row by row and
// only the failing rows are reported.
func upsertRows(ctx context.Context, pool PgxPool, sql string, keys []string, args [][]any) (int, []RowError) {
	if len(args) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range args {
		batch.Queue(sql, a...)
	}
	if err := execBatch(pool.SendBatch(ctx, batch), len(args)); err == nil {
		return len(args), nil
	}
	if err := ctx.Err(); err != nil {
		return 0, []RowError{{Key: "batch", Err: err}}
	}

	written := 0
	var failed []RowError
	for i, a := range args {
		if _, err := pool.Exec(ctx, sql, a...); err != nil {
			failed = append(failed, RowError{Key: keys[i], Err: err})
			continue
		}
		written++
	}
	return written, failed
}

func execBatch(br pgx.BatchResults, n int) error {
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
