package ctxdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNoDB = fmt.Errorf("ctxdb: no db found in context")
)

// context registration

var dbKey int

func WithDB(ctx context.Context, db *sql.DB) context.Context {
	return context.WithValue(ctx, &dbKey, db)
}

func GetDB(ctx context.Context) *sql.DB {
	if v := ctx.Value(&dbKey); v != nil {
		return v.(*sql.DB)
	}

	return nil
}

type TxFunc func(ctx context.Context, tx *sql.Tx) error

// UsingTx runs fn in a transaction on the context's database, committing if
// fn returns nil and rolling back otherwise.
func UsingTx(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	db := GetDB(ctx)
	if db == nil {
		return ErrNoDB
	}

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("ctxdb.UsingTx: could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ctxdb.UsingTx: could not commit transaction: %w", err)
	}

	return nil
}

// IsLocked reports whether err is sqlite refusing a write because another
// connection holds the lock.
func IsLocked(err error) bool {
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// UsingTxRetry is UsingTx, retried with a short pause while the database
// is locked.
func UsingTxRetry(ctx context.Context, opts *sql.TxOptions, attempts int, fn TxFunc) error {
	var err error

	for i := 0; i < attempts; i++ {
		if err = UsingTx(ctx, opts, fn); !IsLocked(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}

	return err
}

// middleware

func Register(db *sql.DB) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithDB(r.Context(), db)))
	}
}
