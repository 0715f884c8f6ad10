package ctxdb

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)

	_, err = db.Exec("create table things (name text not null)")
	require.NoError(t, err)

	return db
}

func count(t *testing.T, db *sql.DB) int {
	var n int
	require.NoError(t, db.QueryRow("select count(*) from things").Scan(&n))
	return n
}

func TestUsingTx(t *testing.T) {
	a := assert.New(t)

	db := newDB(t)
	ctx := WithDB(context.Background(), db)

	a.NoError(UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "insert into things (name) values ('kept')")
		return err
	}))
	a.Equal(1, count(t, db))

	boom := errors.New("boom")
	a.ErrorIs(UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "insert into things (name) values ('dropped')"); err != nil {
			return err
		}
		return boom
	}), boom)
	a.Equal(1, count(t, db))

	a.ErrorIs(UsingTx(context.Background(), nil, nil), ErrNoDB)
}

func TestUsingTxRetry(t *testing.T) {
	a := assert.New(t)

	ctx := WithDB(context.Background(), newDB(t))

	calls := 0
	err := UsingTxRetry(ctx, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		calls++
		if calls < 2 {
			return errors.New("database is locked")
		}
		return nil
	})
	a.NoError(err)
	a.Equal(2, calls)

	calls = 0
	err = UsingTxRetry(ctx, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		calls++
		return errors.New("database is locked")
	})
	a.True(IsLocked(err))
	a.Equal(3, calls)

	calls = 0
	other := errors.New("other")
	a.ErrorIs(UsingTxRetry(ctx, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		calls++
		return other
	}), other)
	a.Equal(1, calls)
}
