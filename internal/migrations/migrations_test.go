package migrations

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	for _, tc := range []struct {
		name     string
		wanted   []string
		existing []string
		missing  []string
		err      error
	}{
		{"fresh", []string{"a", "b"}, nil, []string{"a", "b"}, nil},
		{"partial", []string{"a", "b", "c"}, []string{"a"}, []string{"b", "c"}, nil},
		{"done", []string{"a", "b"}, []string{"a", "b"}, []string{}, nil},
		{"too many", []string{"a"}, []string{"a", "b"}, nil, ErrTooManyApplied},
		{"changed", []string{"a", "x"}, []string{"a", "b"}, nil, ErrIncompatible},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			missing, err := compare(tc.wanted, tc.existing)
			if tc.err == nil {
				a.NoError(err)
				a.Equal(tc.missing, missing)
			} else {
				a.ErrorIs(err, tc.err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()

	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	require.NoError(t, Apply(ctx, db, All[:2]))
	require.NoError(t, Apply(ctx, db, All))
	require.NoError(t, Apply(ctx, db, All))

	var n int
	a.NoError(db.QueryRow("select count(*) from migrations").Scan(&n))
	a.Equal(len(All), n)

	_, err = db.Exec("insert into videos (created_at, hash, title, show, day, month) values (datetime('now'), 'A2HPLsdnm6s', 't', 'sone-que-volaba', 12, 10)")
	a.NoError(err)

	_, err = db.Exec("insert into videos (created_at, hash, title, show, day, month) values (datetime('now'), 'A2HPLsdnm6s', 't', 'sone-que-volaba', 12, 10)")
	a.Error(err)

	a.ErrorIs(Apply(ctx, db, All[:1]), ErrTooManyApplied)
}
