// Package migrations keeps the sqlite schema up to date.
//
// Every statement that has been applied is recorded, in order, in the
// migrations table. Applying compares that record with the list below and
// runs whatever is missing; statements must only ever be appended.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/ctxlogger"
)

var (
	ErrTooManyApplied = errors.New("database has more migrations applied than are known")
	ErrIncompatible   = errors.New("applied migration does not match known migration")
)

var All = []string{
	`create table videos (
  id integer primary key autoincrement,
  created_at datetime not null,
  updated_at datetime,
  hash text not null unique,
  title text not null,
  show text not null,
  day integer not null,
  month integer not null
)`,
	`create table cuts (
  id integer primary key autoincrement,
  created_at datetime not null,
  video_id integer not null references videos (id) on delete cascade,
  position integer not null,
  start text not null,
  seconds integer not null,
  label text not null
)`,
	`create index cuts_video_id on cuts (video_id, position)`,
	`create table upvotes (
  id integer primary key autoincrement,
  created_at datetime not null,
  cut_id integer not null references cuts (id) on delete cascade,
  voter_id text not null,
  unique (cut_id, voter_id)
)`,
	`create index upvotes_voter_id on upvotes (voter_id)`,
	`create view cut_search as
select
  c.id as cut_id,
  c.position as cut_position,
  c.start as cut_start,
  c.seconds as cut_seconds,
  c.label as cut_label,
  v.id as video_id,
  v.created_at as video_created_at,
  v.hash as video_hash,
  v.title as video_title,
  v.show as video_show,
  v.day as video_day,
  v.month as video_month,
  (select count(*) from upvotes u where u.cut_id = c.id) as upvote_count
from cuts c
join videos v on v.id = c.video_id`,
	`create table jobs (
  id integer primary key autoincrement,
  created_at datetime not null,
  queue_name text not null,
  payload text not null,
  run_after datetime not null,
  failure_delay integer not null,
  attempts_remaining integer not null,
  reserved_at datetime,
  reserved_until datetime,
  finished_at datetime,
  error_messages text not null default '[]',
  output_messages text not null default '[]'
)`,
	`create index jobs_pending on jobs (queue_name, finished_at, run_after)`,
}

// Apply runs every migration in wanted that hasn't been applied to db yet.
func Apply(ctx context.Context, db *sql.DB, wanted []string) error {
	l := ctxlogger.GetLogger(ctx)

	if _, err := db.ExecContext(ctx, "create table if not exists migrations (id integer primary key autoincrement, query text not null)"); err != nil {
		return fmt.Errorf("migrations.Apply: could not create migrations table: %w", err)
	}

	existing, err := applied(ctx, db)
	if err != nil {
		return fmt.Errorf("migrations.Apply: %w", err)
	}

	missing, err := compare(wanted, existing)
	if err != nil {
		return fmt.Errorf("migrations.Apply: %w", err)
	}

	if len(missing) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrations.Apply: could not open transaction: %w", err)
	}
	defer tx.Rollback()

	for i, query := range missing {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("migrations.Apply: migration %d: %w", len(existing)+i+1, err)
		}

		if _, err := tx.ExecContext(ctx, "insert into migrations (query) values (?)", query); err != nil {
			return fmt.Errorf("migrations.Apply: could not record migration %d: %w", len(existing)+i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrations.Apply: could not commit: %w", err)
	}

	l.WithFields(logrus.Fields{
		"migrations.applied": len(missing),
		"migrations.total":   len(wanted),
	}).Info("applied migrations")

	return nil
}

func applied(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "select query from migrations order by id")
	if err != nil {
		return nil, fmt.Errorf("migrations.applied: %w", err)
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			return nil, fmt.Errorf("migrations.applied: %w", err)
		}

		existing = append(existing, query)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("migrations.applied: %w", err)
	}

	return existing, nil
}

func compare(wanted, existing []string) ([]string, error) {
	if len(wanted) < len(existing) {
		return nil, fmt.Errorf("migrations.compare: %d applied, %d known: %w", len(existing), len(wanted), ErrTooManyApplied)
	}

	for i := range existing {
		if wanted[i] != existing[i] {
			return nil, fmt.Errorf("migrations.compare: migration %d: %w", i+1, ErrIncompatible)
		}
	}

	return wanted[len(existing):], nil
}
