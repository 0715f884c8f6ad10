// Package jobqueue is a small job queue kept in the sqlite jobs table.
//
// A job is reserved before it runs, so several workers can share a queue,
// and a failed job is retried after its FailureDelay until it runs out of
// attempts.
package jobqueue

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"fknsrs.biz/p/sorm"

	"github.com/niconiahi/olga.media/internal/sqltypes"
)

// ParsePayload splits a payload made by FormatPayload back into its name and
// parameters.
func ParsePayload(s string) (string, url.Values, error) {
	if !strings.Contains(s, "?") {
		return s, url.Values{}, nil
	}

	a := strings.SplitN(s, "?", 2)

	m, err := url.ParseQuery(a[1])
	if err != nil {
		return a[0], url.Values{}, fmt.Errorf("jobqueue.ParsePayload: %w", err)
	}

	return a[0], m, nil
}

func FormatPayload(s string, m url.Values) string {
	if len(m) == 0 {
		return s
	}

	return s + "?" + m.Encode()
}

const (
	DefaultFailureDelay      = time.Second * 30
	DefaultAttemptsRemaining = 3
	DefaultReserveDuration   = time.Minute * 5
)

type Job struct {
	ID                int `sql:",table:jobs"`
	CreatedAt         time.Time
	QueueName         string
	Payload           string
	RunAfter          time.Time
	FailureDelay      time.Duration
	AttemptsRemaining int
	ReservedAt        *time.Time
	ReservedUntil     *time.Time
	FinishedAt        *time.Time
	ErrorMessages     sqltypes.JSONStringSlice
	OutputMessages    sqltypes.JSONStringSlice
}

func (j *Job) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "CreatedAt":
			scanners[i] = &sqltypes.TimeScanner{Value: &j.CreatedAt}
		case "RunAfter":
			scanners[i] = &sqltypes.TimeScanner{Value: &j.RunAfter}
		case "ReservedAt":
			scanners[i] = &sqltypes.TimePointerScanner{Value: &j.ReservedAt}
		case "ReservedUntil":
			scanners[i] = &sqltypes.TimePointerScanner{Value: &j.ReservedUntil}
		case "FinishedAt":
			scanners[i] = &sqltypes.TimePointerScanner{Value: &j.FinishedAt}
		}
	}

	return nil
}

// Status is how the jobs page describes a job at time now.
func (j *Job) Status(now time.Time) string {
	switch {
	case j.FinishedAt != nil && len(j.ErrorMessages) > 0 && j.ErrorMessages[len(j.ErrorMessages)-1] != "":
		return "failed"
	case j.FinishedAt != nil:
		return "done"
	case j.ReservedUntil != nil && j.ReservedUntil.After(now):
		return "running"
	case len(j.ErrorMessages) > 0:
		return "retrying"
	default:
		return "pending"
	}
}

func findNext(ctx context.Context, db sorm.Querier, queueNames []string, now time.Time) (*Job, error) {
	if len(queueNames) == 0 {
		return nil, nil
	}

	var parameters []interface{}
	var placeholders []string

	for i := range queueNames {
		parameters = append(parameters, queueNames[i])
		placeholders = append(placeholders, fmt.Sprintf("?%d", i+1))
	}

	parameters = append(parameters, now)

	query := fmt.Sprintf(
		"where queue_name in (%s) and run_after <= ?%d and (reserved_until is null or reserved_until < ?%d) and finished_at is null order by run_after asc, id asc",
		strings.Join(placeholders, ", "),
		len(parameters),
		len(parameters),
	)

	var job Job
	if err := sorm.FindFirstWhere(ctx, db, &job, query, parameters...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("jobqueue.findNext: could not find pending job record: %w", err)
	}

	return &job, nil
}

func reserve(ctx context.Context, tx *sql.Tx, job *Job, now time.Time, reserveDuration time.Duration) error {
	if job.ReservedUntil != nil && job.ReservedUntil.After(now) {
		return fmt.Errorf("jobqueue.reserve: can't reserve a job with a non-expired reservation")
	}
	if job.FinishedAt != nil {
		return fmt.Errorf("jobqueue.reserve: can't reserve a job that has already finished")
	}

	if reserveDuration == 0 {
		reserveDuration = DefaultReserveDuration
	}

	reservedUntil := now.Add(reserveDuration)
	job.ReservedAt = &now
	job.ReservedUntil = &reservedUntil

	if err := sorm.SaveRecord(ctx, tx, job); err != nil {
		return fmt.Errorf("jobqueue.reserve: could not save job record: %w", err)
	}

	return nil
}

func findNextAndReserve(ctx context.Context, tx *sql.Tx, queueNames []string, now time.Time, reserveDuration time.Duration) (*Job, error) {
	j, err := findNext(ctx, tx, queueNames, now)
	if err != nil {
		return nil, fmt.Errorf("jobqueue.findNextAndReserve: could not find next job: %w", err)
	}

	if j == nil {
		return nil, nil
	}

	if err := reserve(ctx, tx, j, now, reserveDuration); err != nil {
		return nil, fmt.Errorf("jobqueue.findNextAndReserve: could not reserve job: %w", err)
	}

	return j, nil
}

// finish records one run of job. A failed run with attempts left puts the
// job back in the queue after its FailureDelay.
func finish(ctx context.Context, tx *sql.Tx, job *Job, now time.Time, errorMessage, outputMessage string) error {
	if job.FinishedAt != nil {
		return fmt.Errorf("jobqueue.finish: can't finish a job that has already finished")
	}

	job.FinishedAt = &now
	job.ErrorMessages = append(job.ErrorMessages, errorMessage)
	job.OutputMessages = append(job.OutputMessages, outputMessage)

	if errorMessage != "" && job.AttemptsRemaining > 0 {
		job.AttemptsRemaining--
		job.RunAfter = now.Add(job.FailureDelay)
		job.ReservedAt = nil
		job.ReservedUntil = nil
		job.FinishedAt = nil
	}

	if err := sorm.SaveRecord(ctx, tx, job); err != nil {
		return fmt.Errorf("jobqueue.finish: could not save job record: %w", err)
	}

	return nil
}

// FindUnfinished returns the unfinished job in queueName with payload, if
// there is one.
func FindUnfinished(ctx context.Context, db sorm.Querier, queueName, payload string) (*Job, error) {
	var job Job
	if err := sorm.FindFirstWhere(ctx, db, &job, "where queue_name = ? and payload = ? and finished_at is null order by id asc", queueName, payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, fmt.Errorf("jobqueue.FindUnfinished: %w", err)
	}

	return &job, nil
}

// Recent returns up to limit jobs, unfinished ones first, then newest first.
func Recent(ctx context.Context, db sorm.Querier, limit int) ([]Job, error) {
	var jobs []Job
	if err := sorm.FindWhere(ctx, db, &jobs, "where 1 = 1 order by finished_at is not null, id desc limit ?", limit); err != nil {
		return nil, fmt.Errorf("jobqueue.Recent: %w", err)
	}

	return jobs, nil
}
