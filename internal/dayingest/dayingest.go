// Package dayingest is the day_ingest job: collect one day's new episodes
// and store them with their cuts.
package dayingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
	"github.com/niconiahi/olga.media/internal/ctxtimer"
	"github.com/niconiahi/olga.media/internal/ingest"
	"github.com/niconiahi/olga.media/internal/jobqueue"
	"github.com/niconiahi/olga.media/internal/listing"
	"github.com/niconiahi/olga.media/internal/store"
	"github.com/niconiahi/olga.media/models"
)

const payloadName = "day"

var ErrBadPayload = errors.New("bad day_ingest payload")

func Payload(day, month int) string {
	return jobqueue.FormatPayload(payloadName, url.Values{
		"day":   {strconv.Itoa(day)},
		"month": {strconv.Itoa(month)},
	})
}

func ParsePayload(s string) (int, int, error) {
	name, values, err := jobqueue.ParsePayload(s)
	if err != nil {
		return 0, 0, fmt.Errorf("dayingest.ParsePayload: %w", err)
	}

	if name != payloadName {
		return 0, 0, fmt.Errorf("dayingest.ParsePayload: %q: %w", s, ErrBadPayload)
	}

	day, dayErr := strconv.Atoi(values.Get("day"))
	month, monthErr := strconv.Atoi(values.Get("month"))
	if dayErr != nil || monthErr != nil {
		return 0, 0, fmt.Errorf("dayingest.ParsePayload: %q: %w", s, ErrBadPayload)
	}

	if err := listing.CheckDate(day, month); err != nil {
		return 0, 0, fmt.Errorf("dayingest.ParsePayload: %w", err)
	}

	return day, month, nil
}

// Job returns the worker function. A day with no new episodes succeeds
// with a note saying so. Episodes that failed make the job fail after the
// others are stored, so a retry only fetches what's still missing.
func Job(fetcher ingest.Fetcher) jobqueue.WorkerFunction {
	return func(ctx context.Context, w *jobqueue.Worker, j *jobqueue.Job) (string, error) {
		day, month, err := ParsePayload(j.Payload)
		if err != nil {
			return "", err
		}

		l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{"ingest.day": day, "ingest.month": month})

		var res *ingest.Result
		if err := ctxtimer.Measure(ctx, "collect", func(ctx context.Context) error {
			r, err := ingest.Collect(ctx, fetcher, store.Known{DB: ctxdb.GetDB(ctx)}, day, month)
			res = r
			return err
		}); err != nil {
			if errors.Is(err, ingest.ErrNothingToAdd) {
				l.Info("nothing to add")
				return fmt.Sprintf("%s: nothing to add", listing.Query(day, month)), nil
			}

			return "", fmt.Errorf("dayingest.Job: %w", err)
		}

		var saved []models.Video
		if err := ctxtimer.Measure(ctx, "save", func(ctx context.Context) error {
			return ctxdb.UsingTxRetry(ctx, nil, 10, func(ctx context.Context, tx *sql.Tx) error {
				v, err := store.SaveBatches(ctx, tx, day, month, res.Batches)
				saved = v
				return err
			})
		}); err != nil {
			return "", fmt.Errorf("dayingest.Job: %w", err)
		}

		l.WithField("ingest.saved", len(saved)).Info("stored day")

		if err := res.Err(); err != nil {
			return res.String(), fmt.Errorf("dayingest.Job: %s: %w", res.String(), err)
		}

		return res.String(), nil
	}
}
