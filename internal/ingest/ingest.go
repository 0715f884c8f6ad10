// Package ingest gathers the cuts for every new episode of a given day.
//
// It fetches the channel's search results for the day, keeps the episodes
// that aren't stored yet, then fetches and parses each watch page
// concurrently. A video whose page can't be fetched or parsed is reported in
// Result.Failures and never contributes cuts. A video whose description has
// no chapters is reported in Result.Empty; that is not a failure.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/niconiahi/olga.media/internal/catchpanic"
	"github.com/niconiahi/olga.media/internal/ctxconfig"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
	"github.com/niconiahi/olga.media/internal/cutscan"
	"github.com/niconiahi/olga.media/internal/listing"
)

var ErrNothingToAdd = errors.New("nothing to add")

const defaultConcurrency = 4

type Fetcher interface {
	SearchPage(ctx context.Context, day, month int) (string, error)
	WatchPage(ctx context.Context, hash string) (string, error)
}

type Known interface {
	ExistingHashes(ctx context.Context, hashes []string) (map[string]bool, error)
}

type Batch struct {
	Video listing.Video
	Cuts  []cutscan.Cut
}

type Failure struct {
	Video listing.Video
	Err   error
}

type Result struct {
	Day      int
	Month    int
	Skipped  []string
	Batches  []Batch
	Empty    []listing.Video
	Failures []Failure
}

// Err joins every per-video failure, or returns nil if there were none.
func (r *Result) Err() error {
	var errs []error
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Video.Hash, f.Err))
	}

	return errors.Join(errs...)
}

func (r *Result) String() string {
	s := fmt.Sprintf("%d/%d: %d added, %d skipped, %d failed", r.Day, r.Month, len(r.Batches), len(r.Skipped), len(r.Failures))
	if len(r.Empty) > 0 {
		s += fmt.Sprintf(", %d without cuts", len(r.Empty))
	}

	return s
}

func concurrency(ctx context.Context) int {
	if n := ctxconfig.GetConfig(ctx).FetchConcurrency; n > 0 {
		return n
	}

	return defaultConcurrency
}

// Collect finds the episodes published for day/month that known doesn't
// have yet, and extracts their cuts. It returns ErrNothingToAdd when there
// are no new episodes.
func Collect(ctx context.Context, fetcher Fetcher, known Known, day, month int) (*Result, error) {
	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{"ingest.day": day, "ingest.month": month})

	text, err := fetcher.SearchPage(ctx, day, month)
	if err != nil {
		return nil, fmt.Errorf("ingest.Collect: %w", err)
	}

	videos, err := listing.Scan(text, day, month)
	if err != nil {
		if errors.Is(err, listing.ErrNoVideos) {
			return nil, fmt.Errorf("ingest.Collect: %w: %w", ErrNothingToAdd, err)
		}

		return nil, fmt.Errorf("ingest.Collect: %w", err)
	}

	hashes := make([]string, len(videos))
	for i, v := range videos {
		hashes[i] = v.Hash
	}

	existing, err := known.ExistingHashes(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("ingest.Collect: %w", err)
	}

	res := Result{Day: day, Month: month}

	var fresh []listing.Video
	for _, v := range videos {
		if existing[v.Hash] {
			res.Skipped = append(res.Skipped, v.Hash)
			continue
		}

		fresh = append(fresh, v)
	}

	if len(fresh) == 0 {
		l.WithField("ingest.skipped", len(res.Skipped)).Info("all videos already stored")
		return &res, fmt.Errorf("ingest.Collect: %d/%d: %w", day, month, ErrNothingToAdd)
	}

	batches := make([]*Batch, len(fresh))
	failures := make([]error, len(fresh))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency(ctx))

	for i := range fresh {
		i := i

		g.Go(func() error {
			cuts, err := catchpanic.CatchErr1(func() ([]cutscan.Cut, error) {
				return collectVideo(gctx, fetcher, fresh[i], i)
			})
			if err != nil {
				failures[i] = err
				return nil
			}

			batches[i] = &Batch{Video: fresh[i], Cuts: cuts}

			return nil
		})
	}

	// goroutines only ever return nil; failures stay with their own video
	_ = g.Wait()

	for i := range fresh {
		if errors.Is(failures[i], cutscan.ErrNoCuts) {
			l.WithField("video.hash", fresh[i].Hash).Info("video has no cuts")
			res.Empty = append(res.Empty, fresh[i])
			continue
		}

		if failures[i] != nil {
			l.WithError(failures[i]).WithField("video.hash", fresh[i].Hash).Warn("could not collect cuts for video")
			res.Failures = append(res.Failures, Failure{Video: fresh[i], Err: failures[i]})
			continue
		}

		res.Batches = append(res.Batches, *batches[i])
	}

	l.WithFields(logrus.Fields{
		"ingest.added":   len(res.Batches),
		"ingest.skipped": len(res.Skipped),
		"ingest.empty":   len(res.Empty),
		"ingest.failed":  len(res.Failures),
	}).Info("collected cuts")

	return &res, nil
}

func collectVideo(ctx context.Context, fetcher Fetcher, v listing.Video, ref int) ([]cutscan.Cut, error) {
	text, err := fetcher.WatchPage(ctx, v.Hash)
	if err != nil {
		return nil, fmt.Errorf("ingest.collectVideo: %w", err)
	}

	cuts, err := cutscan.Parse(text, ref)
	if err != nil {
		return nil, fmt.Errorf("ingest.collectVideo: %w", err)
	}

	return cuts, nil
}
