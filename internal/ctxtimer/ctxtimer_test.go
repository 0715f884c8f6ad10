package ctxtimer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
)

func TestElapsed(t *testing.T) {
	a := assert.New(t)

	when := time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)

	timer := NewTimer()
	timer.Mark("fetch", when)

	d, err := timer.Elapsed("fetch", when.Add(time.Second))
	a.NoError(err)
	a.Equal(time.Second, d)

	_, err = timer.Elapsed("scan", when)
	a.ErrorIs(err, ErrNoStart)

	_, err = ElapsedNow(context.Background(), "fetch")
	a.ErrorIs(err, ErrNoTimer)
}

func TestMeasure(t *testing.T) {
	a := assert.New(t)

	when := time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	ctx := ctxlogger.WithLogger(context.Background(), logger)
	ctx = ctxclock.WithClock(ctx, ctxclock.NewTestClock([]ctxclock.TestClockResult{
		{Time: when},
		{Time: when.Add(3 * time.Second)},
	}))

	failed := errors.New("failed")

	err := Measure(ctx, "collect", func(ctx context.Context) error {
		a.NotNil(GetTimer(ctx))
		return failed
	})
	a.ErrorIs(err, failed)

	if e := hook.LastEntry(); a.NotNil(e) {
		a.Equal(3*time.Second, e.Data["timer.collect"])
	}
}
