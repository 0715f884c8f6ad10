// Package ctxclock keeps the current time source in the context, so code
// that stamps records can be tested with a fixed time.
package ctxclock

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/ctxlogger"
)

// context registation

var clockKey int

func WithClock(ctx context.Context, c Clock) context.Context {
	if c == nil {
		c = NewRealClock()
	}

	return context.WithValue(ctx, &clockKey, c)
}

func GetClock(ctx context.Context) Clock {
	if v := ctx.Value(&clockKey); v != nil {
		return v.(Clock)
	}

	return nil
}

func Now(ctx context.Context) (time.Time, error) {
	if c := GetClock(ctx); c != nil {
		return c.Now()
	}

	return time.Time{}, fmt.Errorf("ctxclock.Now: %w", ErrNoClock)
}

// Today is the day and month of Now in loc.
func Today(ctx context.Context, loc *time.Location) (int, int, error) {
	now, err := Now(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ctxclock.Today: %w", err)
	}

	if loc != nil {
		now = now.In(loc)
	}

	return now.Day(), int(now.Month()), nil
}

// middleware

func Register(c Clock) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithClock(r.Context(), c)))
	}
}

func logTime(r *http.Request, l logrus.FieldLogger, field string) logrus.FieldLogger {
	now, err := Now(r.Context())
	if err != nil {
		l.WithError(err).Warning("clock middleware could not get time")
		return l
	}

	return l.WithField(field, now.Format(time.RFC3339))
}

func AddLoggerHooks() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxlogger.AddHookPair(
			r.Context(),
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				return logTime(r, l, "http.request_start")
			},
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				return logTime(r, l, "http.response_end")
			},
		)))
	}
}

// public interface

var (
	ErrNoTimesLeft = fmt.Errorf("ctxclock.ErrNoTimesLeft: no times left")
	ErrNoClock     = fmt.Errorf("ctxclock.ErrNoClock: no clock found in context")
)

type Clock interface {
	Now() (time.Time, error)
}

// real clock

type realClock struct{}

func NewRealClock() Clock {
	return &realClock{}
}

func (realClock) Now() (time.Time, error) {
	return time.Now().UTC(), nil
}

// static clock

type staticClock struct{ t time.Time }

func NewStaticClock(t time.Time) Clock {
	return &staticClock{t: t}
}

func (c *staticClock) Now() (time.Time, error) {
	return c.t, nil
}

// error clock

type errorClock struct{ err error }

func NewErrorClock(err error) Clock {
	return &errorClock{err: err}
}

func (c *errorClock) Now() (time.Time, error) {
	return time.Time{}, fmt.Errorf("ctxclock.errorClock.Now: %w", c.err)
}

// stacked clock, answers with the first clock that doesn't fail

type stackedClock struct{ clocks []Clock }

func NewStackedClock(clocks []Clock) Clock {
	return &stackedClock{clocks: clocks}
}

func (c *stackedClock) Now() (time.Time, error) {
	var errs []error

	for i, e := range c.clocks {
		t, err := e.Now()
		if err != nil {
			errs = append(errs, fmt.Errorf("clock %d: %w", i, err))
			continue
		}

		return t, nil
	}

	if len(errs) == 0 {
		return time.Time{}, fmt.Errorf("ctxclock.stackedClock.Now: %w", ErrNoClock)
	}

	return time.Time{}, fmt.Errorf("ctxclock.stackedClock.Now: %w", errors.Join(errs...))
}

// testing clock

type TestClockResult struct {
	Time  time.Time
	Error error
}

type testClock struct {
	m sync.Mutex
	a []TestClockResult
	i int
}

func NewTestClock(results []TestClockResult) Clock {
	return &testClock{a: results}
}

func (c *testClock) Now() (time.Time, error) {
	c.m.Lock()
	defer c.m.Unlock()

	if c.i >= len(c.a) {
		return time.Time{}, fmt.Errorf("ctxclock.testClock.Now: %w", ErrNoTimesLeft)
	}

	r := c.a[c.i]

	c.i++

	return r.Time, r.Error
}
