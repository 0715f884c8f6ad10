// Package ctxtimer measures named spans of work (a request, an ingest phase)
// against the context's clock.
package ctxtimer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
)

// context registration

var timerKey int

func WithTimer(ctx context.Context, t *Timer) context.Context {
	if t == nil {
		t = NewTimer()
	}

	return context.WithValue(ctx, &timerKey, t)
}

func GetTimer(ctx context.Context) *Timer {
	if v := ctx.Value(&timerKey); v != nil {
		return v.(*Timer)
	}

	return nil
}

// middleware

const requestTimerName = "ctxtimer.request"

// Register gives each request its own timer.
func Register() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithTimer(r.Context(), NewTimer())))
	}
}

func AddLoggerHooks() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxlogger.AddHookPair(
			r.Context(),
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				if err := MarkNow(r.Context(), requestTimerName); err != nil {
					l.WithError(err).Warning("ctxtimer: could not mark request start")
				}

				return l
			},
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				elapsed, err := ElapsedNow(r.Context(), requestTimerName)
				if err != nil {
					l.WithError(err).Warning("ctxtimer: could not get request duration")
					return l
				}

				return l.WithField("http.duration", elapsed)
			},
		)))
	}
}

// public interface

var (
	ErrNoTimer = fmt.Errorf("ctxtimer.ErrNoTimer: no timer found with this name")
	ErrNoStart = fmt.Errorf("ctxtimer.ErrNoStart: nothing marked with this name")
)

type Timer struct {
	rw    sync.RWMutex
	start map[string]time.Time
}

func NewTimer() *Timer {
	return &Timer{start: make(map[string]time.Time)}
}

func (t *Timer) Mark(name string, tt time.Time) {
	t.rw.Lock()
	defer t.rw.Unlock()

	t.start[name] = tt
}

func (t *Timer) Elapsed(name string, tt time.Time) (time.Duration, error) {
	t.rw.RLock()
	defer t.rw.RUnlock()

	start, ok := t.start[name]
	if !ok {
		return 0, fmt.Errorf("ctxtimer.Timer.Elapsed: %q: %w", name, ErrNoStart)
	}

	return tt.Sub(start), nil
}

func MarkNow(ctx context.Context, name string) error {
	t := GetTimer(ctx)
	if t == nil {
		return ErrNoTimer
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return fmt.Errorf("ctxtimer.MarkNow: %w", err)
	}

	t.Mark(name, now)

	return nil
}

func ElapsedNow(ctx context.Context, name string) (time.Duration, error) {
	t := GetTimer(ctx)
	if t == nil {
		return 0, ErrNoTimer
	}

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("ctxtimer.ElapsedNow: %w", err)
	}

	d, err := t.Elapsed(name, now)
	if err != nil {
		return 0, fmt.Errorf("ctxtimer.ElapsedNow: %w", err)
	}

	return d, nil
}

// Measure runs fn and logs how long it took as timer.<name>. Without a timer
// in ctx, one is added for the duration of fn.
func Measure(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if GetTimer(ctx) == nil {
		ctx = WithTimer(ctx, nil)
	}

	l := ctxlogger.GetLogger(ctx)

	if err := MarkNow(ctx, name); err != nil {
		l.WithError(err).Warning("ctxtimer: could not mark start")
	}

	fnErr := fn(ctx)

	if d, err := ElapsedNow(ctx, name); err == nil {
		l.WithField("timer."+name, d).Debug("timed")
	}

	return fnErr
}
