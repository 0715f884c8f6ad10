package ctxclock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	a := assert.New(t)

	_, err := Now(context.Background())
	a.ErrorIs(err, ErrNoClock)

	when := time.Date(2023, 10, 12, 22, 0, 0, 0, time.UTC)

	now, err := Now(WithClock(context.Background(), NewStaticClock(when)))
	a.NoError(err)
	a.Equal(when, now)
}

func TestToday(t *testing.T) {
	a := assert.New(t)

	ctx := WithClock(context.Background(), NewStaticClock(time.Date(2023, 10, 13, 1, 0, 0, 0, time.UTC)))

	day, month, err := Today(ctx, nil)
	a.NoError(err)
	a.Equal(13, day)
	a.Equal(10, month)

	buenosAires := time.FixedZone("ART", -3*60*60)

	day, month, err = Today(ctx, buenosAires)
	a.NoError(err)
	a.Equal(12, day)
	a.Equal(10, month)
}

func TestStackedClock(t *testing.T) {
	a := assert.New(t)

	when := time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)
	broken := errors.New("broken")

	now, err := NewStackedClock([]Clock{NewErrorClock(broken), NewStaticClock(when)}).Now()
	a.NoError(err)
	a.Equal(when, now)

	_, err = NewStackedClock([]Clock{NewErrorClock(broken)}).Now()
	a.ErrorIs(err, broken)

	_, err = NewStackedClock(nil).Now()
	a.ErrorIs(err, ErrNoClock)
}

func TestTestClock(t *testing.T) {
	a := assert.New(t)

	when := time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)
	broken := errors.New("broken")

	c := NewTestClock([]TestClockResult{{Time: when}, {Error: broken}})

	now, err := c.Now()
	a.NoError(err)
	a.Equal(when, now)

	_, err = c.Now()
	a.ErrorIs(err, broken)

	_, err = c.Now()
	a.ErrorIs(err, ErrNoTimesLeft)
}
