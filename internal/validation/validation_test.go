package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type record struct {
	Start string `json:"start" validate:"required,timestamp"`
	Label string `json:"label" validate:"required"`
	Show  string `json:"show" validate:"show"`
	Ref   int    `json:"ref" validate:"gte=0"`
}

func TestBatch(t *testing.T) {
	a := assert.New(t)

	a.NoError(Batch("record", []record{
		{"00:00", "hello", "sone-que-volaba", 0},
		{"1:16:47", "there", "seria-increible", 3},
	}))

	a.NoError(Batch("record", []record{}))

	err := Batch("record", []record{
		{"00:00", "hello", "sone-que-volaba", 0},
		{"0:0", "", "olga", -1},
	})

	var verr *Error
	if a.True(errors.As(err, &verr)) {
		a.Equal("record", verr.Subject)
		a.Len(verr.Violations, 4)

		for _, v := range verr.Violations {
			a.Equal(1, v.Index)
		}

		if v := verr.Find(1, "start"); a.NotNil(v) {
			a.Equal("timestamp", v.Rule)
			a.Equal("0:0", v.Value)
			a.Contains(v.Message, "timestamp like m:ss")
		}

		if v := verr.Find(1, "label"); a.NotNil(v) {
			a.Equal("required", v.Rule)
		}

		if v := verr.Find(1, "show"); a.NotNil(v) {
			a.Equal("show", v.Rule)
		}

		if v := verr.Find(1, "ref"); a.NotNil(v) {
			a.Equal("gte", v.Rule)
		}

		a.Nil(verr.Find(0, "start"))
	}

	a.ErrorIs(err, ErrInvalid)
	a.Contains(err.Error(), "record batch rejected: 4 violation(s)")
}

func TestErrorUnwrapsViolationCauses(t *testing.T) {
	a := assert.New(t)

	cause := errors.New("some cause")

	err := error(&Error{Subject: "x", Violations: []Violation{{Index: 2, Field: "f", Message: "bad", Err: cause}}})

	a.ErrorIs(err, ErrInvalid)
	a.ErrorIs(err, cause)
	a.Equal("x batch rejected: 1 violation(s): [2].f: bad", err.Error())
}
