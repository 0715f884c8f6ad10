package timestamp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var normalizeTests = []struct {
	token     string
	canonical string
	seconds   int
	err       string
}{
	{"0:00", "00:00", 0, ""},
	{"00:00", "00:00", 0, ""},
	{"0:40", "00:40", 40, ""},
	{"02:28", "02:28", 148, ""},
	{"2:28", "02:28", 148, ""},
	{"39:48", "39:48", 2388, ""},
	{"1:16:47", "1:16:47", 4607, ""},
	{"01:16:47", "1:16:47", 4607, ""},
	{"1:50:00", "1:50:00", 6600, ""},
	{"40", "40", 40, ""},
	{" 6:09 ", "06:09", 369, ""},
	{"", "", 0, "empty token"},
	{"1:2", "", 0, "should have 2 digits"},
	{"1:2:3:4", "", 0, "has 4 groups"},
	{"a:bc", "", 0, "not numeric"},
	{"1:6o", "", 0, "not numeric"},
	{"123:45", "", 0, "minutes group is too long"},
	{"100:00:00", "", 0, "hours group is too long"},
	{"1:75", "", 0, "should be at most 59"},
	{"1::00", "", 0, "empty group"},
}

func TestNormalize(t *testing.T) {
	for _, tc := range normalizeTests {
		t.Run(tc.token, func(t *testing.T) {
			a := assert.New(t)

			s, err := Normalize(tc.token)
			if tc.err == "" {
				a.NoError(err)
				a.Equal(tc.canonical, s)
			} else {
				if a.Error(err) {
					a.Contains(err.Error(), tc.err)
					a.True(errors.Is(err, ErrMalformed) || errors.Is(err, ErrEmpty))
				}
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, tc := range normalizeTests {
		if tc.err != "" {
			continue
		}

		t.Run(tc.token, func(t *testing.T) {
			a := assert.New(t)

			once, err := Normalize(tc.token)
			a.NoError(err)

			twice, err := Normalize(once)
			a.NoError(err)

			a.Equal(once, twice)
		})
	}
}

func TestSeconds(t *testing.T) {
	for _, tc := range normalizeTests {
		if tc.err != "" {
			continue
		}

		t.Run(tc.token, func(t *testing.T) {
			a := assert.New(t)

			n, err := Seconds(tc.token)
			a.NoError(err)
			a.Equal(tc.seconds, n)
		})
	}
}

func TestValid(t *testing.T) {
	a := assert.New(t)

	a.True(Valid("1:16:47"))
	a.True(Valid("40"))
	a.False(Valid("1:6"))
	a.False(Valid(""))
}
