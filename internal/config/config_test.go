package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLevelList(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out LevelList
		err string
	}{
		{"", LevelList{}, ""},
		{"-", LevelList{}, ""},
		{"debug", LevelList{logrus.DebugLevel}, ""},
		{"debug, trace,", LevelList{logrus.DebugLevel, logrus.TraceLevel}, ""},
		{"loud", nil, "could not parse value as logrus level"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)

			var l LevelList
			err := l.UnmarshalText([]byte(tc.in))
			if tc.err == "" {
				a.NoError(err)
				a.Equal(tc.out, l)
			} else if a.Error(err) {
				a.Contains(err.Error(), tc.err)
			}
		})
	}
}

func TestLogQueries(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out LogQueries
		err string
	}{
		{"", LogQueries{}, ""},
		{"none", LogQueries{}, ""},
		{"all", LogQueries{Enabled: true}, ""},
		{">100ms", LogQueries{Enabled: true, SlowerThan: 100 * time.Millisecond}, ""},
		{">soon", LogQueries{}, "could not parse value as duration"},
		{"some", LogQueries{}, "unrecognised input"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)

			var l LogQueries
			err := l.UnmarshalText([]byte(tc.in))
			if tc.err == "" {
				a.NoError(err)
				a.Equal(tc.out, l)

				d, err := l.MarshalText()
				a.NoError(err)

				var l2 LogQueries
				a.NoError(l2.UnmarshalText(d))
				a.Equal(l, l2)
			} else if a.Error(err) {
				a.Contains(err.Error(), tc.err)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	a := assert.New(t)

	var d Duration
	a.NoError(d.UnmarshalText([]byte("6h")))
	a.Equal(Duration(6*time.Hour), d)

	b, err := d.MarshalText()
	a.NoError(err)
	a.Equal("6h0m0s", string(b))

	a.Error(d.UnmarshalText([]byte("six hours")))
}
