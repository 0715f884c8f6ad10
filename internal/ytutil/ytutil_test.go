package ytutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out string
		err string
	}{
		{"30bcG4mLRNA", "30bcG4mLRNA", ""},
		{" A2HPLsdnm6s ", "A2HPLsdnm6s", ""},
		{"https://www.youtube.com/watch?v=f2rdkeeshZU", "f2rdkeeshZU", ""},
		{"https://www.youtube.com/watch?v=f2rdkeeshZU&t=148s", "f2rdkeeshZU", ""},
		{"https://youtu.be/30bcG4mLRNA", "30bcG4mLRNA", ""},
		{"https://www.youtube.com/watch?v=short", "", "invalid video id"},
		{"https://www.youtube.com/watch", "", "no v query parameter"},
		{"https://youtu.be/", "", "no path content"},
		{"30bcG4mLRN!", "", "could not find a known pattern"},
		{"https://example.com/watch?v=30bcG4mLRNA", "", "could not find a known pattern"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)

			id, err := ExtractVideoID(tc.in)
			if tc.err == "" {
				a.NoError(err)
				a.Equal(tc.out, id)
			} else if a.Error(err) {
				a.Contains(err.Error(), tc.err)
			}
		})
	}
}

func TestWatchURL(t *testing.T) {
	a := assert.New(t)

	a.Equal("https://www.youtube.com/watch?v=30bcG4mLRNA&t=4607s", WatchURL("30bcG4mLRNA", 4607))
	a.Equal("https://www.youtube.com/watch?v=30bcG4mLRNA", WatchURL("30bcG4mLRNA", 0))
}

func TestSearchURL(t *testing.T) {
	a := assert.New(t)

	a.Equal("https://www.youtube.com/@olgaenvivo_/search?query=12%2F10", SearchURL(BaseURL, "olgaenvivo_", "12/10"))
	a.Equal("http://127.0.0.1:1234/@olgaenvivo_/search?query=2%2F9", SearchURL("http://127.0.0.1:1234/", "@olgaenvivo_", "2/9"))
}
