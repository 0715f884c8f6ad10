package ytscrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/niconiahi/olga.media/internal/cutscan"
	"github.com/niconiahi/olga.media/internal/listing"
	"github.com/niconiahi/olga.media/internal/show"
)

const searchPage = `<!DOCTYPE html><html><head><title>olga - YouTube</title></head><body>
<script nonce="x">var ytInitialData = {"contents":[{"videoRenderer":{"videoId":"A2HPLsdnm6s","title":{"runs":[{"text":"CONCURSO de ERUCTOS | Soñé Que Volaba | COMPLETO 12/10"}]}}},{"videoRenderer":{"videoId":"f2rdkeeshZU","title":{"runs":[{"text":"HOMERO | Sería Increíble | COMPLETO 12/10"}]}}}]};</script>
<script>window.other = {"videoId":"zzzzzzzzzzz","text":"Soñé Que Volaba | COMPLETO 12/10"};</script>
</body></html>`

func watchPage(id string) string {
	description := `Programa completo\n\n0:00 Arranca\n0:40 Goni\n1:16:47 EMOCIONADOS\n\nSeguinos`

	return fmt.Sprintf(`<!DOCTYPE html><html><body>
<script>var ytInitialPlayerResponse = {"videoDetails":{"videoId":"%s","title":"Soñé Que Volaba | COMPLETO 12/10","shortDescription":"%s"}};var meta = document.createElement('meta');</script>
<script>var ytInitialData = {"contents":{"description":{"simpleText":"%s"}}};</script>
</body></html>`, id, description, description)
}

func newServer(t *testing.T) (*httptest.Server, *[]string) {
	var requests []string

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RequestURI())

		switch {
		case r.URL.Path == "/@olgaenvivo_/search" && r.URL.Query().Get("query") == "12/10":
			fmt.Fprint(rw, searchPage)
		case r.URL.Path == "/watch" && r.URL.Query().Get("v") == "A2HPLsdnm6s":
			fmt.Fprint(rw, watchPage("A2HPLsdnm6s"))
		case r.URL.Path == "/watch" && r.URL.Query().Get("v") == "f2rdkeeshZU":
			fmt.Fprint(rw, watchPage("xxxxxxxxxxx"))
		default:
			http.Error(rw, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	return srv, &requests
}

func TestSearchPage(t *testing.T) {
	a := assert.New(t)

	srv, requests := newServer(t)

	c := &Client{BaseURL: srv.URL, Channel: "olgaenvivo_"}

	text, err := c.SearchPage(context.Background(), 12, 10)
	a.NoError(err)
	a.Equal([]string{"/@olgaenvivo_/search?query=12%2F10"}, *requests)
	a.True(strings.HasPrefix(text, "var ytInitialData ="))
	a.NotContains(text, "zzzzzzzzzzz")

	videos, err := listing.Scan(text, 12, 10)
	a.NoError(err)
	a.Equal([]listing.Video{
		{Hash: "A2HPLsdnm6s", Title: "CONCURSO de ERUCTOS | Soñé Que Volaba | COMPLETO 12/10", Show: show.SoneQueVolaba},
		{Hash: "f2rdkeeshZU", Title: "HOMERO | Sería Increíble | COMPLETO 12/10", Show: show.SeriaIncreible},
	}, videos)
}

func TestSearchPageErrors(t *testing.T) {
	a := assert.New(t)

	srv, _ := newServer(t)

	c := &Client{BaseURL: srv.URL, Channel: "olgaenvivo_"}

	_, err := c.SearchPage(context.Background(), 11, 10)

	var terr *TransportError
	if a.True(errors.As(err, &terr)) {
		a.Equal(http.StatusNotFound, terr.StatusCode)
		a.Contains(terr.URL, "/@olgaenvivo_/search?query=11%2F10")
	}

	_, err = c.SearchPage(context.Background(), 40, 10)
	a.ErrorIs(err, listing.ErrBadDate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = c.SearchPage(ctx, 12, 10)
	a.ErrorIs(err, context.Canceled)
	a.True(errors.As(err, &terr))
}

func TestWatchPage(t *testing.T) {
	a := assert.New(t)

	srv, _ := newServer(t)

	c := &Client{BaseURL: srv.URL, Channel: "olgaenvivo_"}

	text, err := c.WatchPage(context.Background(), "A2HPLsdnm6s")
	a.NoError(err)

	cuts, err := cutscan.Parse(text, 0)
	a.NoError(err)
	a.Equal([]cutscan.Cut{
		{Start: "00:00", Seconds: 0, Label: "Arranca"},
		{Start: "00:40", Seconds: 40, Label: "Goni"},
		{Start: "1:16:47", Seconds: 4607, Label: "EMOCIONADOS"},
	}, cuts)
}

func TestWatchPageErrors(t *testing.T) {
	a := assert.New(t)

	srv, _ := newServer(t)

	c := &Client{BaseURL: srv.URL, Channel: "olgaenvivo_"}

	_, err := c.WatchPage(context.Background(), "f2rdkeeshZU")
	a.ErrorIs(err, ErrWrongVideo)

	_, err = c.WatchPage(context.Background(), "30bcG4mLRNA")
	var terr *TransportError
	if a.True(errors.As(err, &terr)) {
		a.Equal(http.StatusNotFound, terr.StatusCode)
	}

	_, err = c.WatchPage(context.Background(), "not an id")
	a.Error(err)
}
