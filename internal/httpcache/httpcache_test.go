package httpcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/niconiahi/olga.media/internal/ctxclock"
)

func newStorage(t *testing.T) *BBoltStorage {
	t.Helper()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "cache.db"), 0600, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewBBoltStorage(db)
}

func get(t *testing.T, c *http.Client, ctx context.Context, u, lang string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	require.NoError(t, err)
	if lang != "" {
		req.Header.Set("accept-language", lang)
	}

	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	d, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(d)
}

func TestTransport(t *testing.T) {
	a := assert.New(t)

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path == "/missing" {
			rw.WriteHeader(http.StatusNotFound)
			return
		}
		io.WriteString(rw, r.Header.Get("accept-language")+" page")
	}))
	defer srv.Close()

	when := time.Date(2023, 10, 12, 0, 0, 0, 0, time.UTC)
	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewStaticClock(when))

	c := &http.Client{Transport: NewTransport(nil, newStorage(t), time.Hour)}

	code, body := get(t, c, ctx, srv.URL+"/@olgaenvivo/streams", "es")
	a.Equal(http.StatusOK, code)
	a.Equal("es page", body)
	a.Equal(1, hits)

	_, body = get(t, c, ctx, srv.URL+"/@olgaenvivo/streams", "es")
	a.Equal("es page", body)
	a.Equal(1, hits, "second request should come from the cache")

	_, body = get(t, c, ctx, srv.URL+"/@olgaenvivo/streams", "en")
	a.Equal("en page", body)
	a.Equal(2, hits, "a different language is a different entry")

	later := ctxclock.WithClock(context.Background(), ctxclock.NewStaticClock(when.Add(2*time.Hour)))
	_, body = get(t, c, later, srv.URL+"/@olgaenvivo/streams", "es")
	a.Equal("es page", body)
	a.Equal(3, hits, "stale entries are fetched again")

	code, _ = get(t, c, ctx, srv.URL+"/missing", "")
	a.Equal(http.StatusNotFound, code)
	code, _ = get(t, c, ctx, srv.URL+"/missing", "")
	a.Equal(http.StatusNotFound, code)
	a.Equal(5, hits, "failures aren't cached")
}

func TestBBoltStorage(t *testing.T) {
	a := assert.New(t)

	s := newStorage(t)

	cr, err := s.Fetch("nothing")
	a.NoError(err)
	a.Nil(cr)

	a.NoError(s.Save("k", &cachedResponse{URL: "https://www.youtube.com/watch?v=A2HPLsdnm6s", StatusCode: http.StatusOK, Body: []byte("body")}))

	cr, err = s.Fetch("k")
	a.NoError(err)
	if a.NotNil(cr) {
		a.Equal("body", string(cr.Body))
		a.Equal(http.StatusOK, cr.StatusCode)
	}
}
