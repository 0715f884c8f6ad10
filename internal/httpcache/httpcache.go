// Package httpcache is an http.RoundTripper that keeps successful GET
// responses in bbolt, so re-running a day doesn't fetch every YouTube page
// again.
package httpcache

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
)

type cachedResponse struct {
	UpdatedAt  time.Time
	URL        string
	Status     string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *cachedResponse) makeResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:        r.Status,
		StatusCode:    r.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        r.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(r.Body)),
		ContentLength: int64(len(r.Body)),
		Request:       req,
	}
}

type Storage interface {
	Fetch(key string) (*cachedResponse, error)
	Save(key string, r *cachedResponse) error
}

// Key identifies a request in the cache. Pages differ by language, so
// Accept-Language is part of it.
func Key(req *http.Request) string {
	h := sha1.New()
	io.WriteString(h, req.Method+" "+req.URL.String()+"\n"+req.Header.Get("accept-language"))
	return req.URL.Host + "/" + hex.EncodeToString(h.Sum(nil))
}

var bboltBucketName = []byte("cache")

type BBoltStorage struct {
	db *bbolt.DB
}

func NewBBoltStorage(db *bbolt.DB) *BBoltStorage {
	return &BBoltStorage{db: db}
}

func (s *BBoltStorage) Fetch(key string) (*cachedResponse, error) {
	var d []byte

	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bboltBucketName)
		if b == nil {
			return nil
		}

		// only valid inside the transaction
		if v := b.Get([]byte(key)); v != nil {
			d = append([]byte(nil), v...)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: %w", err)
	}

	if d == nil {
		return nil, nil
	}

	var r cachedResponse
	if err := gob.NewDecoder(bytes.NewReader(d)).Decode(&r); err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: could not decode entry: %w", err)
	}

	return &r, nil
}

func (s *BBoltStorage) Save(key string, r *cachedResponse) error {
	buf := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(buf).Encode(r); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: could not encode entry: %w", err)
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bboltBucketName)
		if err != nil {
			return err
		}

		return b.Put([]byte(key), buf.Bytes())
	}); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: %w", err)
	}

	return nil
}

const DefaultMaxAge = time.Hour * 6

type Transport struct {
	transport http.RoundTripper
	storage   Storage
	maxAge    time.Duration
}

func NewTransport(transport http.RoundTripper, storage Storage, maxAge time.Duration) *Transport {
	if transport == nil {
		transport = http.DefaultTransport
	}

	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}

	return &Transport{
		transport: transport,
		storage:   storage,
		maxAge:    maxAge,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.transport.RoundTrip(req)
	}

	ctx := req.Context()
	l := ctxlogger.GetLogger(ctx).WithField("http_cache.url", req.URL.String())

	now, err := ctxclock.Now(ctx)
	if err != nil {
		now = time.Now()
	}

	key := Key(req)

	cr, err := t.storage.Fetch(key)
	if err != nil {
		l.WithError(err).Warn("could not read http cache")
	}

	if cr != nil && now.Sub(cr.UpdatedAt) < t.maxAge {
		l.WithField("http_cache.age", now.Sub(cr.UpdatedAt)).Debug("http cache hit")
		return cr.makeResponse(req), nil
	}

	res, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return res, nil
	}

	d, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("httpcache.Transport.RoundTrip: could not read body: %w", err)
	}

	cr = &cachedResponse{
		UpdatedAt:  now,
		URL:        req.URL.String(),
		Status:     res.Status,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       d,
	}

	if err := t.storage.Save(key, cr); err != nil {
		l.WithError(err).Warn("could not write http cache")
	} else {
		l.WithFields(logrus.Fields{"http_cache.size": len(d)}).Debug("http cache stored")
	}

	return cr.makeResponse(req), nil
}
