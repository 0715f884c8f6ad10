package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedirectWithError(t *testing.T) {
	a := assert.New(t)

	rec := httptest.NewRecorder()
	RedirectWithError(rec, httptest.NewRequest(http.MethodPost, "/add", nil), "/add?day=12", "fecha inválida")

	a.Equal(http.StatusFound, rec.Code)
	a.Equal("/add?day=12&error=fecha+inv%C3%A1lida", rec.Header().Get("location"))
}

func TestBack(t *testing.T) {
	a := assert.New(t)

	r := httptest.NewRequest(http.MethodPost, "http://olga.media/upvote/create/3", nil)
	a.Equal("/", Back(r, "/"))

	r.Header.Set("referer", "http://olga.media/ranking?success=ok&show=olga")
	a.Equal("/ranking?show=olga", Back(r, "/"))

	r.Header.Set("referer", "http://elsewhere.example/ranking")
	a.Equal("/", Back(r, "/"))
}

func TestWriteJSONError(t *testing.T) {
	a := assert.New(t)

	rec := httptest.NewRecorder()
	WriteJSONError(rec, http.StatusNotFound, "cut not found")

	a.Equal(http.StatusNotFound, rec.Code)
	a.Equal("application/json; charset=utf-8", rec.Header().Get("content-type"))
	a.JSONEq(`{"error":"cut not found"}`, rec.Body.String())
}
