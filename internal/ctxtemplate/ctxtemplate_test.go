package ctxtemplate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCollection struct{}

func (fakeCollection) ExecuteTemplate(wr io.Writer, name string, data interface{}) error {
	m := data.(map[string]interface{})
	if name == "page_broken" {
		return fmt.Errorf("broken")
	}

	_, err := fmt.Fprintf(wr, "%s %v %v", name, m["Messages"], m["Title"])
	return err
}

func TestWithData(t *testing.T) {
	a := assert.New(t)

	ctx := WithData(context.Background(), map[string]interface{}{
		"Messages": map[string]interface{}{"Error": "", "Success": "ok"},
	})
	inner := WithData(ctx, map[string]interface{}{
		"Messages": map[string]interface{}{"Error": "bad"},
	})

	a.Equal(map[string]interface{}{"Error": "bad", "Success": "ok"}, getData(inner)["Messages"])
	a.Equal(map[string]interface{}{"Error": "", "Success": "ok"}, getData(ctx)["Messages"], "outer context must not change")
}

func TestRender(t *testing.T) {
	a := assert.New(t)

	ctx := WithCollection(context.Background(), fakeCollection{})
	ctx = WithData(ctx, map[string]interface{}{"Messages": "none"})

	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	rec := httptest.NewRecorder()
	a.NoError(Render(r, rec, http.StatusNotFound, "page_index", map[string]interface{}{"Title": "Cortes"}))
	a.Equal(http.StatusNotFound, rec.Code)
	a.Equal("page_index none Cortes", rec.Body.String())
	a.Equal("text/html; charset=utf-8", rec.Header().Get("content-type"))

	rec = httptest.NewRecorder()
	a.Error(Render(r, rec, http.StatusOK, "page_broken", nil))
	a.Empty(rec.Body.String())

	a.ErrorIs(ExecuteTemplate(context.Background(), io.Discard, "page_index", nil), ErrNoCollectionInContext)
}
