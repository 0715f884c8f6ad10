package ctxtemplate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/niconiahi/olga.media/internal/templatecollection"
)

// context registration

var collectionKey int

func WithCollection(ctx context.Context, collection templatecollection.Collection) context.Context {
	return context.WithValue(ctx, &collectionKey, collection)
}

func getCollection(ctx context.Context) templatecollection.Collection {
	if v := ctx.Value(&collectionKey); v != nil {
		return v.(templatecollection.Collection)
	}

	return nil
}

var dataKey int

// WithData adds values every template executed with ctx will see. Nested
// maps are merged rather than replaced.
func WithData(ctx context.Context, data map[string]interface{}) context.Context {
	return context.WithValue(ctx, &dataKey, mergeMaps(mergeMaps(nil, getData(ctx)), data))
}

func getData(ctx context.Context) map[string]interface{} {
	if v := ctx.Value(&dataKey); v != nil {
		return v.(map[string]interface{})
	}

	return nil
}

func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = make(map[string]interface{})
	}

	for k, v := range src {
		dstMap, dstOK := dst[k].(map[string]interface{})
		srcMap, srcOK := v.(map[string]interface{})

		if dstOK && srcOK {
			dst[k] = mergeMaps(mergeMaps(nil, dstMap), srcMap)
		} else {
			dst[k] = v
		}
	}

	return dst
}

// middleware

func Register(collection templatecollection.Collection) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithCollection(r.Context(), collection)))
	}
}

// main interface

var (
	ErrNoCollectionInContext = fmt.Errorf("collection not found in context")
)

func ExecuteTemplate(ctx context.Context, wr io.Writer, name string, data map[string]interface{}) error {
	collection := getCollection(ctx)
	if collection == nil {
		return ErrNoCollectionInContext
	}

	if err := collection.ExecuteTemplate(wr, name, mergeMaps(mergeMaps(nil, getData(ctx)), data)); err != nil {
		return fmt.Errorf("ctxtemplate.ExecuteTemplate: %w", err)
	}

	return nil
}

// Render executes the template into a buffer first, so a failing template
// doesn't leave a half written page behind a 200.
func Render(r *http.Request, rw http.ResponseWriter, status int, name string, data map[string]interface{}) error {
	var buf bytes.Buffer
	if err := ExecuteTemplate(r.Context(), &buf, name, data); err != nil {
		return fmt.Errorf("ctxtemplate.Render: %w", err)
	}

	rw.Header().Set("content-type", "text/html; charset=utf-8")
	rw.WriteHeader(status)

	if _, err := buf.WriteTo(rw); err != nil {
		return fmt.Errorf("ctxtemplate.Render: %w", err)
	}

	return nil
}

func ExecuteTemplateIntoResponse(r *http.Request, rw http.ResponseWriter, name string, data map[string]interface{}) error {
	return Render(r, rw, http.StatusOK, name, data)
}
