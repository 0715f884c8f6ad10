package ctxlogger

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// context registration

var loggerKey int

func WithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, &loggerKey, l)
}

func GetLogger(ctx context.Context) logrus.FieldLogger {
	if v := ctx.Value(&loggerKey); v != nil {
		return v.(logrus.FieldLogger)
	}

	return logrus.StandardLogger()
}

// WithFields replaces the context's logger with one carrying fields.
func WithFields(ctx context.Context, fields logrus.Fields) context.Context {
	return WithLogger(ctx, GetLogger(ctx).WithFields(fields))
}

// middleware

type HookFunc func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger

type hookPair struct {
	before HookFunc
	after  HookFunc
}

type hookList struct {
	a []hookPair
}

func (h *hookList) runBefore(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
	for _, hook := range h.a {
		if hook.before != nil {
			l = hook.before(rw, r, l)
		}
	}

	return l
}

func (h *hookList) runAfter(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
	for _, hook := range h.a {
		if hook.after != nil {
			l = hook.after(rw, r, l)
		}
	}

	return l
}

var hookListKey int

func getHookList(ctx context.Context) *hookList {
	if v := ctx.Value(&hookListKey); v != nil {
		return v.(*hookList)
	}

	return nil
}

// AddHookPair adds fields to the request's log lines. before runs when the
// request starts and after once the response is written; either may be nil.
func AddHookPair(ctx context.Context, before, after HookFunc) context.Context {
	hooks := getHookList(ctx)
	if hooks == nil {
		hooks = &hookList{}
		ctx = context.WithValue(ctx, &hookListKey, hooks)
	}

	hooks.a = append(hooks.a, hookPair{before: before, after: after})

	return ctx
}

func Register(l logrus.FieldLogger) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		ctx := context.WithValue(r.Context(), &hookListKey, &hookList{})
		next(rw, r.WithContext(WithLogger(ctx, l)))
	}
}

// Log logs each request once it's finished. Handlers further down get a
// logger tagged with the request's id, which is also sent back in the
// x-request-id header.
func Log() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		rw.Header().Set("x-request-id", requestID)

		hooks := getHookList(r.Context())

		var l logrus.FieldLogger = GetLogger(r.Context()).WithFields(logrus.Fields{
			"http.request_id": requestID,
			"http.method":     r.Method,
			"http.path":       r.URL.String(),
			"http.host":       r.Host,
			"http.referer":    r.Header.Get("referer"),
			"http.user_agent": r.Header.Get("user-agent"),
		})

		if hooks != nil {
			l = hooks.runBefore(rw, r, l)
		}

		defer func() {
			if nrw, ok := rw.(interface {
				Status() int
				Size() int
			}); ok {
				l = l.WithFields(logrus.Fields{
					"http.status_code":   nrw.Status(),
					"http.response_size": nrw.Size(),
				})
			}

			if hooks != nil {
				l = hooks.runAfter(rw, r, l)
			}

			l.Info("http request finished")
		}()

		l.Debug("http request started")

		next(rw, r.WithContext(WithLogger(r.Context(), l)))
	}
}
