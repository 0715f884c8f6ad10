package ctxhttpclient

import (
	"context"
	"net/http"
)

// context registration

var httpClientKey int

func WithHTTPClient(ctx context.Context, httpClient *http.Client) context.Context {
	return context.WithValue(ctx, &httpClientKey, httpClient)
}

func GetHTTPClient(ctx context.Context) *http.Client {
	if v := ctx.Value(&httpClientKey); v != nil {
		return v.(*http.Client)
	}

	return http.DefaultClient
}

// middleware

func Register(httpClient *http.Client) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithHTTPClient(r.Context(), httpClient)))
	}
}

// HeaderTransport sets headers on outgoing requests that don't already have
// them. YouTube serves different markup depending on user agent and
// language.
type HeaderTransport struct {
	Transport http.RoundTripper
	Header    http.Header
}

func NewHeaderTransport(transport http.RoundTripper, header http.Header) *HeaderTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &HeaderTransport{Transport: transport, Header: header}
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var missing []string
	for k := range t.Header {
		if req.Header.Get(k) == "" {
			missing = append(missing, k)
		}
	}

	if len(missing) > 0 {
		req = req.Clone(req.Context())
		for _, k := range missing {
			req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), t.Header.Values(k)...)
		}
	}

	return t.Transport.RoundTrip(req)
}
