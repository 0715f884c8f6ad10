package httputil

import (
	"encoding/json"
	"net/http"
	"net/url"
)

func redirectWithParameter(rw http.ResponseWriter, r *http.Request, baseURL, name, value string) {
	u, err := url.Parse(baseURL)
	if err != nil {
		panic(err)
	}

	q := u.Query()
	q.Set(name, value)
	u.RawQuery = q.Encode()

	http.Redirect(rw, r, u.String(), http.StatusFound)
}

func RedirectWithError(rw http.ResponseWriter, r *http.Request, baseURL, message string) {
	redirectWithParameter(rw, r, baseURL, "error", message)
}

func RedirectWithSuccess(rw http.ResponseWriter, r *http.Request, baseURL, message string) {
	redirectWithParameter(rw, r, baseURL, "success", message)
}

func RedirectWithInformation(rw http.ResponseWriter, r *http.Request, baseURL, message string) {
	redirectWithParameter(rw, r, baseURL, "information", message)
}

// Back is where a form post should send the user afterwards: the page they
// came from when it's on this site, fallback otherwise.
func Back(r *http.Request, fallback string) string {
	ref, err := url.Parse(r.Header.Get("referer"))
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}

	ref.Scheme = ""
	ref.Host = ""
	ref.User = nil

	q := ref.Query()
	q.Del("error")
	q.Del("success")
	q.Del("information")
	ref.RawQuery = q.Encode()

	return ref.String()
}

func NotFound(rw http.ResponseWriter, r *http.Request) {
	http.Error(rw, "Not found", http.StatusNotFound)
}

func WriteJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("content-type", "application/json; charset=utf-8")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		panic(err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func WriteJSONError(rw http.ResponseWriter, status int, message string) {
	WriteJSON(rw, status, errorBody{Error: message})
}
