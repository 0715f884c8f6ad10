package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const voterCookieName = "olga_voter"

// existingVoterID is the voter id from the request's cookie, or "" if it
// has none.
func existingVoterID(r *http.Request) string {
	c, err := r.Cookie(voterCookieName)
	if err != nil {
		return ""
	}

	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}

	return c.Value
}

// voterID is existingVoterID, setting a fresh id on the response when the
// request doesn't have one.
func voterID(rw http.ResponseWriter, r *http.Request) string {
	if id := existingVoterID(r); id != "" {
		return id
	}

	id := uuid.NewString()

	http.SetCookie(rw, &http.Cookie{
		Name:     voterCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int((time.Hour * 24 * 365 * 5).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}
