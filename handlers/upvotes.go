package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/httputil"
	"github.com/niconiahi/olga.media/internal/store"
	"github.com/niconiahi/olga.media/models"
)

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("accept"), "application/json")
}

func cutIDFromPath(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

type upvoteResult struct {
	CutID   int  `json:"cut_id"`
	Upvoted bool `json:"upvoted"`
	Changed bool `json:"changed"`
}

func UpvoteCreate(rw http.ResponseWriter, r *http.Request) {
	cutID, ok := cutIDFromPath(r)
	if !ok {
		httputil.WriteJSONError(rw, http.StatusBadRequest, "invalid cut id")
		return
	}

	voter := voterID(rw, r)

	var upvote *models.Upvote
	if err := ctxdb.UsingTxRetry(r.Context(), nil, 5, func(ctx context.Context, tx *sql.Tx) error {
		u, err := store.AddUpvote(ctx, tx, cutID, voter)
		upvote = u
		return err
	}); err != nil {
		if errors.Is(err, store.ErrCutNotFound) {
			httputil.WriteJSONError(rw, http.StatusNotFound, "cut not found")
			return
		}

		panic(err)
	}

	if wantsJSON(r) {
		httputil.WriteJSON(rw, http.StatusOK, upvote)
		return
	}

	http.Redirect(rw, r, httputil.Back(r, "/"), http.StatusFound)
}

func UpvoteRemove(rw http.ResponseWriter, r *http.Request) {
	cutID, ok := cutIDFromPath(r)
	if !ok {
		httputil.WriteJSONError(rw, http.StatusBadRequest, "invalid cut id")
		return
	}

	voter := existingVoterID(r)

	var removed bool
	if voter != "" {
		if err := ctxdb.UsingTxRetry(r.Context(), nil, 5, func(ctx context.Context, tx *sql.Tx) error {
			v, err := store.RemoveUpvote(ctx, tx, cutID, voter)
			removed = v
			return err
		}); err != nil {
			panic(err)
		}
	}

	if wantsJSON(r) {
		httputil.WriteJSON(rw, http.StatusOK, upvoteResult{CutID: cutID, Upvoted: false, Changed: removed})
		return
	}

	http.Redirect(rw, r, httputil.Back(r, "/"), http.StatusFound)
}

// UpvotesJSON lists the requesting voter's upvotes.
func UpvotesJSON(rw http.ResponseWriter, r *http.Request) {
	upvotes := []models.Upvote{}

	if voter := existingVoterID(r); voter != "" {
		a, err := store.VoterUpvotes(r.Context(), ctxdb.GetDB(r.Context()), voter)
		if err != nil {
			panic(err)
		}

		if a != nil {
			upvotes = a
		}
	}

	httputil.WriteJSON(rw, http.StatusOK, upvotes)
}
