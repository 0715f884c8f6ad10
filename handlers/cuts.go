package handlers

import (
	"errors"
	"net/http"

	"github.com/niconiahi/olga.media/internal/ctxconfig"
	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxtemplate"
	"github.com/niconiahi/olga.media/internal/godatautil"
	"github.com/niconiahi/olga.media/internal/httputil"
	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/internal/store"
	"github.com/niconiahi/olga.media/models"
)

type cutJSON struct {
	models.CutSearch
	URL       string `json:"url"`
	ShowTitle string `json:"show_title"`
}

func toCutJSON(cuts []models.CutSearch) []cutJSON {
	a := make([]cutJSON, len(cuts))
	for i, c := range cuts {
		a[i] = cutJSON{CutSearch: c, URL: c.WatchURL(), ShowTitle: c.ShowTitle()}
	}

	return a
}

// CutsJSON lists cuts. Besides the show parameter it understands the OData
// $filter, $orderby, $top and $skip options, e.g.
// /cut/get/all?$filter=contains(label,'Messi')&$orderby=upvotes desc
func CutsJSON(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var filter store.CutFilter

	if s := query.Get("show"); s != "" {
		v, err := show.Parse(s)
		if err != nil {
			httputil.WriteJSONError(rw, http.StatusBadRequest, err.Error())
			return
		}

		filter.Show = v
	}

	q, err := godatautil.ParseQuery(query)
	if err != nil {
		httputil.WriteJSONError(rw, http.StatusBadRequest, err.Error())
		return
	}

	filter.Query = q

	cuts, err := store.ListCuts(ctx, ctxdb.GetDB(ctx), filter)
	if err != nil {
		if errors.Is(err, godatautil.ErrFieldNotFound) || errors.Is(err, godatautil.ErrUnsupported) {
			httputil.WriteJSONError(rw, http.StatusBadRequest, err.Error())
			return
		}

		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, toCutJSON(cuts))
}

func Ranking(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cuts, err := store.Ranking(ctx, ctxdb.GetDB(ctx), ctxconfig.RankingSize(ctx))
	if err != nil {
		panic(err)
	}

	upvoted, err := store.UpvotedCutIDs(ctx, ctxdb.GetDB(ctx), existingVoterID(r))
	if err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_ranking", map[string]interface{}{
		"Cuts":    cuts,
		"Upvoted": upvoted,
	}); err != nil {
		panic(err)
	}
}

func RankingJSON(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cuts, err := store.Ranking(ctx, ctxdb.GetDB(ctx), ctxconfig.RankingSize(ctx))
	if err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, http.StatusOK, toCutJSON(cuts))
}
