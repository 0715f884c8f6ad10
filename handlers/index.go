package handlers

import (
	"net/http"

	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxtemplate"
	"github.com/niconiahi/olga.media/internal/httputil"
	"github.com/niconiahi/olga.media/internal/show"
	"github.com/niconiahi/olga.media/internal/store"
	"github.com/niconiahi/olga.media/internal/stringutil"
	"github.com/niconiahi/olga.media/models"
)

// videoCuts is one episode's cuts, in order.
type videoCuts struct {
	Title     string
	Hash      string
	Show      show.Show
	ShowTitle string
	Date      string
	Cuts      []models.CutSearch
}

func groupByVideo(cuts []models.CutSearch) []videoCuts {
	var a []videoCuts

	for _, c := range cuts {
		if len(a) == 0 || a[len(a)-1].Hash != c.VideoHash {
			a = append(a, videoCuts{
				Title:     c.VideoTitle,
				Hash:      c.VideoHash,
				Show:      c.VideoShow,
				ShowTitle: c.ShowTitle(),
				Date:      c.Date(),
			})
		}

		a[len(a)-1].Cuts = append(a[len(a)-1].Cuts, c)
	}

	return a
}

func Index(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	var filter store.CutFilter

	if s := query.Get("show"); s != "" {
		v, err := show.Parse(s)
		if err != nil {
			httputil.RedirectWithError(rw, r, "/", "Ese programa no existe")
			return
		}

		filter.Show = v
	}

	mine := stringutil.LooksTrue(query.Get("mine"))

	cuts, err := store.ListCuts(ctx, ctxdb.GetDB(ctx), filter)
	if err != nil {
		panic(err)
	}

	upvoted, err := store.UpvotedCutIDs(ctx, ctxdb.GetDB(ctx), existingVoterID(r))
	if err != nil {
		panic(err)
	}

	if mine {
		var a []models.CutSearch
		for _, c := range cuts {
			if upvoted[c.CutID] {
				a = append(a, c)
			}
		}
		cuts = a
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_index", map[string]interface{}{
		"Show":    filter.Show,
		"Shows":   show.All(),
		"Mine":    mine,
		"Count":   len(cuts),
		"Videos":  groupByVideo(cuts),
		"Upvoted": upvoted,
	}); err != nil {
		panic(err)
	}
}
