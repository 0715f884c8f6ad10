package handlers

import (
	"net/http"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxtemplate"
	"github.com/niconiahi/olga.media/internal/jobqueue"
)

type jobRow struct {
	jobqueue.Job
	Status string
}

func Jobs(rw http.ResponseWriter, r *http.Request) {
	now, err := ctxclock.Now(r.Context())
	if err != nil {
		panic(err)
	}

	jobs, err := jobqueue.Recent(r.Context(), ctxdb.GetDB(r.Context()), 200)
	if err != nil {
		panic(err)
	}

	rows := make([]jobRow, len(jobs))
	for i, j := range jobs {
		rows[i] = jobRow{Job: j, Status: j.Status(now)}
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_jobs", map[string]interface{}{
		"Jobs": rows,
	}); err != nil {
		panic(err)
	}
}
