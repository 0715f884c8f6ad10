package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/monoculum/formam"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxjobqueue"
	"github.com/niconiahi/olga.media/internal/ctxtemplate"
	"github.com/niconiahi/olga.media/internal/dayingest"
	"github.com/niconiahi/olga.media/internal/httputil"
	"github.com/niconiahi/olga.media/internal/jobqueue"
	"github.com/niconiahi/olga.media/internal/listing"
	"github.com/niconiahi/olga.media/internal/queuenames"
)

func Add(rw http.ResponseWriter, r *http.Request) {
	day, month, err := ctxclock.Today(r.Context(), nil)
	if err != nil {
		panic(err)
	}

	if err := ctxtemplate.ExecuteTemplateIntoResponse(r, rw, "page_add", map[string]interface{}{
		"Day":   day,
		"Month": month,
	}); err != nil {
		panic(err)
	}
}

type addInput struct {
	Day   int `formam:"day"`
	Month int `formam:"month"`
}

func AddAction(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		panic(err)
	}

	var input addInput
	if err := formam.Decode(r.PostForm, &input); err != nil {
		httputil.RedirectWithError(rw, r, "/add", "No se pudo leer la fecha")
		return
	}

	if input.Day == 0 || input.Month == 0 {
		day, month, err := ctxclock.Today(r.Context(), nil)
		if err != nil {
			panic(err)
		}

		if input.Day == 0 {
			input.Day = day
		}
		if input.Month == 0 {
			input.Month = month
		}
	}

	if err := listing.CheckDate(input.Day, input.Month); err != nil {
		httputil.RedirectWithError(rw, r, "/add", fmt.Sprintf("Fecha inválida: %s", listing.Query(input.Day, input.Month)))
		return
	}

	job := jobqueue.Job{
		QueueName: queuenames.DayIngest,
		Payload:   dayingest.Payload(input.Day, input.Month),
	}

	if err := ctxdb.UsingTx(r.Context(), nil, func(ctx context.Context, tx *sql.Tx) error {
		return ctxjobqueue.AddUnique(ctx, tx, &job)
	}); err != nil {
		if errors.Is(err, jobqueue.ErrAlreadyQueued) {
			httputil.RedirectWithInformation(rw, r, "/jobs", fmt.Sprintf("El %s ya se está agregando", listing.Query(input.Day, input.Month)))
			return
		}

		panic(err)
	}

	httputil.RedirectWithSuccess(rw, r, "/jobs", fmt.Sprintf("Se van a agregar los cortes del %s", listing.Query(input.Day, input.Month)))
}
