package dayingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"fknsrs.biz/p/sorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/jobqueue"
	"github.com/niconiahi/olga.media/internal/listing"
	"github.com/niconiahi/olga.media/internal/migrations"
	"github.com/niconiahi/olga.media/internal/queuenames"
	"github.com/niconiahi/olga.media/models"
)

func init() {
	sorm.SetParameterPrefix("?")
}

var testTime = time.Date(2023, 10, 12, 22, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	search string
	watch  map[string]string
	fail   map[string]error
}

func (f *fakeFetcher) SearchPage(ctx context.Context, day, month int) (string, error) {
	return f.search, nil
}

func (f *fakeFetcher) WatchPage(ctx context.Context, hash string) (string, error) {
	if err := f.fail[hash]; err != nil {
		return "", err
	}

	return f.watch[hash], nil
}

func search(entries ...[2]string) string {
	s := `var ytInitialData = {"contents":[`
	for i, e := range entries {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"videoRenderer":{"videoId":"%s","title":{"runs":[{"text":"%s"}]}}}`, e[0], e[1])
	}

	return s + `]};`
}

func watch(entries string, repeat int) string {
	s := `var ytInitialPlayerResponse = {"videoDetails":{"shortDescription":"`
	for i := 0; i < repeat; i++ {
		s += entries + `\n\n`
	}

	return s + `"}};`
}

func newDB(t *testing.T) context.Context {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)

	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewStaticClock(testTime))
	ctx = ctxdb.WithDB(ctx, db)

	require.NoError(t, migrations.Apply(ctx, db, migrations.All))

	return ctx
}

func run(t *testing.T, ctx context.Context, w *jobqueue.Worker, day, month int) *jobqueue.Job {
	t.Helper()

	job := jobqueue.Job{QueueName: queuenames.DayIngest, Payload: Payload(day, month)}
	require.NoError(t, ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		return w.Add(ctx, tx, &job)
	}))

	ran, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	var stored jobqueue.Job
	require.NoError(t, sorm.FindFirstWhere(ctx, ctxdb.GetDB(ctx), &stored, "where id = ?", job.ID))

	return &stored
}

func TestPayload(t *testing.T) {
	a := assert.New(t)

	a.Equal("day?day=12&month=10", Payload(12, 10))

	day, month, err := ParsePayload(Payload(12, 10))
	a.NoError(err)
	a.Equal(12, day)
	a.Equal(10, month)

	_, _, err = ParsePayload("video?day=12&month=10")
	a.ErrorIs(err, ErrBadPayload)

	_, _, err = ParsePayload("day?day=twelve&month=10")
	a.ErrorIs(err, ErrBadPayload)

	_, _, err = ParsePayload("day?day=32&month=10")
	a.ErrorIs(err, listing.ErrBadDate)
}

func TestJob(t *testing.T) {
	a := assert.New(t)

	ctx := newDB(t)

	f := &fakeFetcher{
		search: search(
			[2]string{"A2HPLsdnm6s", "CONCURSO de ERUCTOS | Soñé Que Volaba | COMPLETO 12/10"},
			[2]string{"f2rdkeeshZU", "HOMERO | Sería Increíble | COMPLETO 12/10"},
		),
		watch: map[string]string{
			"A2HPLsdnm6s": watch(`\n0:00 Arranca\n6:09 La nota`, 3),
			"f2rdkeeshZU": watch(`\n0:00 Homero\n1:16:47 Samba`, 2),
		},
	}

	w := jobqueue.NewWorker(map[string]jobqueue.WorkerFunction{queuenames.DayIngest: Job(f)})

	job := run(t, ctx, w, 12, 10)
	a.Equal("done", job.Status(testTime))
	a.Equal("12/10: 2 added, 0 skipped, 0 failed", job.OutputMessages.Last())

	var videos []models.Video
	a.NoError(sorm.FindWhere(ctx, ctxdb.GetDB(ctx), &videos, "where day = ? and month = ? order by id asc", 12, 10))
	a.Len(videos, 2)

	var cuts []models.Cut
	a.NoError(sorm.FindWhere(ctx, ctxdb.GetDB(ctx), &cuts, "where 1 = 1 order by id asc"))
	a.Len(cuts, 4)

	job = run(t, ctx, w, 12, 10)
	a.Equal("done", job.Status(testTime))
	a.Equal("12/10: nothing to add", job.OutputMessages.Last())
}

func TestJobPartialFailure(t *testing.T) {
	a := assert.New(t)

	ctx := newDB(t)

	f := &fakeFetcher{
		search: search(
			[2]string{"A2HPLsdnm6s", "CONCURSO de ERUCTOS | Soñé Que Volaba | COMPLETO 12/10"},
			[2]string{"f2rdkeeshZU", "HOMERO | Sería Increíble | COMPLETO 12/10"},
		),
		watch: map[string]string{
			"A2HPLsdnm6s": watch(`\n0:00 Arranca\n6:09 La nota`, 3),
		},
		fail: map[string]error{"f2rdkeeshZU": errors.New("watch page unavailable")},
	}

	w := jobqueue.NewWorker(map[string]jobqueue.WorkerFunction{queuenames.DayIngest: Job(f)})

	job := run(t, ctx, w, 12, 10)
	a.Equal("retrying", job.Status(testTime))
	a.Contains(job.ErrorMessages.Last(), "watch page unavailable")
	a.Equal("12/10: 1 added, 0 skipped, 1 failed", job.OutputMessages.Last())

	var videos []models.Video
	a.NoError(sorm.FindWhere(ctx, ctxdb.GetDB(ctx), &videos, "where 1 = 1"))
	if a.Len(videos, 1) {
		a.Equal("A2HPLsdnm6s", videos[0].Hash)
	}
}

func TestJobVideoWithoutCuts(t *testing.T) {
	a := assert.New(t)

	ctx := newDB(t)

	f := &fakeFetcher{
		search: search(
			[2]string{"A2HPLsdnm6s", "CONCURSO de ERUCTOS | Soñé Que Volaba | COMPLETO 12/10"},
			[2]string{"f2rdkeeshZU", "HOMERO | Sería Increíble | COMPLETO 12/10"},
		),
		watch: map[string]string{
			"A2HPLsdnm6s": watch(`sin capítulos`, 1),
			"f2rdkeeshZU": watch(`\n0:00 Homero\n1:16:47 Samba`, 2),
		},
	}

	w := jobqueue.NewWorker(map[string]jobqueue.WorkerFunction{queuenames.DayIngest: Job(f)})

	job := run(t, ctx, w, 12, 10)
	a.Equal("done", job.Status(testTime))
	a.Empty(job.ErrorMessages.Last())
	a.Equal("12/10: 1 added, 0 skipped, 0 failed, 1 without cuts", job.OutputMessages.Last())

	var videos []models.Video
	a.NoError(sorm.FindWhere(ctx, ctxdb.GetDB(ctx), &videos, "where 1 = 1"))
	if a.Len(videos, 1) {
		a.Equal("f2rdkeeshZU", videos[0].Hash)
	}
}
