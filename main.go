package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/gorilla/mux"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/tdewolff/minify"
	"github.com/tdewolff/minify/css"
	"github.com/tdewolff/minify/html"
	"github.com/tdewolff/minify/js"
	"github.com/urfave/negroni/v2"
	"go.etcd.io/bbolt"

	"github.com/niconiahi/olga.media/handlers"
	"github.com/niconiahi/olga.media/internal/config"
	"github.com/niconiahi/olga.media/internal/configreader"
	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxconfig"
	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxhttpclient"
	"github.com/niconiahi/olga.media/internal/ctxjobqueue"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
	"github.com/niconiahi/olga.media/internal/ctxtemplate"
	"github.com/niconiahi/olga.media/internal/ctxtimer"
	"github.com/niconiahi/olga.media/internal/dayingest"
	"github.com/niconiahi/olga.media/internal/httpcache"
	"github.com/niconiahi/olga.media/internal/jobqueue"
	"github.com/niconiahi/olga.media/internal/logrusstackhook"
	"github.com/niconiahi/olga.media/internal/migrations"
	"github.com/niconiahi/olga.media/internal/querylog"
	"github.com/niconiahi/olga.media/internal/queuenames"
	"github.com/niconiahi/olga.media/internal/templatecollection"
	"github.com/niconiahi/olga.media/internal/ytscrape"
)

func init() {
	sorm.SetParameterPrefix("?")
}

var cfg = config.Config{
	LogLevel:             logrus.InfoLevel,
	LogDebugLevels:       config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
	LogQueries:           config.LogQueries{Enabled: true, SlowerThan: time.Millisecond * 100},
	LogSORM:              false,
	ApplicationAddr:      ":8080",
	ApplicationDatabase:  "olga.db",
	ApplicationCachePath: "cache.db",
	ApplicationMinify:    true,
	CacheMaxAge:          config.Duration(httpcache.DefaultMaxAge),
	ChannelHandle:        ctxconfig.DefaultChannelHandle,
	FetchConcurrency:     4,
	RankingSize:          ctxconfig.DefaultRankingSize,
	BackgroundWorkers:    1,
}

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

func init() {
	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}
}

type simpleQueryLogger struct {
	logger *logrus.Logger
}

func (s *simpleQueryLogger) LogQuery(query string, args []interface{}) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query start")
}

func (s *simpleQueryLogger) LogQueryAfter(query string, args []interface{}, duration time.Duration, err error) {
	fields := logrus.Fields{
		"db.query":      query,
		"db.duration":   duration,
		"db.error":      err,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	s.logger.WithFields(fields).Info("sorm query finish")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := configreader.Read(os.Args[0], "OLGA_", os.Args[1:], os.Environ(), &cfg); err != nil {
		panic(err)
	}

	ctx = ctxconfig.WithConfig(ctx, cfg)
	ctx = ctxclock.WithClock(ctx, ctxclock.NewRealClock())

	logger := logrus.New()

	logger.SetLevel(cfg.LogLevel)
	if len(cfg.LogDebugLevels) > 0 {
		logger.AddHook(logrusstackhook.NewStackHook(cfg.LogDebugLevels, nil))
	}

	logger.WithFields(logrus.Fields{
		"config.config":                 cfg.Config,
		"config.log_level":              cfg.LogLevel,
		"config.log_debug_levels":       cfg.LogDebugLevels,
		"config.log_queries":            cfg.LogQueries,
		"config.log_sorm":               cfg.LogSORM,
		"config.application_addr":       cfg.ApplicationAddr,
		"config.application_cache_path": cfg.ApplicationCachePath,
		"config.application_database":   cfg.ApplicationDatabase,
		"config.application_minify":     cfg.ApplicationMinify,
		"config.cache_max_age":          time.Duration(cfg.CacheMaxAge),
		"config.channel_handle":         ctxconfig.ChannelHandle(ctx),
		"config.fetch_concurrency":      cfg.FetchConcurrency,
		"config.ranking_size":           ctxconfig.RankingSize(ctx),
		"config.background_workers":     cfg.BackgroundWorkers,
	}).Info("program starting")

	if cfg.LogSORM {
		sorm.SetQueryLogger(&simpleQueryLogger{logger})
	}

	ctx = ctxlogger.WithLogger(ctx, logger)

	dbDriver := "sqlite3"

	if !cfg.LogQueries.IsZero() {
		dbDriver = "sqlite3:logged"

		sql.Register(dbDriver, querylog.New(
			&sqlite3.SQLiteDriver{},
			&querylog.BasicFilter{
				SlowerThan: cfg.LogQueries.SlowerThan,
				HidePackages: []string{
					// standard library
					"database/sql",
					"net/http",
					"runtime",
					// libraries
					"fknsrs.biz/p/sorm",
					"github.com/gorilla/mux",
					"github.com/shogo82148/go-sql-proxy",
					"github.com/urfave/negroni/v2",
					// middleware
					"github.com/niconiahi/olga.media/internal/ctxclock",
					"github.com/niconiahi/olga.media/internal/ctxdb",
					"github.com/niconiahi/olga.media/internal/ctxjobqueue",
					"github.com/niconiahi/olga.media/internal/ctxlogger",
					"github.com/niconiahi/olga.media/internal/ctxtemplate",
					"github.com/niconiahi/olga.media/internal/ctxtimer",
					"github.com/niconiahi/olga.media/internal/querylog",
					// main
					"main",
				},
				IgnoreFunctions: []string{
					"github.com/niconiahi/olga.media/internal/jobqueue.(*Worker).Run",
				},
			},
		))
	}

	db, err := sql.Open(dbDriver, cfg.ApplicationDatabase)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := migrations.Apply(ctx, db, migrations.All); err != nil {
		panic(err)
	}

	ctx = ctxdb.WithDB(ctx, db)

	cacheDB, err := bbolt.Open(cfg.ApplicationCachePath, 0600, nil)
	if err != nil {
		panic(err)
	}
	defer cacheDB.Close()

	ctx = ctxhttpclient.WithHTTPClient(ctx, &http.Client{
		Timeout: time.Minute,
		Transport: ctxhttpclient.NewHeaderTransport(
			httpcache.NewTransport(nil, httpcache.NewBBoltStorage(cacheDB), time.Duration(cfg.CacheMaxAge)),
			http.Header{
				"User-Agent":      {"Mozilla/5.0 (X11; Linux x86_64; rv:118.0) Gecko/20100101 Firefox/118.0"},
				"Accept-Language": {"es-AR,es;q=0.9"},
			},
		),
	})

	worker := jobqueue.NewWorker(map[string]jobqueue.WorkerFunction{
		queuenames.DayIngest: dayingest.Job(ytscrape.NewClient(ctxconfig.ChannelHandle(ctx))),
	})
	worker.SetPriority(queuenames.Priority)

	ctx = ctxjobqueue.WithWorker(ctx, worker)

	workers := []namedWorker{
		{
			name: "application",
			run: func(ctx context.Context) error {
				return runApplicationWorker(ctx, cfg.ApplicationAddr)
			},
		},
	}

	for i := 0; i < cfg.BackgroundWorkers; i++ {
		workers = append(workers, namedWorker{
			name: fmt.Sprintf("job_queue.%d", i),
			run:  runJobQueueWorker,
		})
	}

	if err := runAllWorkers(ctx, workers); err != nil {
		logger.WithError(err).Warn("workers failed while running")
	}

	logger.Info("program finished")
}

type namedWorker struct {
	name string
	run  func(ctx context.Context) error
}

// runAllWorkers runs every worker until ctx is done, restarting any that
// return early. The result holds the last failure of each worker.
func runAllWorkers(ctx context.Context, workers []namedWorker) error {
	var wg sync.WaitGroup

	errs := make([]error, len(workers))

	for id, w := range workers {
		wg.Add(1)

		go func(id int, w namedWorker) {
			defer wg.Done()

			l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
				"worker.id":   id + 1,
				"worker.name": w.name,
			})

			for {
				err := w.run(ctxlogger.WithLogger(ctx, l))

				if ctx.Err() != nil {
					l.Info("worker stopped")
					return
				}

				if err != nil {
					l.WithError(err).Error("worker failed")
					errs[id] = fmt.Errorf("worker %d (%s) failed: %w", id+1, w.name, err)
				} else {
					l.Info("worker restarted")
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}
		}(id, w)
	}

	wg.Wait()

	return errors.Join(errs...)
}

func directoryExists(name string) bool {
	st, err := os.Stat(name)
	if err != nil {
		return false
	}
	return st.IsDir()
}

func runApplicationWorker(ctx context.Context, addr string) error {
	l := ctxlogger.GetLogger(ctx)

	l.WithFields(logrus.Fields{
		"args.addr": addr,
	}).Info("running application worker")

	var templates templatecollection.Collection

	if directoryExists("templates") {
		l.Info("using live filesystem for templates")
		c, err := templatecollection.NewLive(os.DirFS("templates"), handlers.TemplateFuncs())
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	} else {
		l.Info("using embedded filesystem for templates")
		sub, err := fs.Sub(templateFS, "templates")
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		c, err := templatecollection.NewCached(sub, handlers.TemplateFuncs())
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		templates = c
	}

	m := mux.NewRouter()
	handlers.Routes(m)

	if directoryExists("static") {
		l.Info("using live filesystem for static files")
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	} else {
		l.Info("using embedded filesystem for static files")
		sub, err := fs.Sub(staticFS, "static")
		if err != nil {
			return fmt.Errorf("runApplicationWorker: %w", err)
		}
		m.Methods(http.MethodGet).PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	}

	min := minify.New()
	min.Add("text/html", html.DefaultMinifier)
	min.Add("text/css", css.DefaultMinifier)
	min.Add("application/javascript", js.DefaultMinifier)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseFunc(ctxlogger.Register(l))
	n.UseFunc(ctxtimer.Register())
	n.UseFunc(ctxclock.Register(ctxclock.GetClock(ctx)))
	n.UseFunc(ctxtemplate.Register(templates))
	n.UseFunc(ctxdb.Register(ctxdb.GetDB(ctx)))
	n.UseFunc(ctxjobqueue.Register(ctxjobqueue.GetWorker(ctx)))
	n.UseFunc(ctxtimer.AddLoggerHooks())
	n.UseFunc(ctxclock.AddLoggerHooks())
	n.UseFunc(ctxlogger.Log())

	n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxtemplate.WithData(r.Context(), map[string]interface{}{
			"Messages": struct{ Error, Success, Information string }{
				r.URL.Query().Get("error"),
				r.URL.Query().Get("success"),
				r.URL.Query().Get("information"),
			},
		})))
	})

	if cfg.ApplicationMinify {
		n.UseFunc(func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
			if strings.ToLower(r.Header.Get("connection")) != "upgrade" {
				mw := min.ResponseWriter(rw, r)
				defer mw.Close()
				rw = mw
			}

			next(rw, r)
		})
	}

	n.UseHandler(m)

	s := &http.Server{
		Addr:              addr,
		Handler:           n,
		ReadHeaderTimeout: time.Second * 10,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		l.Info("starting server")
		errs <- s.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func runJobQueueWorker(ctx context.Context) error {
	l := ctxlogger.GetLogger(ctx)

	w := ctxjobqueue.GetWorker(ctx)
	if w == nil {
		return fmt.Errorf("job queue worker not available in context")
	}

	l.WithFields(logrus.Fields{
		"job_queue.queues": w.GetQueueNames(),
	}).Info("running job queue worker")

	return w.Run(ctx)
}
