package jobqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/sirupsen/logrus"

	"github.com/niconiahi/olga.media/internal/catchpanic"
	"github.com/niconiahi/olga.media/internal/ctxclock"
	"github.com/niconiahi/olga.media/internal/ctxdb"
	"github.com/niconiahi/olga.media/internal/ctxlogger"
)

// worker

var (
	ErrWorkerExists       = fmt.Errorf("worker already exists")
	ErrWorkerDoesNotExist = fmt.Errorf("worker does not exist")
	ErrNoPendingJobs      = fmt.Errorf("no pending jobs")
	ErrAlreadyQueued      = fmt.Errorf("job already queued")
)

type WorkerFunction func(ctx context.Context, w *Worker, j *Job) (string, error)

type Worker struct {
	l        sync.RWMutex
	ch       chan struct{}
	m        map[string]WorkerFunction
	priority []string

	// how long Run waits between polls when there's nothing to do
	IdleDelay time.Duration
}

func NewWorker(workerFunctions map[string]WorkerFunction) *Worker {
	if workerFunctions == nil {
		workerFunctions = make(map[string]WorkerFunction)
	}

	return &Worker{
		ch:        make(chan struct{}, 100),
		m:         workerFunctions,
		IdleDelay: time.Second * 30,
	}
}

// SetPriority makes queues listed earlier win over ones listed later when
// several have jobs due. Unlisted queues come last.
func (w *Worker) SetPriority(queueNames []string) {
	w.l.Lock()
	defer w.l.Unlock()

	w.priority = append([]string(nil), queueNames...)
}

func (w *Worker) failIfAnyDoNotExist(queueNames []string) error {
	var a []string

	for _, queueName := range queueNames {
		if _, ok := w.m[queueName]; !ok {
			a = append(a, queueName)
		}
	}

	if len(a) > 0 {
		return fmt.Errorf("jobqueue.Worker.failIfAnyDoNotExist: worker(s) do not exist: %v: %w", a, ErrWorkerDoesNotExist)
	}

	return nil
}

func (w *Worker) failIfAnyExist(queueNames []string) error {
	var a []string

	for _, queueName := range queueNames {
		if _, ok := w.m[queueName]; ok {
			a = append(a, queueName)
		}
	}

	if len(a) > 0 {
		return fmt.Errorf("jobqueue.Worker.failIfAnyExist: worker(s) already exist: %v: %w", a, ErrWorkerExists)
	}

	return nil
}

func (w *Worker) Add(ctx context.Context, tx *sql.Tx, job *Job) error {
	w.l.RLock()
	if err := w.failIfAnyDoNotExist([]string{job.QueueName}); err != nil {
		w.l.RUnlock()
		return fmt.Errorf("jobqueue.Worker.Add: %w", err)
	}
	w.l.RUnlock()

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return fmt.Errorf("jobqueue.Worker.Add: %w", err)
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.RunAfter.IsZero() {
		job.RunAfter = now
	}
	if job.FailureDelay == 0 {
		job.FailureDelay = DefaultFailureDelay
	}
	if job.AttemptsRemaining == 0 {
		job.AttemptsRemaining = DefaultAttemptsRemaining
	}

	if err := sorm.CreateRecord(ctx, tx, job); err != nil {
		return fmt.Errorf("jobqueue.Worker.Add: could not create job record: %w", err)
	}

	select {
	case w.ch <- struct{}{}:
	default:
		// a run is already pending
	}

	return nil
}

// AddUnique is Add, except it returns ErrAlreadyQueued instead when an
// unfinished job with the same queue and payload exists.
func (w *Worker) AddUnique(ctx context.Context, tx *sql.Tx, job *Job) error {
	existing, err := FindUnfinished(ctx, tx, job.QueueName, job.Payload)
	if err != nil {
		return fmt.Errorf("jobqueue.Worker.AddUnique: %w", err)
	}

	if existing != nil {
		*job = *existing
		return fmt.Errorf("jobqueue.Worker.AddUnique: job %d: %w", existing.ID, ErrAlreadyQueued)
	}

	if err := w.Add(ctx, tx, job); err != nil {
		return fmt.Errorf("jobqueue.Worker.AddUnique: %w", err)
	}

	return nil
}

func (w *Worker) Trigger(ctx context.Context) {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *Worker) Register(queueName string, workerFunction WorkerFunction) error {
	return w.RegisterAll(map[string]WorkerFunction{queueName: workerFunction})
}

func (w *Worker) RegisterAll(workers map[string]WorkerFunction) error {
	var queueNames []string
	for queueName := range workers {
		queueNames = append(queueNames, queueName)
	}

	w.l.Lock()
	defer w.l.Unlock()

	if err := w.failIfAnyExist(queueNames); err != nil {
		return fmt.Errorf("jobqueue.Worker.RegisterAll: %w", err)
	}

	for queueName, workerFunc := range workers {
		w.m[queueName] = workerFunc
	}

	return nil
}

// GetQueueNames returns the registered queues in priority order.
func (w *Worker) GetQueueNames() []string {
	w.l.RLock()
	defer w.l.RUnlock()

	rank := func(queueName string) int {
		for i, e := range w.priority {
			if e == queueName {
				return i
			}
		}
		return len(w.priority)
	}

	var queueNames []string
	for k := range w.m {
		queueNames = append(queueNames, k)
	}

	sort.Slice(queueNames, func(i, j int) bool {
		if ri, rj := rank(queueNames[i]), rank(queueNames[j]); ri != rj {
			return ri < rj
		}
		return queueNames[i] < queueNames[j]
	})

	return queueNames
}

func (w *Worker) function(queueName string) (WorkerFunction, bool) {
	w.l.RLock()
	defer w.l.RUnlock()

	fn, ok := w.m[queueName]
	return fn, ok
}

func (w *Worker) reserveNext(ctx context.Context) (*Job, error) {
	now, err := ctxclock.Now(ctx)
	if err != nil {
		return nil, fmt.Errorf("jobqueue.Worker.reserveNext: %w", err)
	}

	var job *Job

	for _, queueName := range w.GetQueueNames() {
		if err := ctxdb.UsingTxRetry(ctx, nil, 25, func(ctx context.Context, tx *sql.Tx) error {
			j, err := findNextAndReserve(ctx, tx, []string{queueName}, now, DefaultReserveDuration)
			if err != nil {
				return err
			}
			job = j
			return nil
		}); err != nil {
			return nil, fmt.Errorf("jobqueue.Worker.reserveNext: could not find/reserve job: %w", err)
		}

		if job != nil {
			return job, nil
		}
	}

	return nil, ErrNoPendingJobs
}

func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.reserveNext(ctx)
	if err != nil {
		if errors.Is(err, ErrNoPendingJobs) {
			return false, err
		}
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: %w", err)
	}

	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"job.queue_name": job.QueueName,
		"job.id":         job.ID,
		"job.payload":    job.Payload,
	})

	workerFunction, ok := w.function(job.QueueName)
	if !ok {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: worker function not set for queue: %s", job.QueueName)
	}

	l.Info("found pending job, running function")

	var errorMessage string
	outputMessage, err := catchpanic.CatchErr1(func() (string, error) {
		return workerFunction(ctxlogger.WithLogger(ctx, l), w, job)
	})
	if err != nil {
		errorMessage = err.Error()
	}

	l.WithFields(logrus.Fields{"job.error_message": errorMessage, "job.output_message": outputMessage}).Info("finished job")

	now, err := ctxclock.Now(ctx)
	if err != nil {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: %w", err)
	}

	if err := ctxdb.UsingTxRetry(ctx, nil, 25, func(ctx context.Context, tx *sql.Tx) error {
		return finish(ctx, tx, job, now, errorMessage, outputMessage)
	}); err != nil {
		return false, fmt.Errorf("jobqueue.Worker.RunOnce: could not finish job: %w", err)
	}

	return true, nil
}

func (w *Worker) runAndPickDelay(ctx context.Context) time.Duration {
	didRunJob, err := w.RunOnce(ctx)
	switch {
	case err != nil && !errors.Is(err, ErrNoPendingJobs):
		ctxlogger.GetLogger(ctx).WithError(err).Error("could not run job")
		return w.IdleDelay
	case didRunJob:
		return 0
	default:
		return w.IdleDelay
	}
}

func (w *Worker) Run(ctx context.Context) error {
	// jitter so several workers don't poll in lockstep
	delay := time.Duration(rand.Int63n(int64(time.Second)))

	w.Trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = w.runAndPickDelay(ctx)
		case <-w.ch:
			delay = w.runAndPickDelay(ctx)
		}
	}
}
