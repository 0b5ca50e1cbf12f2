package work

import (
	"fmt"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"github.com/udsonbraga/safelady/server/cron"
	"github.com/udsonbraga/safelady/server/models"
)

const MAX_CONCURRENCY = 1

type WorkerPoolAdapter struct {
	cronScheduler *gocron.Scheduler
	pool          *workerPool
	requeuers     []*requeuer
}

// NewWorkerAdapter wires the cron scheduler, the worker pool and the
// requeuers together. In test mode the stuck-job requeuer is left out so
// tests fully control the queue contents.
func NewWorkerAdapter(timeZoneArg string, testMode bool) *WorkerPoolAdapter {
	adapter := &WorkerPoolAdapter{
		cronScheduler: cron.NewCronScheduler(timeZoneArg),
		pool:          newWorkerPool(MAX_CONCURRENCY),
	}

	scheduledRequeuer, err := newRequeuer(models.SCHEDULED_JOB)
	if err != nil {
		logg.Panic(err)
	}
	adapter.requeuers = append(adapter.requeuers, scheduledRequeuer)

	if !testMode {
		stuckJobsRequeuer, err := newRequeuer(models.IN_PROGRESS_JOB)
		if err != nil {
			logg.Panic(err)
		}
		adapter.requeuers = append(adapter.requeuers, stuckJobsRequeuer)
	}

	return adapter
}

// Start starts the cron scheduler, requeuers & worker pool
func (adapter *WorkerPoolAdapter) Start() error {
	logg.Info("Starting cron scheduler & worker pool")
	adapter.cronScheduler.StartAsync()
	for _, r := range adapter.requeuers {
		r.start()
	}
	adapter.pool.start()

	return nil
}

// Stop stops the cron scheduler, requeuers & worker pool
func (adapter *WorkerPoolAdapter) Stop() error {
	logg.Info("Stopping cron scheduler & worker pool")
	adapter.cronScheduler.Stop()
	for _, r := range adapter.requeuers {
		r.stop()
	}
	adapter.pool.stop()

	return nil
}

// Register binds a name to a handler.
func (adapter *WorkerPoolAdapter) Register(name string, handler Handler) error {
	return adapter.pool.registerHandler(name, handler)
}

// Perform sends a new job to the queue, now - to be executed as soon as a worker is available
func (adapter *WorkerPoolAdapter) Perform(job JobParams) error {
	logg.Infof("Enqueuing job: %v", job.Name)

	err := adapter.pool.enqueue(job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error enqueuing job: %v, %v", job.Name, err)
	}

	return nil
}

// PerformIn schedules a job to be enqueued 'secondsInFuture' seconds from now
func (adapter *WorkerPoolAdapter) PerformIn(secondsInFuture int64, job JobParams) error {
	logg.Infof("Scheduling job: %v to run in %vs", job.Name, secondsInFuture)

	err := adapter.pool.enqueueIn(secondsInFuture, job)
	if errors.Is(err, models.ErrDuplicateJob) {
		logg.Warnf("Duplicate job already in queue for: %v", job.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("error scheduling job: %v, %v", job.Name, err)
	}

	return nil
}

// PeriodicallyPerform adds a job to the queue (to be executed)
// periodically, based on the 'cronExpression' expression provided
func (adapter *WorkerPoolAdapter) PeriodicallyPerform(cronExpression string, job JobParams) error {
	_, err := adapter.cronScheduler.Cron(cronExpression).Tag(job.Name).
		Do(
			func(job JobParams) {
				err := adapter.Perform(job)
				if err != nil {
					logg.Error(err)
				}
			},
			job,
		)

	return err
}

func (adapter *WorkerPoolAdapter) RemovePeriodicJob(jobName string) {
	adapter.cronScheduler.RemoveByTag(jobName)
}
