package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stellar/go/support/log"

	"github.com/openg2p/g2p-bridge-backend/internal/crashtracker"
	"github.com/openg2p/g2p-bridge-backend/internal/monitor"
	"github.com/openg2p/g2p-bridge-backend/internal/scheduler/jobs"
)

// SchedulerWorkerCount is the number of workers pulling jobs off the queue.
const SchedulerWorkerCount = 5

// Scheduler ticks each registered job at its own interval and fans the due
// jobs out to a fixed pool of workers.
type Scheduler struct {
	jobs               map[string]jobs.Job
	cancel             context.CancelFunc
	crashTrackerClient crashtracker.CrashTrackerClient
	monitorService     monitor.MonitorServiceInterface
	jobQueue           chan jobs.Job
	// enqueuedJobs guards against re-enqueuing a job whose previous run is
	// still in flight when its ticker fires again.
	enqueuedJobs sync.Map
}

type SchedulerJobRegisterOption func(*Scheduler)

func newScheduler(cancel context.CancelFunc) *Scheduler {
	return &Scheduler{
		jobs:     make(map[string]jobs.Job),
		cancel:   cancel,
		jobQueue: make(chan jobs.Job),
	}
}

// StartScheduler registers the given jobs and runs them until a SIGINT,
// SIGTERM or SIGQUIT arrives. It blocks for the scheduler's whole lifetime.
func StartScheduler(crashTrackerClient crashtracker.CrashTrackerClient, monitorService monitor.MonitorServiceInterface, schedulerJobRegisters ...SchedulerJobRegisterOption) {
	// Flush buffered crash reports before terminating.
	defer crashTrackerClient.FlushEvents(2 * time.Second)
	defer crashTrackerClient.Recover()

	ctx, cancel := context.WithCancel(context.Background())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	scheduler := newScheduler(cancel)
	scheduler.crashTrackerClient = crashTrackerClient
	scheduler.monitorService = monitorService

	for _, schedulerJobRegister := range schedulerJobRegisters {
		schedulerJobRegister(scheduler)
	}

	scheduler.start(ctx)

	<-signalChan
	scheduler.stop()
}

// addJob registers a job without starting it. Jobs begin ticking on start().
func (s *Scheduler) addJob(job jobs.Job) {
	log.Infof("registering job to scheduler [name: %s], [interval: %s]", job.GetName(), job.GetInterval())
	s.jobs[job.GetName()] = job
}

// start launches the worker pool and one ticker goroutine per job.
func (s *Scheduler) start(ctx context.Context) {
	if len(s.jobs) == 0 {
		log.Ctx(ctx).Info("No jobs to start")
		s.stop()
		return
	}
	log.Ctx(ctx).Infof("Starting scheduler with %d workers...", SchedulerWorkerCount)

	for i := 1; i <= SchedulerWorkerCount; i++ {
		// Each worker carries its own crash tracker clone so job failures
		// are reported independently.
		go s.runWorker(ctx, i, s.crashTrackerClient.Clone())
	}

	for _, job := range s.jobs {
		go s.runJobTicker(ctx, job)
	}
}

// stop cancels the scheduler context, winding down workers and tickers.
func (s *Scheduler) stop() {
	log.Info("Stopping scheduler...")
	s.cancel()
}

// runJobTicker enqueues the job every interval, skipping ticks while a
// previous run of the same job is still queued or executing.
func (s *Scheduler) runJobTicker(ctx context.Context, job jobs.Job) {
	ticker := time.NewTicker(job.GetInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jobName := job.GetName()
			if _, alreadyEnqueued := s.enqueuedJobs.LoadOrStore(jobName, true); alreadyEnqueued {
				log.Ctx(ctx).Debugf("Skipping job %s, already in queue", jobName)
				continue
			}
			log.Ctx(ctx).Debugf("Enqueuing job: %s", jobName)
			s.jobQueue <- job
		case <-ctx.Done():
			return
		}
	}
}

// runWorker drains the job queue until the context is canceled.
func (s *Scheduler) runWorker(ctx context.Context, workerID int, crashTrackerClient crashtracker.CrashTrackerClient) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Errorf("Worker %d encountered a panic while processing a job: %v", workerID, r)
		}
	}()

	for {
		select {
		case job := <-s.jobQueue:
			s.executeJob(ctx, job, workerID, crashTrackerClient)
			s.enqueuedJobs.Delete(job.GetName())
		case <-ctx.Done():
			log.Ctx(ctx).Infof("Worker %d stopping...", workerID)
			return
		}
	}
}

// executeJob runs the job, reports failures to the crash tracker and counts
// the run outcome.
func (s *Scheduler) executeJob(ctx context.Context, job jobs.Job, workerID int, crashTrackerClient crashtracker.CrashTrackerClient) {
	log.Ctx(ctx).Debugf("Processing job %s on worker %d", job.GetName(), workerID)

	outcome := "success"
	if err := job.Execute(ctx); err != nil {
		outcome = "error"
		msg := fmt.Sprintf("error processing job %s on worker %d", job.GetName(), workerID)
		crashTrackerClient.LogAndReportErrors(ctx, err, msg)
	}

	if s.monitorService == nil {
		return
	}
	labels := monitor.PipelineStageLabels{Stage: job.GetName(), Outcome: outcome}
	if err := s.monitorService.MonitorCounters(monitor.PipelineStageRunsCounterTag, labels.ToMap()); err != nil {
		log.Ctx(ctx).Debugf("error monitoring stage run counter: %v", err)
	}
}

func WithFundsAvailabilityJobOption(options jobs.FundsAvailabilityJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewFundsAvailabilityJob(options))
	}
}

func WithFundsBlockJobOption(options jobs.FundsBlockJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewFundsBlockJob(options))
	}
}

func WithMapperResolutionJobOption(options jobs.MapperResolutionJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewMapperResolutionJob(options))
	}
}

func WithPaymentDispatchJobOption(options jobs.PaymentDispatchJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewPaymentDispatchJob(options))
	}
}

func WithStatementProcessorJobOption(options jobs.StatementProcessorJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewStatementProcessorJob(options))
	}
}
