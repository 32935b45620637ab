package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lysyi3m/autoleech/app/ledger"
	"github.com/lysyi3m/autoleech/app/pipeline"
	"github.com/lysyi3m/autoleech/app/torrent"
)

var _ SchedulerInterface = (*Scheduler)(nil)

const enqueueKey = "enqueue"

// Scheduler drives the pipeline periodically and on demand. Enqueue and
// delivery runs hold pipelineMu, so runs from both triggers never interleave.
type Scheduler struct {
	ledger    FeedLedger
	gate      Enqueuer
	scanner   CompletionScanner
	deliverer DeliveryWorker
	backend   torrent.Backend
	tag       string
	interval  time.Duration

	pipelineMu sync.Mutex
	// refreshes joins callers that arrive while an enqueue run still waits for
	// the lock; generation advances once a run is about to read the ledger, so
	// later callers start a run of their own
	refreshes  singleflight.Group
	generation atomic.Uint64
	enqueuing  atomic.Bool
	// lastAdded holds the links submitted by the previous enqueue run; guarded by pipelineMu
	lastAdded pipeline.LinkSet

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(feedLedger FeedLedger, gate Enqueuer, scanner CompletionScanner, deliverer DeliveryWorker,
	backend torrent.Backend, tag string, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Scheduler{
		ledger:    feedLedger,
		gate:      gate,
		scanner:   scanner,
		deliverer: deliverer,
		backend:   backend,
		tag:       tag,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start runs a cycle immediately and then again interval after each cycle finishes.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// cycles are never cancelled midway; Stop waits for the current one
		cycleCtx := context.WithoutCancel(s.ctx)

		for {
			s.RunCycle(cycleCtx)

			timer := time.NewTimer(s.interval)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// RunCycle performs Fetch→Enqueue followed by Scan→Deliver.
func (s *Scheduler) RunCycle(ctx context.Context) {
	if _, err := s.enqueue(ctx); err != nil {
		slog.Error("Enqueue failed", "error", err)
	}
	if _, err := s.deliver(ctx); err != nil {
		slog.Error("Delivery failed", "error", err)
	}
}

// Refresh runs Fetch→Enqueue synchronously and reports its outcome.
func (s *Scheduler) Refresh(ctx context.Context) (pipeline.EnqueueResult, error) {
	return s.enqueue(ctx)
}

func (s *Scheduler) enqueue(ctx context.Context) (pipeline.EnqueueResult, error) {
	key := fmt.Sprintf("%s-%d", enqueueKey, s.generation.Load())

	v, err, shared := s.refreshes.Do(key, func() (any, error) {
		// a run queued behind another one must not resubmit what that run added
		overlapping := s.enqueuing.Load()
		// joined callers share this run, so it must outlive the caller that started it
		runCtx := context.WithoutCancel(ctx)

		var result pipeline.EnqueueResult
		err := s.withPipelineLock(TaskTypeFetchEnqueue, func(task *Task) error {
			s.generation.Add(1)
			s.enqueuing.Store(true)
			defer s.enqueuing.Store(false)

			var skip pipeline.LinkSet
			if overlapping {
				skip = s.lastAdded
			}
			s.lastAdded = nil

			var err error
			result, err = s.gate.Run(runCtx, skip)
			if err != nil {
				return err
			}
			s.lastAdded = result.Added

			slog.Info("Task completed",
				"type", string(task.Type),
				"task_id", task.ID,
				"duration", task.GetDuration(),
				"sources", result.Sources,
				"items", result.Items,
				"submitted", result.Submitted,
				"skipped", result.Skipped,
				"failed", result.Failed,
				"overlapping", overlapping)
			return nil
		})
		return result, err
	})
	if shared {
		slog.Debug("Joined pending enqueue run")
	}

	result, _ := v.(pipeline.EnqueueResult)
	return result, err
}

func (s *Scheduler) deliver(ctx context.Context) (pipeline.DeliveryResult, error) {
	var result pipeline.DeliveryResult
	err := s.withPipelineLock(TaskTypeScanDeliver, func(task *Task) error {
		jobs, err := s.scanner.Run(ctx)
		if err != nil {
			return err
		}

		result = s.deliverer.Run(ctx, jobs)
		slog.Info("Task completed",
			"type", string(task.Type),
			"task_id", task.ID,
			"duration", task.GetDuration(),
			"jobs", result.Jobs,
			"delivered", result.Delivered,
			"skipped", result.Skipped,
			"failed", result.Failed)
		return nil
	})
	return result, err
}

// withPipelineLock runs fn while holding the pipeline lock. A panic in fn is
// converted into an error so the lock is always released and the loop survives.
func (s *Scheduler) withPipelineLock(taskType TaskType, fn func(task *Task) error) (err error) {
	s.pipelineMu.Lock()
	defer s.pipelineMu.Unlock()

	task := NewTask(taskType)
	task.Start()
	slog.Debug("Task started", "type", string(task.Type), "task_id", task.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s task %s panicked: %v", task.Type, task.ID, r)
		}
	}()

	return fn(task)
}

// Status counts tagged active downloads and completed files awaiting delivery.
// It only reads from the download daemon and does not take the pipeline lock.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	var status Status

	active, err := s.backend.List(ctx, torrent.StatusDownloading, s.tag)
	if err != nil {
		return status, fmt.Errorf("failed to list active torrents: %w", err)
	}
	status.Active = len(active)

	pending, err := s.scanner.Run(ctx)
	if err != nil {
		return status, err
	}
	status.PendingDelivery = len(pending)

	return status, nil
}

func (s *Scheduler) Subscribe(url string) SubscribeResult {
	url = strings.TrimSpace(url)

	added, err := s.ledger.Add(url)
	if err != nil {
		var validationErr *ledger.ValidationError
		if errors.As(err, &validationErr) {
			return SubscribeResult{Outcome: SubscribeInvalid, URL: url, Message: validationErr.Reason}
		}
		slog.Error("Failed to add feed", "feed", url, "error", err)
		return SubscribeResult{Outcome: SubscribeFailed, URL: url, Message: "could not save feed"}
	}

	if !added {
		return SubscribeResult{Outcome: SubscribeDuplicate, URL: url, Message: "feed already exists"}
	}

	slog.Info("Feed subscribed", "feed", url)
	return SubscribeResult{Outcome: SubscribeAdded, URL: url, Message: "feed added"}
}

func (s *Scheduler) Feeds() ([]string, error) {
	return s.ledger.List()
}
