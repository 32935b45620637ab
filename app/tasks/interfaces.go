package tasks

import (
	"context"

	"github.com/lysyi3m/autoleech/app/pipeline"
	"github.com/lysyi3m/autoleech/app/torrent"
)

// SchedulerInterface is the pipeline surface exposed to the command front ends.
// Example usage:
//
//	scheduler := NewScheduler(ledger, gate, scanner, deliverer, backend, tag, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	result, err := scheduler.Refresh(ctx)
type SchedulerInterface interface {
	Start()
	Stop()
	Subscribe(url string) SubscribeResult
	Feeds() ([]string, error)
	Refresh(ctx context.Context) (pipeline.EnqueueResult, error)
	Status(ctx context.Context) (Status, error)
}

type FeedLedger interface {
	List() ([]string, error)
	Add(url string) (bool, error)
}

type Enqueuer interface {
	Run(ctx context.Context, skip pipeline.LinkSet) (pipeline.EnqueueResult, error)
}

type CompletionScanner interface {
	Run(ctx context.Context) ([]torrent.Job, error)
}

type DeliveryWorker interface {
	Run(ctx context.Context, jobs []torrent.Job) pipeline.DeliveryResult
}
