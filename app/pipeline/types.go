package pipeline

import (
	"context"
	"io"
	"iter"

	"github.com/lysyi3m/autoleech/app/feed"
)

// SourceLister provides the subscribed feeds in order.
type SourceLister interface {
	List() ([]string, error)
}

// ItemFetcher yields the discovered items of a single feed.
type ItemFetcher interface {
	Fetch(ctx context.Context, source string) iter.Seq[feed.Item]
}

// Sender uploads a finished file to the delivery target.
type Sender interface {
	SendDocument(ctx context.Context, filename string, r io.Reader) error
}

// History records completed deliveries. Implementations must be safe to call
// after every successful upload; failures are logged and never block cleanup.
type History interface {
	RecordDelivery(hash, name, path string, size int64) error
	MarkRemoved(hash string) error
}

// LinkSet holds descriptor links.
type LinkSet map[string]struct{}

func (s LinkSet) Has(link string) bool {
	_, ok := s[link]
	return ok
}

type EnqueueResult struct {
	Sources   int
	Items     int
	Submitted int
	Skipped   int
	Failed    int
	// Added holds the links the backend accepted during the run
	Added LinkSet
}

type DeliveryResult struct {
	Jobs      int
	Delivered int
	Skipped   int
	Failed    int
}
