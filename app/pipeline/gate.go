package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/autoleech/app/torrent"
)

// Gate submits newly discovered descriptors to the download daemon. Re-adding
// a torrent the daemon already knows is assumed to be a no-op on its side.
type Gate struct {
	sources  SourceLister
	fetcher  ItemFetcher
	backend  torrent.Backend
	savePath string
	tag      string
}

func NewGate(sources SourceLister, fetcher ItemFetcher, backend torrent.Backend, savePath, tag string) *Gate {
	return &Gate{
		sources:  sources,
		fetcher:  fetcher,
		backend:  backend,
		savePath: savePath,
		tag:      tag,
	}
}

// Run walks every source in ledger order, skipping links in skip. It only
// returns an error when the ledger itself cannot be read; per-item failures
// are counted and logged.
func (g *Gate) Run(ctx context.Context, skip LinkSet) (EnqueueResult, error) {
	result := EnqueueResult{Added: make(LinkSet)}

	sources, err := g.sources.List()
	if err != nil {
		return result, fmt.Errorf("failed to list feeds: %w", err)
	}
	result.Sources = len(sources)

	seen := make(map[string]struct{})
	for _, source := range sources {
		for item := range g.fetcher.Fetch(ctx, source) {
			result.Items++

			link, kind := descriptor(item)
			if kind == KindNone {
				slog.Debug("Item skipped", "feed", source, "title", item.Title, "link", item.Link)
				result.Skipped++
				continue
			}

			if _, ok := seen[link]; ok || skip.Has(link) {
				result.Skipped++
				continue
			}
			seen[link] = struct{}{}

			if err := g.backend.Add(ctx, link, g.savePath, g.tag); err != nil {
				slog.Warn("Failed to add torrent", "feed", source, "link", link, "error", err)
				result.Failed++
				continue
			}

			slog.Debug("Torrent submitted", "feed", source, "title", item.Title, "kind", kind.String())
			result.Submitted++
			result.Added[link] = struct{}{}
		}
	}

	return result, nil
}
