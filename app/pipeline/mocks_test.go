package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/lysyi3m/autoleech/app/feed"
	"github.com/lysyi3m/autoleech/app/torrent"
)

// callLog is shared by mocks so tests can assert ordering across collaborators.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type MockBackend struct {
	log       *callLog
	jobs      []torrent.Job
	listErr   error
	addErrs   map[string]error
	deleteErr error
}

var _ torrent.Backend = (*MockBackend)(nil)

func (b *MockBackend) Authenticate(ctx context.Context) error {
	return nil
}

func (b *MockBackend) Add(ctx context.Context, uri, savePath, tag string) error {
	b.log.add("add(%s,%s,%s)", uri, savePath, tag)
	return b.addErrs[uri]
}

func (b *MockBackend) List(ctx context.Context, status torrent.Status, tag string) ([]torrent.Job, error) {
	b.log.add("list(%s,%s)", status, tag)
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.jobs, nil
}

func (b *MockBackend) Delete(ctx context.Context, hash string, deleteFiles bool) error {
	b.log.add("delete(%s,%t)", hash, deleteFiles)
	return b.deleteErr
}

type MockSources struct {
	feeds []string
	err   error
}

func (s *MockSources) List() ([]string, error) {
	return s.feeds, s.err
}

type MockFetcher struct {
	items map[string][]feed.Item
}

func (f *MockFetcher) Fetch(ctx context.Context, source string) iter.Seq[feed.Item] {
	return func(yield func(feed.Item) bool) {
		for _, item := range f.items[source] {
			if !yield(item) {
				return
			}
		}
	}
}

type MockSender struct {
	log  *callLog
	err  error
	body []string
}

func (s *MockSender) SendDocument(ctx context.Context, filename string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.log.add("send(%s)", filename)
	s.body = append(s.body, string(data))
	return s.err
}

type MockHistory struct {
	log *callLog
	err error
}

func (h *MockHistory) RecordDelivery(hash, name, path string, size int64) error {
	h.log.add("record(%s,%d)", hash, size)
	return h.err
}

func (h *MockHistory) MarkRemoved(hash string) error {
	h.log.add("removed(%s)", hash)
	return h.err
}

var errUnavailable = errors.New("connection refused")
