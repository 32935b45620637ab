package torrent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
)

var _ Backend = (*QBittorrent)(nil)

// QBittorrent talks to the qBittorrent Web API. Every call is bounded by timeout.
type QBittorrent struct {
	client  *qbt.Client
	host    string
	timeout time.Duration
}

func NewQBittorrent(host, username, password string, timeout time.Duration) *QBittorrent {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := qbt.NewClient(qbt.Config{
		Host:     host,
		Username: username,
		Password: password,
		Timeout:  int(timeout / time.Second),
	})
	return &QBittorrent{
		client:  client,
		host:    host,
		timeout: timeout,
	}
}

func (q *QBittorrent) Authenticate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.client.LoginCtx(ctx); err != nil {
		return fmt.Errorf("failed to log in to qBittorrent at %s: %w", q.host, err)
	}

	slog.Debug("Authenticated with qBittorrent", "host", q.host)
	return nil
}

func (q *QBittorrent) Add(ctx context.Context, uri, savePath, tag string) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	options := map[string]string{
		"savepath": savePath,
		"tags":     tag,
	}
	if err := q.client.AddTorrentFromUrlCtx(ctx, uri, options); err != nil {
		return fmt.Errorf("failed to add torrent: %w", err)
	}
	return nil
}

// List returns jobs in the given state carrying tag. Jobs without the tag are
// dropped even if the daemon ignored the tag filter.
func (q *QBittorrent) List(ctx context.Context, status Status, tag string) ([]Job, error) {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	torrents, err := q.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{
		Filter: qbt.TorrentFilter(status),
		Tag:    tag,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list torrents: %w", err)
	}

	return toJobs(torrents, tag), nil
}

func (q *QBittorrent) Delete(ctx context.Context, hash string, deleteFiles bool) error {
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	if err := q.client.DeleteTorrentsCtx(ctx, []string{hash}, deleteFiles); err != nil {
		return fmt.Errorf("failed to delete torrent %s: %w", hash, err)
	}
	return nil
}

func toJobs(torrents []qbt.Torrent, tag string) []Job {
	jobs := make([]Job, 0, len(torrents))
	for _, t := range torrents {
		job := Job{
			Hash:     t.Hash,
			Name:     t.Name,
			SavePath: t.SavePath,
			State:    string(t.State),
			Tags:     splitTags(t.Tags),
			Size:     t.Size,
			Progress: t.Progress,
		}
		if tag != "" && !job.HasTag(tag) {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs
}
