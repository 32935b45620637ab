package torrent

import (
	"context"
	"strings"
)

// Status selects jobs by lifecycle state.
type Status string

const (
	StatusAll         Status = "all"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
)

// Job is a transfer owned by the download daemon.
type Job struct {
	Hash     string
	Name     string
	SavePath string
	State    string
	Tags     []string
	Size     int64
	Progress float64
}

func (j Job) HasTag(tag string) bool {
	for _, t := range j.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Backend is the subset of download daemon operations the pipeline depends on.
type Backend interface {
	Authenticate(ctx context.Context) error
	Add(ctx context.Context, uri, savePath, tag string) error
	List(ctx context.Context, status Status, tag string) ([]Job, error)
	Delete(ctx context.Context, hash string, deleteFiles bool) error
}

func splitTags(tags string) []string {
	if strings.TrimSpace(tags) == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
