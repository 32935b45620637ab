package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/text/cases"

	"github.com/lysyi3m/autoleech/app/torrent"
)

// Scanner finds tagged jobs that finished downloading and hold an accepted media file.
type Scanner struct {
	backend    torrent.Backend
	tag        string
	extensions map[string]struct{}
}

func NewScanner(backend torrent.Backend, tag string, extensions []string) *Scanner {
	fold := cases.Fold()
	accepted := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		accepted[fold.String(ext)] = struct{}{}
	}
	return &Scanner{
		backend:    backend,
		tag:        tag,
		extensions: accepted,
	}
}

func (s *Scanner) Run(ctx context.Context) ([]torrent.Job, error) {
	jobs, err := s.backend.List(ctx, torrent.StatusCompleted, s.tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed torrents: %w", err)
	}

	completed := make([]torrent.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.SavePath == "" || !s.Accepts(job.Name) {
			continue
		}
		completed = append(completed, job)
	}

	return completed, nil
}

// Accepts reports whether name ends in an allowed extension, ignoring case.
func (s *Scanner) Accepts(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	_, ok := s.extensions[cases.Fold().String(ext)]
	return ok
}
