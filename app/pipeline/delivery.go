package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/autoleech/app/torrent"
)

// Deliverer uploads finished files and removes their jobs. A job is deleted
// only after its upload succeeded; a failed delete leaves the job completed so
// the next cycle uploads it again.
type Deliverer struct {
	backend       torrent.Backend
	sender        Sender
	history       History
	maxUploadSize int64
}

func NewDeliverer(backend torrent.Backend, sender Sender, history History, maxUploadSize int64) *Deliverer {
	return &Deliverer{
		backend:       backend,
		sender:        sender,
		history:       history,
		maxUploadSize: maxUploadSize,
	}
}

func (d *Deliverer) Run(ctx context.Context, jobs []torrent.Job) DeliveryResult {
	result := DeliveryResult{Jobs: len(jobs)}

	for _, job := range jobs {
		delivered, err := d.deliver(ctx, job)
		switch {
		case err != nil:
			slog.Error("Delivery failed", "hash", job.Hash, "name", job.Name, "error", err)
			result.Failed++
		case delivered:
			result.Delivered++
		default:
			result.Skipped++
		}
	}

	return result
}

// deliver returns false with a nil error when the job was skipped.
func (d *Deliverer) deliver(ctx context.Context, job torrent.Job) (bool, error) {
	path := filepath.Join(job.SavePath, job.Name)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("File not found, skipping", "hash", job.Hash, "path", path)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		slog.Warn("Completed job is a directory, skipping", "hash", job.Hash, "path", path)
		return false, nil
	}
	if d.maxUploadSize > 0 && info.Size() > d.maxUploadSize {
		slog.Warn("File exceeds upload size limit, skipping", "hash", job.Hash, "path", path, "size", info.Size(), "limit", d.maxUploadSize)
		return false, nil
	}

	if err := d.upload(ctx, path, job.Name); err != nil {
		return false, err
	}

	slog.Info("File uploaded", "hash", job.Hash, "path", path, "size", info.Size())

	if d.history != nil {
		if err := d.history.RecordDelivery(job.Hash, job.Name, path, info.Size()); err != nil {
			slog.Warn("Failed to record delivery", "hash", job.Hash, "error", err)
		}
	}

	if err := d.backend.Delete(ctx, job.Hash, true); err != nil {
		return false, fmt.Errorf("uploaded but failed to delete job: %w", err)
	}

	if d.history != nil {
		if err := d.history.MarkRemoved(job.Hash); err != nil {
			slog.Warn("Failed to mark delivery removed", "hash", job.Hash, "error", err)
		}
	}

	slog.Info("Uploaded and deleted", "hash", job.Hash, "path", path)
	return true, nil
}

// upload closes the file before returning so the daemon can remove it afterwards.
func (d *Deliverer) upload(ctx context.Context, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if err := d.sender.SendDocument(ctx, name, f); err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}
