package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/pkg/fsutil"
)

const (
	downloadChunkSize = 1024

	shutdownMessage = "[ERROR] Stop signal received. Graceful shutdown."
)

// itemResult is the outcome of processing one plan item
type itemResult struct {
	outcome domain.Outcome
	message string
	err     error
}

// Downloader materializes plan items on disk, fetching each object at most once
type Downloader struct {
	fs         afero.Fs
	transport  domain.Transport
	gate       *QuotaGate
	observer   domain.Observer
	logger     *zap.Logger
	maxWorkers int
}

// NewDownloader creates a new downloader
func NewDownloader(
	fs afero.Fs,
	transport domain.Transport,
	gate *QuotaGate,
	maxWorkers int,
	observer domain.Observer,
	logger *zap.Logger,
) *Downloader {
	if maxWorkers <= 0 {
		maxWorkers = domain.DefaultMaxWorkers
	}
	if observer == nil {
		observer = domain.NopObserver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if gate == nil {
		gate = NewQuotaGate(nil, nil, 0, logger)
	}
	return &Downloader{
		fs:         fs,
		transport:  transport,
		gate:       gate,
		observer:   observer,
		logger:     logger,
		maxWorkers: maxWorkers,
	}
}

// Download processes every plan item and records materialized objects in index.
// Per-item failures are counted, never returned. The error is ErrCancelled when
// ctx was cancelled during the run. Cancellation only interrupts the quota wait;
// a fetch that already started streams to completion.
func (d *Downloader) Download(ctx context.Context, plan *Plan, index domain.DownloadedIndex) (domain.DownloadStats, error) {
	var (
		mu          sync.Mutex
		stats       domain.DownloadStats
		interrupted bool
	)
	items := plan.Items()
	stats.Initialize(len(items))
	objectLocks := newKeyedMutex()

	d.logger.Info("Starting download",
		zap.Int("items", len(items)),
		zap.Int("workers", d.maxWorkers))

	poolErr := runPool(ctx, d.maxWorkers, items, func(workerID int, item PlanItem) {
		// the same object planned under two paths is fetched once, then copied
		unlock := objectLocks.Lock(string(item.Object.Kind()) + "/" + item.Object.ObjectID())
		res := d.processOne(ctx, item, index)
		unlock()
		usage := d.gate.UsagePercent(ctx)

		failed := res.outcome.IsError()
		if failed {
			d.logger.Warn("Download failed",
				zap.String("object_id", item.Object.ObjectID()),
				zap.String("path", item.Path),
				zap.Int("worker", workerID),
				zap.Error(res.err))
		} else {
			d.logger.Debug("Download processed",
				zap.String("object_id", item.Object.ObjectID()),
				zap.String("outcome", string(res.outcome)),
				zap.Int("worker", workerID))
		}

		mu.Lock()
		defer mu.Unlock()
		stats.AddProcessed(item.Object.Size(), failed)
		if res.outcome == domain.OutcomeCancelled {
			interrupted = true
		}
		d.observer.OnProgress(domain.ProgressEvent{
			Sequence:     stats.Processed,
			Total:        stats.Total,
			WorkerID:     workerID,
			UsagePercent: usage,
			Outcome:      res.outcome,
			Message:      res.message,
			ObjectID:     item.Object.ObjectID(),
			Path:         item.Path,
			Err:          res.err,
		})
	})

	mu.Lock()
	defer mu.Unlock()
	if poolErr != nil || interrupted {
		d.logger.Warn("Download interrupted",
			zap.Int("processed", stats.Processed),
			zap.Int("total", stats.Total))
		return stats, domain.ErrCancelled
	}
	return stats, nil
}

func (d *Downloader) processOne(ctx context.Context, item PlanItem, index domain.DownloadedIndex) itemResult {
	obj := item.Object

	if err := d.gate.WaitUntilBelow(ctx); err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return itemResult{outcome: domain.OutcomeCancelled, message: shutdownMessage, err: err}
		}
		return d.failed(obj, err)
	}

	prior, hasPrior := index.Get(obj.ObjectID())

	// Case A: destination already populated
	exists, err := fsutil.Exists(d.fs, item.Path)
	if err != nil {
		return d.failed(obj, err)
	}
	if exists {
		if !hasPrior {
			index.Put(domain.DownloadedRecord{
				ObjectID: obj.ObjectID(),
				ParentID: domain.ParentOf(obj),
				Path:     item.Path,
			})
		}
		return itemResult{
			outcome: domain.OutcomeExisting,
			message: fmt.Sprintf("[OK] %s %s already exists at %s", obj.Kind(), obj.ObjectID(), item.Path),
		}
	}

	// Case B: materialized elsewhere, copy it
	if hasPrior {
		priorExists, err := fsutil.Exists(d.fs, prior.Path)
		if err != nil {
			return d.failed(obj, err)
		}
		if priorExists {
			if _, err := fsutil.CopyAtomic(d.fs, prior.Path, item.Path); err != nil {
				return d.failed(obj, fmt.Errorf("copy from %s: %w", prior.Path, err))
			}
			return itemResult{
				outcome: domain.OutcomeCopied,
				message: fmt.Sprintf("[OK] Copied %s %s from %s into %s", obj.Kind(), obj.ObjectID(), prior.Path, item.Path),
			}
		}
	}

	// Case C: fetch from the remote store, detached from cancellation
	if err := d.fetch(context.WithoutCancel(ctx), obj, item.Path); err != nil {
		return d.failed(obj, err)
	}
	index.Put(domain.DownloadedRecord{
		ObjectID: obj.ObjectID(),
		ParentID: domain.ParentOf(obj),
		Path:     item.Path,
	})
	return itemResult{
		outcome: domain.OutcomeDownloaded,
		message: fmt.Sprintf("[OK] Downloaded %s %s into %s", obj.Kind(), obj.ObjectID(), item.Path),
	}
}

func (d *Downloader) fetch(ctx context.Context, obj domain.DownloadableObject, path string) error {
	body, err := d.transport.FetchObject(ctx, obj)
	if err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return err
		}
		return &domain.FetchError{ObjectID: obj.ObjectID(), Err: err}
	}
	defer body.Close()

	if _, err := fsutil.WriteAtomic(d.fs, path, body, downloadChunkSize); err != nil {
		return &domain.FetchError{ObjectID: obj.ObjectID(), Err: err}
	}
	return nil
}

func (d *Downloader) failed(obj domain.DownloadableObject, err error) itemResult {
	return itemResult{
		outcome: domain.OutcomeFailed,
		message: fmt.Sprintf("[ERROR] Failed to download %s %s: %v", obj.Kind(), obj.ObjectID(), err),
		err:     err,
	}
}
