package app

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/pkg/fsutil"
)

const checksumChunkSize = 4096

// ChecksumFunc returns the hex digest of the file at path
type ChecksumFunc func(fs afero.Fs, path string) (string, error)

// MD5File hashes a file in 4 KiB chunks
func MD5File(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, checksumChunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Validator checks files on disk against server-recorded checksums and sizes
type Validator struct {
	fs         afero.Fs
	checksum   ChecksumFunc
	observer   domain.Observer
	logger     *zap.Logger
	maxWorkers int
}

// NewValidator creates a new validator
func NewValidator(fs afero.Fs, maxWorkers int, observer domain.Observer, logger *zap.Logger) *Validator {
	if maxWorkers <= 0 {
		maxWorkers = domain.DefaultMaxWorkers
	}
	if observer == nil {
		observer = domain.NopObserver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		fs:         fs,
		checksum:   MD5File,
		observer:   observer,
		logger:     logger,
		maxWorkers: maxWorkers,
	}
}

// WithChecksum replaces the hashing routine
func (v *Validator) WithChecksum(fn ChecksumFunc) *Validator {
	v.checksum = fn
	return v
}

// Validate checks every plan item. Cached results in index are trusted as long
// as they match the server value; fresh results are always cached. The error is
// ErrCancelled when ctx was cancelled during the run.
func (v *Validator) Validate(ctx context.Context, plan *Plan, index domain.ValidatedIndex) (domain.ValidationStats, error) {
	var (
		mu    sync.Mutex
		stats domain.ValidationStats
	)
	items := plan.Items()
	stats.Initialize(len(items))

	v.logger.Info("Starting validation",
		zap.Int("items", len(items)),
		zap.Int("workers", v.maxWorkers))

	poolErr := runPool(ctx, v.maxWorkers, items, func(workerID int, item PlanItem) {
		res := v.validateOne(item, index)
		invalid := res.outcome.IsError()
		if invalid {
			v.logger.Warn("Validation failed",
				zap.String("object_id", item.Object.ObjectID()),
				zap.String("path", item.Path),
				zap.String("outcome", string(res.outcome)),
				zap.Error(res.err))
		}

		mu.Lock()
		defer mu.Unlock()
		stats.AddProcessed(item.Object.Size(), invalid)
		v.observer.OnProgress(domain.ProgressEvent{
			Sequence: stats.Processed,
			Total:    stats.Total,
			WorkerID: workerID,
			Outcome:  res.outcome,
			Message:  res.message,
			ObjectID: item.Object.ObjectID(),
			Path:     item.Path,
			Err:      res.err,
		})
	})

	mu.Lock()
	defer mu.Unlock()
	if poolErr != nil {
		return stats, domain.ErrCancelled
	}
	return stats, nil
}

func (v *Validator) validateOne(item PlanItem, index domain.ValidatedIndex) itemResult {
	obj := item.Object

	exists, err := fsutil.Exists(v.fs, item.Path)
	if err != nil {
		return v.exception(obj, err)
	}
	if !exists {
		return itemResult{
			outcome: domain.OutcomeMissing,
			message: fmt.Sprintf("[ KO ] %s => File does not exist: %s", obj.ObjectID(), item.Path),
			err:     domain.ErrMissingFile,
		}
	}

	cached, hasCached := index.Get(item.Path)

	switch o := obj.(type) {
	case *domain.VersionedFile:
		if hasCached && cached.Checksum != "" {
			return v.compare(obj, item.Path, "checksum", o.Checksum == cached.Checksum)
		}
		sum, err := v.checksum(v.fs, item.Path)
		if err != nil {
			return v.exception(obj, err)
		}
		index.Put(domain.ValidatedRecord{Path: item.Path, Checksum: sum})
		return v.compare(obj, item.Path, "checksum", o.Checksum == sum)

	case *domain.Attachment:
		if hasCached && cached.Size != nil {
			return v.compare(obj, item.Path, "size", o.ContentSize == *cached.Size)
		}
		info, err := v.fs.Stat(item.Path)
		if err != nil {
			return v.exception(obj, err)
		}
		size := info.Size()
		index.Put(domain.ValidatedRecord{Path: item.Path, Size: &size})
		return v.compare(obj, item.Path, "size", o.ContentSize == size)

	default:
		return v.exception(obj, fmt.Errorf("unsupported object %T", obj))
	}
}

func (v *Validator) compare(obj domain.DownloadableObject, path, what string, ok bool) itemResult {
	if ok {
		return itemResult{
			outcome: domain.OutcomeValid,
			message: fmt.Sprintf("[ OK ] %s => %s", obj.ObjectID(), path),
		}
	}
	return itemResult{
		outcome: domain.OutcomeInvalid,
		message: fmt.Sprintf("[ KO ] %s => %s invalid: %s", obj.ObjectID(), what, path),
		err:     domain.ErrIntegrityMismatch,
	}
}

func (v *Validator) exception(obj domain.DownloadableObject, err error) itemResult {
	return itemResult{
		outcome: domain.OutcomeFailed,
		message: fmt.Sprintf("[ KO ] %s => Exception: %v", obj.ObjectID(), err),
		err:     err,
	}
}
