package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/domain"
)

// Archivist runs the download and validation passes over every configured object type.
// Both indices are global to the data directory and shared across object types.
type Archivist struct {
	config     *domain.ArchiveConfig
	metadata   domain.MetadataSource
	downloaded domain.DownloadedIndex
	validated  domain.ValidatedIndex
	downloader *Downloader
	validator  *Validator
	logger     *zap.Logger
}

// NewArchivist creates a new archivist
func NewArchivist(
	config *domain.ArchiveConfig,
	metadata domain.MetadataSource,
	downloaded domain.DownloadedIndex,
	validated domain.ValidatedIndex,
	downloader *Downloader,
	validator *Validator,
	logger *zap.Logger,
) *Archivist {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archivist{
		config:     config,
		metadata:   metadata,
		downloaded: downloaded,
		validated:  validated,
		downloader: downloader,
		validator:  validator,
		logger:     logger,
	}
}

// Download materializes every configured object type. The downloaded index is
// loaded first and saved on every exit path, including cancellation.
func (a *Archivist) Download(ctx context.Context) (total domain.DownloadStats, err error) {
	if err := loadIndex(a.downloaded); err != nil {
		return total, err
	}
	defer func() {
		if saveErr := a.downloaded.Save(); saveErr != nil {
			a.logger.Error("Failed to save downloaded index", zap.Error(saveErr))
			err = errors.Join(err, fmt.Errorf("failed to save downloaded index: %w", saveErr))
		}
	}()

	for _, obj := range a.objects() {
		a.logger.Info(fmt.Sprintf("[%s] Downloading files.", obj.Name))

		plan, err := a.buildPlan(obj)
		if err != nil {
			return total, err
		}

		stats, err := a.downloader.Download(ctx, plan, a.downloaded)
		total = total.Combine(stats)
		if err != nil {
			return total, err
		}
	}

	a.logger.Info(DownloadSummary(total))
	return total, nil
}

// Validate checks every planned file of every configured object type. The
// validated index is loaded first and saved on every exit path.
func (a *Archivist) Validate(ctx context.Context) (total domain.ValidationStats, err error) {
	if err := loadIndex(a.validated); err != nil {
		return total, err
	}
	defer func() {
		if saveErr := a.validated.Save(); saveErr != nil {
			a.logger.Error("Failed to save validated index", zap.Error(saveErr))
			err = errors.Join(err, fmt.Errorf("failed to save validated index: %w", saveErr))
		}
	}()

	for _, obj := range a.objects() {
		a.logger.Info(fmt.Sprintf("[%s] Validating files.", obj.Name))

		plan, err := a.buildPlan(obj)
		if err != nil {
			return total, err
		}

		stats, err := a.validator.Validate(ctx, plan, a.validated)
		total = total.Combine(stats)
		if err != nil {
			return total, err
		}
	}

	a.logger.Info(ValidationSummary(total))
	return total, nil
}

// objects returns the configured object types sorted by name
func (a *Archivist) objects() []domain.ObjectConfig {
	objects := append([]domain.ObjectConfig(nil), a.config.Objects...)
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })
	return objects
}

// buildPlan combines the version plan and, when enabled, the attachment plan of one object type
func (a *Archivist) buildPlan(obj domain.ObjectConfig) (*Plan, error) {
	objDir := filepath.Join(a.config.DataDir, obj.Name)

	links, err := a.metadata.LoadLinks(obj.Name)
	if err != nil {
		return nil, fmt.Errorf("[%s] failed to load document links: %w", obj.Name, err)
	}
	versions, err := a.metadata.LoadVersions(obj.Name)
	if err != nil {
		return nil, fmt.Errorf("[%s] failed to load content versions: %w", obj.Name, err)
	}
	versionPlan := NewVersionPlan(links, versions, objDir)

	if !obj.Attachments {
		return versionPlan, nil
	}

	attachments, err := a.metadata.LoadAttachments(obj.Name)
	if err != nil {
		return nil, fmt.Errorf("[%s] failed to load attachments: %w", obj.Name, err)
	}
	attachmentPlan := NewAttachmentPlan(attachments, objDir)

	return NewPlan(func() []PlanItem {
		items := append([]PlanItem(nil), versionPlan.Items()...)
		return append(items, attachmentPlan.Items()...)
	}), nil
}

type loadable interface {
	Exists() (bool, error)
	Load() error
}

// loadIndex loads persisted index state when present. A corrupt index is fatal.
func loadIndex(index loadable) error {
	exists, err := index.Exists()
	if err != nil {
		return fmt.Errorf("failed to stat index: %w", err)
	}
	if !exists {
		return nil
	}
	if err := index.Load(); err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	return nil
}

func status(failed bool) string {
	if failed {
		return "FAILED"
	}
	return "SUCCESS"
}

// DownloadSummary renders the final line of a download run
func DownloadSummary(s domain.DownloadStats) string {
	return fmt.Sprintf("[%s] Download finished. Processed %d/%d (%s), %d errors.",
		status(s.Failed()), s.Processed, s.Total, humanize.IBytes(uint64(s.Size)), s.Errors)
}

// ValidationSummary renders the final line of a validation run
func ValidationSummary(s domain.ValidationStats) string {
	return fmt.Sprintf("[%s] Download validation finished. Processed %d/%d, %d errors.",
		status(s.Failed()), s.Processed, s.Total, s.Invalid)
}
