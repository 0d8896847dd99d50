package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/pkg/logger"
)

// ArchivistFactory builds a fresh archivist whose engine reports to observer.
// The returned cleanup releases resources such as database handles.
type ArchivistFactory func(observer domain.Observer) (*Archivist, func() error, error)

// Notifier is told when a run finishes
type Notifier interface {
	NotifyRunFinished(kind, summary string, failed bool)
}

// RunManager starts runs in the background, one at a time, and keeps their history
type RunManager struct {
	baseCtx     context.Context
	factory     ArchivistFactory
	notifier    Notifier
	multiLogger *logger.MultiLogger
	logger      *zap.Logger
	forward     domain.Observer

	mu       sync.RWMutex
	runs     map[string]*domain.Run
	activeID string
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewRunManager creates a new run manager. Runs are children of baseCtx, never of
// the request that started them.
func NewRunManager(
	baseCtx context.Context,
	factory ArchivistFactory,
	notifier Notifier,
	multiLogger *logger.MultiLogger,
	log *zap.Logger,
) *RunManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &RunManager{
		baseCtx:     baseCtx,
		factory:     factory,
		notifier:    notifier,
		multiLogger: multiLogger,
		logger:      log,
		runs:        make(map[string]*domain.Run),
		forward:     domain.NopObserver,
	}
}

// WithObserver forwards every progress event to o, e.g. a console printer
func (rm *RunManager) WithObserver(o domain.Observer) *RunManager {
	rm.forward = o
	return rm
}

// Start launches a run of the given kind. It fails with ErrRunInProgress while another run is active.
func (rm *RunManager) Start(kind domain.RunKind) (domain.Run, error) {
	if !domain.ValidateRunKind(kind) {
		return domain.Run{}, fmt.Errorf("invalid run kind: %s", kind)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.activeID != "" {
		return domain.Run{}, fmt.Errorf("%w: %s", domain.ErrRunInProgress, rm.activeID)
	}

	run := &domain.Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}

	archivist, cleanup, err := rm.factory(rm.observer(run.ID))
	if err != nil {
		return domain.Run{}, fmt.Errorf("failed to prepare run: %w", err)
	}

	ctx, cancel := context.WithCancel(rm.baseCtx)
	rm.runs[run.ID] = run
	rm.activeID = run.ID
	rm.cancel = cancel

	rm.logRunEvent("run_started", zap.String("run_id", run.ID), zap.String("kind", string(kind)))

	rm.wg.Add(1)
	go rm.execute(ctx, run.ID, kind, archivist, cleanup)

	return *run, nil
}

func (rm *RunManager) execute(ctx context.Context, id string, kind domain.RunKind, archivist *Archivist, cleanup func() error) {
	defer rm.wg.Done()

	var (
		summary    string
		failed     bool
		download   *domain.DownloadStats
		validation *domain.ValidationStats
		runErr     error
	)
	switch kind {
	case domain.RunKindDownload:
		stats, err := archivist.Download(ctx)
		summary, failed, download, runErr = DownloadSummary(stats), stats.Failed(), &stats, err
	case domain.RunKindValidate:
		stats, err := archivist.Validate(ctx)
		summary, failed, validation, runErr = ValidationSummary(stats), stats.Failed(), &stats, err
	}

	if cleanup != nil {
		if err := cleanup(); err != nil {
			rm.logger.Warn("Run cleanup failed", zap.String("run_id", id), zap.Error(err))
		}
	}

	rm.mu.Lock()
	run := rm.runs[id]
	now := time.Now()
	run.FinishedAt = &now
	run.Download = download
	run.Validation = validation
	run.Summary = summary
	switch {
	case errors.Is(runErr, domain.ErrCancelled):
		run.Status = domain.RunStatusCancelled
	case runErr != nil || failed:
		run.Status = domain.RunStatusFailed
	default:
		run.Status = domain.RunStatusSucceeded
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	status := run.Status
	rm.cancel()
	rm.activeID = ""
	rm.cancel = nil
	rm.mu.Unlock()

	fields := []zap.Field{
		zap.String("run_id", id),
		zap.String("kind", string(kind)),
		zap.String("status", string(status)),
		zap.String("summary", summary),
	}
	rm.logRunEvent("run_finished", fields...)
	if runErr != nil && rm.multiLogger != nil {
		rm.multiLogger.LogAppError("Run failed", append(fields, zap.Error(runErr))...)
	}

	if rm.notifier != nil {
		rm.notifier.NotifyRunFinished(string(kind), summary, status != domain.RunStatusSucceeded)
	}
}

// observer records each progress event on the run and in the run log
func (rm *RunManager) observer(id string) domain.Observer {
	return domain.ObserverFunc(func(e domain.ProgressEvent) {
		rm.mu.Lock()
		if run, ok := rm.runs[id]; ok {
			p := &run.Progress
			p.Processed++
			if e.Outcome.IsError() {
				p.Errors++
			}
			p.Sequence = e.Sequence
			p.Total = e.Total
			p.UsagePercent = e.UsagePercent
			p.LastMessage = e.Message
		}
		rm.mu.Unlock()

		fields := []zap.Field{
			zap.String("run_id", id),
			zap.Int("sequence", e.Sequence),
			zap.Int("total", e.Total),
			zap.Int("worker", e.WorkerID),
			zap.String("outcome", string(e.Outcome)),
			zap.String("object_id", e.ObjectID),
			zap.String("path", e.Path),
			zap.Float64("usage_percent", e.UsagePercent),
		}
		rm.logRunEvent(e.Message, fields...)
		if e.Err != nil && rm.multiLogger != nil {
			rm.multiLogger.LogAppError(e.Message, append(fields, zap.Error(e.Err))...)
		}
		rm.forward.OnProgress(e)
	})
}

func (rm *RunManager) logRunEvent(event string, fields ...zap.Field) {
	if rm.multiLogger != nil {
		rm.multiLogger.LogRunEvent(event, fields...)
	}
}

// Get returns a snapshot of a run
func (rm *RunManager) Get(id string) (domain.Run, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	run, ok := rm.runs[id]
	if !ok {
		return domain.Run{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	return *run, nil
}

// List returns snapshots of every run, newest first
func (rm *RunManager) List() []domain.Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	runs := make([]domain.Run, 0, len(rm.runs))
	for _, run := range rm.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs
}

// Active returns the id of the running run, if any
func (rm *RunManager) Active() (string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.activeID, rm.activeID != ""
}

// Cancel requests a graceful stop of a running run. In-flight items finish first.
func (rm *RunManager) Cancel(id string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.runs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
	}
	if rm.activeID != id {
		return fmt.Errorf("%w: %s", domain.ErrRunNotActive, id)
	}

	rm.logRunEvent("run_cancel_requested", zap.String("run_id", id))
	rm.cancel()
	return nil
}

// Wait blocks until every started run has finished
func (rm *RunManager) Wait() {
	rm.wg.Wait()
}

// Shutdown cancels the active run and waits for it to finish saving its index
func (rm *RunManager) Shutdown() {
	rm.mu.Lock()
	if rm.cancel != nil {
		rm.cancel()
	}
	rm.mu.Unlock()
	rm.wg.Wait()
}
