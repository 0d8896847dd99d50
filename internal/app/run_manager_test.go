package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/pkg/logger"
)

type recordingNotifier struct {
	mu       sync.Mutex
	kinds    []string
	failures []bool
}

func (n *recordingNotifier) NotifyRunFinished(kind, summary string, failed bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	n.failures = append(n.failures, failed)
}

func newTestRunManager(t *testing.T, f *archivistFixture, ml *logger.MultiLogger) (*RunManager, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	factory := func(observer domain.Observer) (*Archivist, func() error, error) {
		a := *f.archivist
		a.downloader = NewDownloader(f.fs, f.transport, nil, 2, observer, nil)
		a.validator = NewValidator(f.fs, 2, observer, nil)
		return &a, nil, nil
	}
	return NewRunManager(context.Background(), factory, notifier, ml, nil), notifier
}

func TestRunManager_DownloadRun(t *testing.T) {
	f := newArchivistFixture(t)
	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	rm, notifier := newTestRunManager(t, f, ml)
	forwarded := &recordingObserver{}
	rm.WithObserver(forwarded)

	run, err := rm.Start(domain.RunKindDownload)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusRunning, run.Status)
	assert.NotEmpty(t, run.ID)

	rm.Wait()

	got, err := rm.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSucceeded, got.Status)
	assert.True(t, got.IsFinished())
	require.NotNil(t, got.Download)
	assert.Equal(t, 2, got.Download.Processed)
	assert.Equal(t, 2, got.Progress.Processed)
	assert.Equal(t, 0, got.Progress.Errors)
	assert.Equal(t, "[SUCCESS] Download finished. Processed 2/2 (8 B), 0 errors.", got.Summary)
	assert.Equal(t, []string{"download"}, notifier.kinds)
	assert.Equal(t, []bool{false}, notifier.failures)
	assert.Len(t, forwarded.Events(), 2)

	_, active := rm.Active()
	assert.False(t, active)

	require.NoError(t, ml.Close())
	entries, err := logger.NewLogReader(ml.GetLogsDir()).ReadLogs(logger.CategoryRun, time.Now(),
		logger.LogFilter{Key: "run_id", Value: run.ID}, 0)
	require.NoError(t, err)
	// run_started, two items, run_finished
	require.Len(t, entries, 4)
	assert.Equal(t, "run_started", entries[0].Message)
	assert.Equal(t, "run_finished", entries[3].Message)
}

func TestRunManager_OneActiveRunAndCancel(t *testing.T) {
	f := newArchivistFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.transport.onFetch = func(string) {
		once.Do(func() { close(started) })
		<-release
	}
	rm, notifier := newTestRunManager(t, f, nil)

	run, err := rm.Start(domain.RunKindDownload)
	require.NoError(t, err)
	<-started

	_, err = rm.Start(domain.RunKindValidate)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	require.NoError(t, rm.Cancel(run.ID))
	close(release)
	rm.Wait()

	got, err := rm.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, got.Status)
	assert.NotEmpty(t, got.Error)
	assert.Equal(t, []bool{true}, notifier.failures)
	// the in-flight item finished, the other object type never started
	assert.Equal(t, 1, f.transport.Calls("V1"))
	assert.Equal(t, 0, f.transport.Calls("A1"))

	assert.ErrorIs(t, rm.Cancel(run.ID), domain.ErrRunNotActive)
}

func TestRunManager_UnknownRun(t *testing.T) {
	rm, _ := newTestRunManager(t, newArchivistFixture(t), nil)

	_, err := rm.Get("nope")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	assert.ErrorIs(t, rm.Cancel("nope"), domain.ErrRunNotFound)

	_, err = rm.Start("export")
	assert.Error(t, err)
	assert.Empty(t, rm.List())
}

func TestRunManager_ListNewestFirst(t *testing.T) {
	rm, _ := newTestRunManager(t, newArchivistFixture(t), nil)

	first, err := rm.Start(domain.RunKindDownload)
	require.NoError(t, err)
	rm.Wait()
	time.Sleep(time.Millisecond)
	second, err := rm.Start(domain.RunKindValidate)
	require.NoError(t, err)
	rm.Wait()

	runs := rm.List()
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, domain.RunStatusSucceeded, runs[0].Status)
	require.NotNil(t, runs[0].Validation)
}
