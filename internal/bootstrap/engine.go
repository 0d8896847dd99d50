// Package bootstrap wires configuration to concrete engine components.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	// bucket URL schemes accepted by transport.bucket_url
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/yourusername/archivist-go/internal/app"
	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/internal/infrastructure"
)

// Source fetches object bodies and reports API usage
type Source interface {
	domain.Transport
	domain.UsageProvider
}

// closers releases resources in reverse order of acquisition
type closers []func() error

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenSource opens the configured transport
func OpenSource(ctx context.Context, cfg *domain.Config, log *zap.Logger) (Source, func() error, error) {
	switch cfg.Transport.Kind {
	case domain.TransportSalesforce:
		client := infrastructure.NewSalesforceClient(infrastructure.SalesforceOptionsFromConfig(&cfg.Salesforce), log)
		return client, func() error { return nil }, nil
	case domain.TransportBucket:
		t, err := infrastructure.OpenBucketTransport(ctx, cfg.Transport.BucketURL)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport.Kind)
	}
}

// OpenIndices opens the configured index backend
func OpenIndices(fs afero.Fs, cfg *domain.Config) (domain.DownloadedIndex, domain.ValidatedIndex, func() error, error) {
	switch cfg.Index.Backend {
	case domain.IndexBackendCSV:
		return infrastructure.NewCSVDownloadedIndex(fs, cfg.Archive.DataDir),
			infrastructure.NewCSVValidatedIndex(fs, cfg.Archive.DataDir),
			func() error { return nil }, nil
	case domain.IndexBackendSQLite:
		store, err := infrastructure.NewSQLiteIndexStore(cfg.Index.DatabasePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store.Downloaded(), store.Validated(), store.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
}

// NewArchivistFactory returns a factory building a fully wired archivist per call.
// Each archivist gets fresh indices so a run always starts from persisted state.
func NewArchivistFactory(ctx context.Context, cfg *domain.Config, fs afero.Fs, log *zap.Logger) app.ArchivistFactory {
	return func(observer domain.Observer) (*app.Archivist, func() error, error) {
		var cleanup closers

		source, closeSource, err := OpenSource(ctx, cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open transport: %w", err)
		}
		cleanup = append(cleanup, closeSource)

		downloaded, validated, closeIndices, err := OpenIndices(fs, cfg)
		if err != nil {
			cleanup.Close()
			return nil, nil, fmt.Errorf("failed to open index: %w", err)
		}
		cleanup = append(cleanup, closeIndices)

		gate := app.NewQuotaGate(source, cfg.Archive.QuotaThreshold(), cfg.Archive.QuotaWaitSeconds, log)
		archivist := app.NewArchivist(
			&cfg.Archive,
			infrastructure.NewCSVMetadataSource(fs, cfg.Archive.DataDir),
			downloaded,
			validated,
			app.NewDownloader(fs, source, gate, cfg.Archive.MaxWorkers, observer, log),
			app.NewValidator(fs, cfg.Archive.MaxWorkers, observer, log),
			log,
		)
		return archivist, cleanup.Close, nil
	}
}
