package domain

import (
	"context"
	"io"
	"math"
)

// DownloadedRecord claims that ObjectID was materialized at Path.
// The file may have been removed since; callers re-check the path.
type DownloadedRecord struct {
	ObjectID string `json:"object_id"`
	ParentID string `json:"parent_id"`
	Path     string `json:"path"`
}

// ValidatedRecord caches the last computed checksum (versions) or size
// (attachments) of the file at Path. Exactly one of the two is set.
type ValidatedRecord struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum,omitempty"`
	Size     *int64 `json:"size,omitempty"`
}

// DownloadedIndex persists object id -> path claims
type DownloadedIndex interface {
	// Exists reports whether persisted state is present
	Exists() (bool, error)

	// Load reads persisted state, failing with ErrIndexCorrupt on bad data
	Load() error

	// Get returns the record for an object id
	Get(objectID string) (DownloadedRecord, bool)

	// Put upserts a record by object id
	Put(record DownloadedRecord)

	// Save replaces the persisted state with the in-memory state
	Save() error

	// Len returns the number of records held in memory
	Len() int
}

// ValidatedIndex persists path -> last verification value
type ValidatedIndex interface {
	Exists() (bool, error)
	Load() error
	Get(path string) (ValidatedRecord, bool)
	Put(record ValidatedRecord)
	Save() error
	Len() int
}

// Transport streams object bodies from the remote store.
// Implementations must be safe for concurrent use.
type Transport interface {
	FetchObject(ctx context.Context, obj DownloadableObject) (io.ReadCloser, error)
}

// Usage is a snapshot of remote API consumption
type Usage struct {
	Used  int64 `json:"used"`
	Total int64 `json:"total"`
}

// Percent returns used/total*100 rounded to two decimals, or 0 when total is 0
func (u Usage) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	return math.Round(float64(u.Used)/float64(u.Total)*100*100) / 100
}

// UsageProvider reports API usage. With refresh=false a cached snapshot may be returned.
type UsageProvider interface {
	GetUsage(ctx context.Context, refresh bool) (Usage, error)
}

// MetadataSource loads the metadata lists an export step left for an object type
type MetadataSource interface {
	LoadLinks(objType string) (*LinkCatalog, error)
	LoadVersions(objType string) (*VersionCatalog, error)
	LoadAttachments(objType string) (*AttachmentCatalog, error)
}
