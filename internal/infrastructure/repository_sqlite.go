package infrastructure

import (
	"fmt"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yourusername/archivist-go/internal/domain"
)

const sqliteBatchSize = 500

type downloadedRow struct {
	ObjectID string `gorm:"primaryKey;column:object_id"`
	ParentID string `gorm:"column:parent_id"`
	Path     string `gorm:"column:path;not null"`
}

func (downloadedRow) TableName() string { return "downloaded_objects" }

type validatedRow struct {
	Path     string `gorm:"primaryKey;column:path"`
	Checksum string `gorm:"column:checksum"`
	Size     *int64 `gorm:"column:content_size"`
}

func (validatedRow) TableName() string { return "validated_paths" }

// SQLiteIndexStore persists both indices in one SQLite database
type SQLiteIndexStore struct {
	db *gorm.DB
}

// NewSQLiteIndexStore opens (and migrates) the database at dbPath
func NewSQLiteIndexStore(dbPath string) (*SQLiteIndexStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&downloadedRow{}, &validatedRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteIndexStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteIndexStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Downloaded returns a downloaded index backed by this store
func (s *SQLiteIndexStore) Downloaded() *SQLiteDownloadedIndex {
	return &SQLiteDownloadedIndex{db: s.db, records: make(map[string]domain.DownloadedRecord)}
}

// Validated returns a validated index backed by this store
func (s *SQLiteIndexStore) Validated() *SQLiteValidatedIndex {
	return &SQLiteValidatedIndex{db: s.db, records: make(map[string]domain.ValidatedRecord)}
}

// SQLiteDownloadedIndex holds records in memory and upserts them on Save
type SQLiteDownloadedIndex struct {
	db      *gorm.DB
	mu      sync.RWMutex
	records map[string]domain.DownloadedRecord
	dirty   map[string]struct{}
}

func (i *SQLiteDownloadedIndex) Exists() (bool, error) {
	var count int64
	if err := i.db.Model(&downloadedRow{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (i *SQLiteDownloadedIndex) Load() error {
	var rows []downloadedRow
	if err := i.db.Order("rowid").Find(&rows).Error; err != nil {
		return &domain.IndexCorruptError{Path: downloadedRow{}.TableName(), Err: err}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]domain.DownloadedRecord, len(rows))
	i.dirty = nil
	for _, r := range rows {
		i.records[r.ObjectID] = domain.DownloadedRecord{ObjectID: r.ObjectID, ParentID: r.ParentID, Path: r.Path}
	}
	return nil
}

func (i *SQLiteDownloadedIndex) Get(objectID string) (domain.DownloadedRecord, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	r, ok := i.records[objectID]
	return r, ok
}

func (i *SQLiteDownloadedIndex) Put(record domain.DownloadedRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[record.ObjectID] = record
	if i.dirty == nil {
		i.dirty = make(map[string]struct{})
	}
	i.dirty[record.ObjectID] = struct{}{}
}

// Save upserts the records changed since the last Load or Save in one transaction
func (i *SQLiteDownloadedIndex) Save() error {
	i.mu.Lock()
	rows := make([]downloadedRow, 0, len(i.dirty))
	for id := range i.dirty {
		r := i.records[id]
		rows = append(rows, downloadedRow{ObjectID: r.ObjectID, ParentID: r.ParentID, Path: r.Path})
	}
	dirty := i.dirty
	i.dirty = nil
	i.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	err := i.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "object_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"parent_id", "path"}),
		}).CreateInBatches(&rows, sqliteBatchSize).Error
	})
	if err != nil {
		i.restoreDirty(dirty)
		return fmt.Errorf("failed to save downloaded index: %w", err)
	}
	return nil
}

func (i *SQLiteDownloadedIndex) restoreDirty(dirty map[string]struct{}) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dirty == nil {
		i.dirty = make(map[string]struct{})
	}
	for id := range dirty {
		i.dirty[id] = struct{}{}
	}
}

func (i *SQLiteDownloadedIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// SQLiteValidatedIndex holds records in memory and upserts them on Save
type SQLiteValidatedIndex struct {
	db      *gorm.DB
	mu      sync.RWMutex
	records map[string]domain.ValidatedRecord
	dirty   map[string]struct{}
}

func (i *SQLiteValidatedIndex) Exists() (bool, error) {
	var count int64
	if err := i.db.Model(&validatedRow{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (i *SQLiteValidatedIndex) Load() error {
	var rows []validatedRow
	if err := i.db.Order("rowid").Find(&rows).Error; err != nil {
		return &domain.IndexCorruptError{Path: validatedRow{}.TableName(), Err: err}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]domain.ValidatedRecord, len(rows))
	i.dirty = nil
	for n, r := range rows {
		if (r.Checksum == "") == (r.Size == nil) {
			return &domain.IndexCorruptError{
				Path: validatedRow{}.TableName(),
				Line: n + 1,
				Err:  fmt.Errorf("row for %s must carry exactly one of checksum and size", r.Path),
			}
		}
		i.records[r.Path] = domain.ValidatedRecord{Path: r.Path, Checksum: r.Checksum, Size: r.Size}
	}
	return nil
}

func (i *SQLiteValidatedIndex) Get(path string) (domain.ValidatedRecord, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	r, ok := i.records[path]
	return r, ok
}

func (i *SQLiteValidatedIndex) Put(record domain.ValidatedRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.records[record.Path] = record
	if i.dirty == nil {
		i.dirty = make(map[string]struct{})
	}
	i.dirty[record.Path] = struct{}{}
}

func (i *SQLiteValidatedIndex) Save() error {
	i.mu.Lock()
	rows := make([]validatedRow, 0, len(i.dirty))
	for p := range i.dirty {
		r := i.records[p]
		rows = append(rows, validatedRow{Path: r.Path, Checksum: r.Checksum, Size: r.Size})
	}
	i.dirty = nil
	i.mu.Unlock()

	if len(rows) == 0 {
		return nil
	}
	err := i.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"checksum", "content_size"}),
		}).CreateInBatches(&rows, sqliteBatchSize).Error
	})
	if err != nil {
		i.mu.Lock()
		if i.dirty == nil {
			i.dirty = make(map[string]struct{})
		}
		for _, r := range rows {
			i.dirty[r.Path] = struct{}{}
		}
		i.mu.Unlock()
		return fmt.Errorf("failed to save validated index: %w", err)
	}
	return nil
}

func (i *SQLiteValidatedIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}
