package infrastructure

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/afero"

	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/pkg/fsutil"
)

const (
	DownloadedIndexFile = "downloaded_versions.csv"
	ValidatedIndexFile  = "validated_versions.csv"
)

var (
	downloadedHeader = []string{"Id", "ContentDocumentId", "Path on disk"}
	validatedHeader  = []string{"Checksum", "Content Size", "Path"}
)

// CSVDownloadedIndex keeps the downloaded index in {dataDir}/downloaded_versions.csv
type CSVDownloadedIndex struct {
	fs      afero.Fs
	path    string
	mu      sync.RWMutex
	records map[string]domain.DownloadedRecord
	order   []string
}

// NewCSVDownloadedIndex creates an empty index backed by a CSV file in dataDir
func NewCSVDownloadedIndex(fs afero.Fs, dataDir string) *CSVDownloadedIndex {
	return &CSVDownloadedIndex{
		fs:      fs,
		path:    filepath.Join(dataDir, DownloadedIndexFile),
		records: make(map[string]domain.DownloadedRecord),
	}
}

// Path returns the backing file path
func (i *CSVDownloadedIndex) Path() string { return i.path }

func (i *CSVDownloadedIndex) Exists() (bool, error) {
	return fsutil.Exists(i.fs, i.path)
}

// Load replaces the in-memory state with the file contents
func (i *CSVDownloadedIndex) Load() error {
	rows, err := readCSV(i.fs, i.path, downloadedHeader)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]domain.DownloadedRecord, len(rows))
	i.order = i.order[:0]
	for n, row := range rows {
		if len(row) != 3 || row[0] == "" || row[2] == "" {
			return &domain.IndexCorruptError{
				Path: i.path,
				Line: n + 2,
				Err:  fmt.Errorf("expected id, parent id and path, got %d fields", len(row)),
			}
		}
		i.put(domain.DownloadedRecord{ObjectID: row[0], ParentID: row[1], Path: row[2]})
	}
	return nil
}

func (i *CSVDownloadedIndex) Get(objectID string) (domain.DownloadedRecord, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	r, ok := i.records[objectID]
	return r, ok
}

func (i *CSVDownloadedIndex) Put(record domain.DownloadedRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.put(record)
}

func (i *CSVDownloadedIndex) put(record domain.DownloadedRecord) {
	if _, ok := i.records[record.ObjectID]; !ok {
		i.order = append(i.order, record.ObjectID)
	}
	i.records[record.ObjectID] = record
}

// Save rewrites the whole file through a temp file and rename
func (i *CSVDownloadedIndex) Save() error {
	i.mu.RLock()
	rows := make([][]string, 0, len(i.order))
	for _, id := range i.order {
		r := i.records[id]
		rows = append(rows, []string{r.ObjectID, r.ParentID, r.Path})
	}
	i.mu.RUnlock()

	return writeCSV(i.fs, i.path, downloadedHeader, rows)
}

func (i *CSVDownloadedIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// CSVValidatedIndex keeps the validated index in {dataDir}/validated_versions.csv.
// Rows written by older versions carry only Checksum and Path and are accepted.
type CSVValidatedIndex struct {
	fs      afero.Fs
	path    string
	mu      sync.RWMutex
	records map[string]domain.ValidatedRecord
	order   []string
}

func NewCSVValidatedIndex(fs afero.Fs, dataDir string) *CSVValidatedIndex {
	return &CSVValidatedIndex{
		fs:      fs,
		path:    filepath.Join(dataDir, ValidatedIndexFile),
		records: make(map[string]domain.ValidatedRecord),
	}
}

func (i *CSVValidatedIndex) Path() string { return i.path }

func (i *CSVValidatedIndex) Exists() (bool, error) {
	return fsutil.Exists(i.fs, i.path)
}

func (i *CSVValidatedIndex) Load() error {
	rows, err := readCSV(i.fs, i.path, nil)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.records = make(map[string]domain.ValidatedRecord, len(rows))
	i.order = i.order[:0]
	for n, row := range rows {
		record, err := parseValidatedRow(row)
		if err != nil {
			return &domain.IndexCorruptError{Path: i.path, Line: n + 2, Err: err}
		}
		i.put(record)
	}
	return nil
}

func parseValidatedRow(row []string) (domain.ValidatedRecord, error) {
	switch len(row) {
	case 2:
		if row[0] == "" || row[1] == "" {
			return domain.ValidatedRecord{}, errors.New("legacy row needs checksum and path")
		}
		return domain.ValidatedRecord{Checksum: row[0], Path: row[1]}, nil
	case 3:
		record := domain.ValidatedRecord{Checksum: row[0], Path: row[2]}
		if record.Path == "" {
			return record, errors.New("missing path")
		}
		if row[1] != "" {
			size, err := strconv.ParseInt(row[1], 10, 64)
			if err != nil {
				return record, fmt.Errorf("bad content size %q", row[1])
			}
			record.Size = &size
		}
		if (record.Checksum == "") == (record.Size == nil) {
			return record, errors.New("exactly one of checksum and content size must be set")
		}
		return record, nil
	default:
		return domain.ValidatedRecord{}, fmt.Errorf("expected 2 or 3 fields, got %d", len(row))
	}
}

func (i *CSVValidatedIndex) Get(path string) (domain.ValidatedRecord, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	r, ok := i.records[path]
	return r, ok
}

func (i *CSVValidatedIndex) Put(record domain.ValidatedRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.put(record)
}

func (i *CSVValidatedIndex) put(record domain.ValidatedRecord) {
	if _, ok := i.records[record.Path]; !ok {
		i.order = append(i.order, record.Path)
	}
	i.records[record.Path] = record
}

func (i *CSVValidatedIndex) Save() error {
	i.mu.RLock()
	rows := make([][]string, 0, len(i.order))
	for _, p := range i.order {
		r := i.records[p]
		size := ""
		if r.Size != nil {
			size = strconv.FormatInt(*r.Size, 10)
		}
		rows = append(rows, []string{r.Checksum, size, r.Path})
	}
	i.mu.RUnlock()

	return writeCSV(i.fs, i.path, validatedHeader, rows)
}

func (i *CSVValidatedIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.records)
}

// readCSV returns the data rows of a CSV file. The header row is checked
// against header when one is given.
func readCSV(fs afero.Fs, path string, header []string) ([][]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	first, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.IndexCorruptError{Path: path, Line: 1, Err: err}
	}
	if header != nil && !equalRow(first, header) {
		return nil, &domain.IndexCorruptError{Path: path, Line: 1, Err: fmt.Errorf("unexpected header %v", first)}
	}

	rows, err := r.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, &domain.IndexCorruptError{Path: path, Line: parseErr.Line, Err: parseErr.Err}
		}
		return nil, &domain.IndexCorruptError{Path: path, Err: err}
	}
	return rows, nil
}

func writeCSV(fs afero.Fs, path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if _, err := fsutil.WriteAtomic(fs, path, &buf, 0); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func equalRow(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
