package infrastructure

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/yourusername/archivist-go/internal/domain"
	"github.com/yourusername/archivist-go/pkg/fsutil"
)

const (
	DocumentLinksFile   = "document_links.csv"
	ContentVersionsFile = "content_versions.csv"
	AttachmentsFile     = "attachments.csv"
)

// CSVMetadataSource reads the metadata lists an export step wrote to
// {dataDir}/{objType}/. A missing file yields an empty catalog.
type CSVMetadataSource struct {
	fs      afero.Fs
	dataDir string
}

func NewCSVMetadataSource(fs afero.Fs, dataDir string) *CSVMetadataSource {
	return &CSVMetadataSource{fs: fs, dataDir: dataDir}
}

func (s *CSVMetadataSource) path(objType, name string) string {
	return filepath.Join(s.dataDir, objType, name)
}

func (s *CSVMetadataSource) rows(path string) ([][]string, error) {
	ok, err := fsutil.Exists(s.fs, path)
	if err != nil || !ok {
		return nil, err
	}
	return readCSV(s.fs, path, nil)
}

// LoadLinks reads LinkedEntityId,ContentDocumentId[,<dir name field>]
func (s *CSVMetadataSource) LoadLinks(objType string) (*domain.LinkCatalog, error) {
	path := s.path(objType, DocumentLinksFile)
	rows, err := s.rows(path)
	if err != nil {
		return nil, err
	}

	links := domain.NewLinkCatalog()
	for n, row := range rows {
		if len(row) < 2 || len(row) > 3 {
			return nil, fmt.Errorf("%s line %d: expected 2 or 3 fields, got %d", path, n+2, len(row))
		}
		link := domain.DocumentLink{LinkedEntityID: row[0], ContentDocumentID: row[1]}
		if len(row) == 3 {
			link.DownloadDirName = row[2]
		}
		links.Add(link)
	}
	return links, nil
}

// LoadVersions reads Id,ContentDocumentId,Checksum,Title,FileExtension,VersionNumber,ContentSize
func (s *CSVMetadataSource) LoadVersions(objType string) (*domain.VersionCatalog, error) {
	path := s.path(objType, ContentVersionsFile)
	rows, err := s.rows(path)
	if err != nil {
		return nil, err
	}

	versions := domain.NewVersionCatalog()
	for n, row := range rows {
		if len(row) != 7 {
			return nil, fmt.Errorf("%s line %d: expected 7 fields, got %d", path, n+2, len(row))
		}
		number, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad version number: %w", path, n+2, err)
		}
		size, err := strconv.ParseInt(row[6], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad content size: %w", path, n+2, err)
		}
		versions.Add(&domain.VersionedFile{
			ID:            row[0],
			DocumentID:    row[1],
			Checksum:      row[2],
			Title:         row[3],
			Extension:     row[4],
			VersionNumber: number,
			ContentSize:   size,
		})
	}
	return versions, nil
}

// LoadAttachments reads Id,ParentId,ContentSize,Name
func (s *CSVMetadataSource) LoadAttachments(objType string) (*domain.AttachmentCatalog, error) {
	path := s.path(objType, AttachmentsFile)
	rows, err := s.rows(path)
	if err != nil {
		return nil, err
	}

	attachments := domain.NewAttachmentCatalog()
	for n, row := range rows {
		if len(row) != 4 {
			return nil, fmt.Errorf("%s line %d: expected 4 fields, got %d", path, n+2, len(row))
		}
		size, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad content size: %w", path, n+2, err)
		}
		attachments.Add(&domain.Attachment{
			ID:          row[0],
			ParentID:    row[1],
			ContentSize: size,
			Name:        row[3],
		})
	}
	return attachments, nil
}
