package domain

import (
	"fmt"
	"strings"
)

// ObjectKind identifies which remote object type a downloadable belongs to
type ObjectKind string

const (
	KindContentVersion ObjectKind = "ContentVersion"
	KindAttachment     ObjectKind = "Attachment"
)

// DownloadableObject is either a *VersionedFile or an *Attachment.
// The set is closed: callers switch on the concrete type.
type DownloadableObject interface {
	ObjectID() string
	Kind() ObjectKind
	Size() int64
	Filename() string

	downloadable()
}

var filenameReplacer = strings.NewReplacer(
	"/", "-",
	`\`, "-",
	"?", "-",
	"%", "-",
	"*", "-",
	":", "-",
	"|", "-",
	`"`, "-",
	"<", "-",
	">", "-",
)

// SanitizeFilename replaces path-hostile characters with "-"
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

// VersionedFile is a single ContentVersion of a ContentDocument
type VersionedFile struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	Title         string `json:"title"`
	Extension     string `json:"extension"`
	Checksum      string `json:"checksum"`
	VersionNumber int    `json:"version_number"`
	ContentSize   int64  `json:"content_size"`
}

func (v *VersionedFile) ObjectID() string { return v.ID }
func (v *VersionedFile) Kind() ObjectKind { return KindContentVersion }
func (v *VersionedFile) Size() int64      { return v.ContentSize }
func (v *VersionedFile) downloadable()    {}

// Filename returns {documentId}_{versionNumber}_{id}_{title}.{extension}
func (v *VersionedFile) Filename() string {
	return fmt.Sprintf("%s_%d_%s_%s.%s",
		v.DocumentID,
		v.VersionNumber,
		v.ID,
		SanitizeFilename(v.Title),
		v.Extension,
	)
}

// Attachment is a legacy Attachment record owned by a parent record
type Attachment struct {
	ID          string `json:"id"`
	ParentID    string `json:"parent_id"`
	Name        string `json:"name"`
	ContentSize int64  `json:"content_size"`
}

func (a *Attachment) ObjectID() string { return a.ID }
func (a *Attachment) Kind() ObjectKind { return KindAttachment }
func (a *Attachment) Size() int64      { return a.ContentSize }
func (a *Attachment) downloadable()    {}

// Filename returns {id}_{name}
func (a *Attachment) Filename() string {
	return fmt.Sprintf("%s_%s", a.ID, SanitizeFilename(a.Name))
}

// ParentOf returns the id stored next to the object id in the downloaded index:
// the ContentDocumentId for versions, the ParentId for attachments.
func ParentOf(obj DownloadableObject) string {
	switch o := obj.(type) {
	case *VersionedFile:
		return o.DocumentID
	case *Attachment:
		return o.ParentID
	default:
		panic(fmt.Sprintf("domain: unknown downloadable %T", obj))
	}
}

// DocumentLink links a ContentDocument to the record it is shared with
type DocumentLink struct {
	LinkedEntityID    string `json:"linked_entity_id"`
	ContentDocumentID string `json:"content_document_id"`
	// DownloadDirName holds the value of the configured dir_name_field, if any
	DownloadDirName string `json:"download_dir_name,omitempty"`
}

// DirName returns the directory the link's files are grouped under
func (l DocumentLink) DirName() string {
	if l.DownloadDirName != "" {
		return l.DownloadDirName
	}
	return l.LinkedEntityID
}
