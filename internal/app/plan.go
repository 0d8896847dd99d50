package app

import (
	"path/filepath"
	"sync"

	"github.com/yourusername/archivist-go/internal/domain"
)

// PlanItem is one object and the path it should end up at
type PlanItem struct {
	Object domain.DownloadableObject
	Path   string
}

// Plan is a lazily built, memoized list of plan items.
// Items is deterministic for the same inputs and never touches the network.
type Plan struct {
	once  sync.Once
	build func() []PlanItem
	items []PlanItem
}

// NewPlan creates a plan computed on first use by build
func NewPlan(build func() []PlanItem) *Plan {
	return &Plan{build: build}
}

// NewStaticPlan creates a plan from a fixed list
func NewStaticPlan(items ...PlanItem) *Plan {
	return NewPlan(func() []PlanItem { return items })
}

// Items returns the plan items in order
func (p *Plan) Items() []PlanItem {
	p.once.Do(func() {
		p.items = p.build()
	})
	return p.items
}

func (p *Plan) Len() int {
	return len(p.Items())
}

// NewVersionPlan joins links with the versions of their documents. Files land in
// {dataDir}/files/{link dir}/{filename}; a document shared by two records is
// planned once per record.
func NewVersionPlan(links *domain.LinkCatalog, versions *domain.VersionCatalog, dataDir string) *Plan {
	return NewPlan(func() []PlanItem {
		var items []PlanItem
		for _, link := range links.Links() {
			for _, v := range versions.ForDocument(link.ContentDocumentID) {
				items = append(items, PlanItem{
					Object: v,
					Path:   filepath.Join(dataDir, "files", link.DirName(), v.Filename()),
				})
			}
		}
		return items
	})
}

// NewAttachmentPlan places each attachment in {dataDir}/files/{parent id}/{filename}
func NewAttachmentPlan(attachments *domain.AttachmentCatalog, dataDir string) *Plan {
	return NewPlan(func() []PlanItem {
		var items []PlanItem
		for _, a := range attachments.All() {
			items = append(items, PlanItem{
				Object: a,
				Path:   filepath.Join(dataDir, "files", a.ParentID, a.Filename()),
			})
		}
		return items
	})
}
