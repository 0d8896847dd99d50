package domain

// LinkCatalog holds the document links of one object type, deduplicated by
// (LinkedEntityId, ContentDocumentId) and kept in insertion order.
type LinkCatalog struct {
	links []DocumentLink
	index map[string]int
}

func NewLinkCatalog() *LinkCatalog {
	return &LinkCatalog{index: make(map[string]int)}
}

// Add inserts or replaces a link
func (c *LinkCatalog) Add(link DocumentLink) {
	key := link.LinkedEntityID + "_" + link.ContentDocumentID
	if i, ok := c.index[key]; ok {
		c.links[i] = link
		return
	}
	c.index[key] = len(c.links)
	c.links = append(c.links, link)
}

func (c *LinkCatalog) Links() []DocumentLink {
	return c.links
}

func (c *LinkCatalog) Len() int {
	return len(c.links)
}

// VersionCatalog indexes content versions by id and by document id
type VersionCatalog struct {
	versions map[string]*VersionedFile
	byDoc    map[string][]string
	order    []string
}

func NewVersionCatalog() *VersionCatalog {
	return &VersionCatalog{
		versions: make(map[string]*VersionedFile),
		byDoc:    make(map[string][]string),
	}
}

func (c *VersionCatalog) Add(v *VersionedFile) {
	if prev, ok := c.versions[v.ID]; ok {
		c.versions[v.ID] = v
		if prev.DocumentID == v.DocumentID {
			return
		}
		c.byDoc[prev.DocumentID] = removeID(c.byDoc[prev.DocumentID], v.ID)
	} else {
		c.versions[v.ID] = v
		c.order = append(c.order, v.ID)
	}
	c.byDoc[v.DocumentID] = append(c.byDoc[v.DocumentID], v.ID)
}

func (c *VersionCatalog) Get(id string) (*VersionedFile, bool) {
	v, ok := c.versions[id]
	return v, ok
}

// ForDocument returns the versions of a document in insertion order
func (c *VersionCatalog) ForDocument(documentID string) []*VersionedFile {
	ids := c.byDoc[documentID]
	out := make([]*VersionedFile, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.versions[id])
	}
	return out
}

func (c *VersionCatalog) All() []*VersionedFile {
	out := make([]*VersionedFile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.versions[id])
	}
	return out
}

func (c *VersionCatalog) Len() int {
	return len(c.versions)
}

// AttachmentCatalog indexes attachments by id, in insertion order
type AttachmentCatalog struct {
	attachments map[string]*Attachment
	order       []string
}

func NewAttachmentCatalog() *AttachmentCatalog {
	return &AttachmentCatalog{attachments: make(map[string]*Attachment)}
}

func (c *AttachmentCatalog) Add(a *Attachment) {
	if _, ok := c.attachments[a.ID]; !ok {
		c.order = append(c.order, a.ID)
	}
	c.attachments[a.ID] = a
}

func (c *AttachmentCatalog) Get(id string) (*Attachment, bool) {
	a, ok := c.attachments[id]
	return a, ok
}

func (c *AttachmentCatalog) All() []*Attachment {
	out := make([]*Attachment, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.attachments[id])
	}
	return out
}

func (c *AttachmentCatalog) Len() int {
	return len(c.attachments)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
