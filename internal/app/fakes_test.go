package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/yourusername/archivist-go/internal/domain"
)

// memDownloadedIndex implements domain.DownloadedIndex for testing
type memDownloadedIndex struct {
	mu      sync.Mutex
	records map[string]domain.DownloadedRecord
	saves   int
}

func newMemDownloadedIndex() *memDownloadedIndex {
	return &memDownloadedIndex{records: make(map[string]domain.DownloadedRecord)}
}

func (m *memDownloadedIndex) Exists() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves > 0, nil
}

func (m *memDownloadedIndex) Load() error { return nil }

func (m *memDownloadedIndex) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *memDownloadedIndex) Get(id string) (domain.DownloadedRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	return r, ok
}

func (m *memDownloadedIndex) Put(r domain.DownloadedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ObjectID] = r
}

func (m *memDownloadedIndex) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

func (m *memDownloadedIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// memValidatedIndex implements domain.ValidatedIndex for testing
type memValidatedIndex struct {
	mu      sync.Mutex
	records map[string]domain.ValidatedRecord
}

func newMemValidatedIndex() *memValidatedIndex {
	return &memValidatedIndex{records: make(map[string]domain.ValidatedRecord)}
}

func (m *memValidatedIndex) Exists() (bool, error) { return false, nil }
func (m *memValidatedIndex) Load() error           { return nil }
func (m *memValidatedIndex) Save() error           { return nil }

func (m *memValidatedIndex) Get(path string) (domain.ValidatedRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[path]
	return r, ok
}

func (m *memValidatedIndex) Put(r domain.ValidatedRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.Path] = r
}

func (m *memValidatedIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeTransport serves fixed bodies and counts fetches per object id
type fakeTransport struct {
	mu     sync.Mutex
	bodies map[string][]byte
	fail   map[string]error
	calls  map[string]int
	// onFetch runs before each fetch returns
	onFetch func(id string)
}

func newFakeTransport(bodies map[string][]byte) *fakeTransport {
	return &fakeTransport{
		bodies: bodies,
		fail:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeTransport) FetchObject(ctx context.Context, obj domain.DownloadableObject) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls[obj.ObjectID()]++
	err := f.fail[obj.ObjectID()]
	body, ok := f.bodies[obj.ObjectID()]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(obj.ObjectID())
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *fakeTransport) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeTransport) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// stubUsage serves the current snapshot; each refresh moves to the next one
type stubUsage struct {
	mu        sync.Mutex
	snapshots []domain.Usage
	pos       int
	refreshes int
}

func (s *stubUsage) GetUsage(ctx context.Context, refresh bool) (domain.Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if refresh {
		s.refreshes++
		if s.pos < len(s.snapshots)-1 {
			s.pos++
		}
	}
	return s.snapshots[s.pos], nil
}

func (s *stubUsage) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

// recordingObserver collects progress events
type recordingObserver struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recordingObserver) OnProgress(e domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingObserver) Events() []domain.ProgressEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProgressEvent(nil), r.events...)
}

// fakeMetadata serves in-memory catalogs per object type
type fakeMetadata struct {
	links       map[string]*domain.LinkCatalog
	versions    map[string]*domain.VersionCatalog
	attachments map[string]*domain.AttachmentCatalog
	err         error
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		links:       make(map[string]*domain.LinkCatalog),
		versions:    make(map[string]*domain.VersionCatalog),
		attachments: make(map[string]*domain.AttachmentCatalog),
	}
}

func (f *fakeMetadata) addVersion(objType string, link domain.DocumentLink, v *domain.VersionedFile) {
	if f.links[objType] == nil {
		f.links[objType] = domain.NewLinkCatalog()
		f.versions[objType] = domain.NewVersionCatalog()
	}
	f.links[objType].Add(link)
	f.versions[objType].Add(v)
}

func (f *fakeMetadata) addAttachment(objType string, a *domain.Attachment) {
	if f.attachments[objType] == nil {
		f.attachments[objType] = domain.NewAttachmentCatalog()
	}
	f.attachments[objType].Add(a)
}

func (f *fakeMetadata) LoadLinks(objType string) (*domain.LinkCatalog, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.links[objType]; ok {
		return c, nil
	}
	return domain.NewLinkCatalog(), nil
}

func (f *fakeMetadata) LoadVersions(objType string) (*domain.VersionCatalog, error) {
	if c, ok := f.versions[objType]; ok {
		return c, nil
	}
	return domain.NewVersionCatalog(), nil
}

func (f *fakeMetadata) LoadAttachments(objType string) (*domain.AttachmentCatalog, error) {
	if c, ok := f.attachments[objType]; ok {
		return c, nil
	}
	return domain.NewAttachmentCatalog(), nil
}

// streamingTransport serves its body in two chunks. The second chunk is held
// until release is closed and fails if the fetch context is done by then.
type streamingTransport struct {
	first, rest []byte
	started     chan struct{}
	release     chan struct{}
}

func newStreamingTransport(first, rest string) *streamingTransport {
	return &streamingTransport{
		first:   []byte(first),
		rest:    []byte(rest),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *streamingTransport) FetchObject(ctx context.Context, obj domain.DownloadableObject) (io.ReadCloser, error) {
	return io.NopCloser(&streamingBody{ctx: ctx, t: s}), nil
}

type streamingBody struct {
	ctx   context.Context
	t     *streamingTransport
	chunk int
}

func (b *streamingBody) Read(p []byte) (int, error) {
	switch b.chunk {
	case 0:
		b.chunk++
		close(b.t.started)
		return copy(p, b.t.first), nil
	case 1:
		b.chunk++
		<-b.t.release
		if err := b.ctx.Err(); err != nil {
			return 0, err
		}
		return copy(p, b.t.rest), nil
	default:
		return 0, io.EOF
	}
}
