package app

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/archivist-go/internal/domain"
)

func TestNewVersionPlan(t *testing.T) {
	links := domain.NewLinkCatalog()
	links.Add(domain.DocumentLink{LinkedEntityID: "001A", ContentDocumentID: "069A", DownloadDirName: "Acme"})
	links.Add(domain.DocumentLink{LinkedEntityID: "001B", ContentDocumentID: "069A"})
	links.Add(domain.DocumentLink{LinkedEntityID: "001C", ContentDocumentID: "069Z"})

	versions := domain.NewVersionCatalog()
	v1 := &domain.VersionedFile{ID: "068A", DocumentID: "069A", Title: "a", Extension: "pdf", VersionNumber: 1}
	v2 := &domain.VersionedFile{ID: "068B", DocumentID: "069A", Title: "a", Extension: "pdf", VersionNumber: 2}
	versions.Add(v1)
	versions.Add(v2)

	plan := NewVersionPlan(links, versions, "/data/Account")
	items := plan.Items()
	require.Len(t, items, 4)
	assert.Equal(t, 4, plan.Len())

	assert.Equal(t, filepath.Join("/data/Account", "files", "Acme", v1.Filename()), items[0].Path)
	assert.Equal(t, filepath.Join("/data/Account", "files", "Acme", v2.Filename()), items[1].Path)
	assert.Equal(t, filepath.Join("/data/Account", "files", "001B", v1.Filename()), items[2].Path)
	assert.Same(t, v1, items[0].Object)
}

func TestNewAttachmentPlan(t *testing.T) {
	attachments := domain.NewAttachmentCatalog()
	attachments.Add(&domain.Attachment{ID: "00P1", ParentID: "001A", Name: "x.txt"})

	items := NewAttachmentPlan(attachments, "/data/Case").Items()
	require.Len(t, items, 1)
	assert.Equal(t, filepath.Join("/data/Case", "files", "001A", "00P1_x.txt"), items[0].Path)
}

func TestPlanIsMemoized(t *testing.T) {
	var builds int32
	plan := NewPlan(func() []PlanItem {
		atomic.AddInt32(&builds, 1)
		return []PlanItem{{Object: attachment("A1", 1), Path: "/a"}}
	})

	assert.Equal(t, 1, plan.Len())
	plan.Items()
	plan.Items()
	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
}

func TestRunPool_ProcessesAll(t *testing.T) {
	var sum int64
	err := runPool(context.Background(), 4, []int{1, 2, 3, 4, 5}, func(_ int, n int) {
		atomic.AddInt64(&sum, int64(n))
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), sum)
}

func TestRunPool_StopsFeedingAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled int32
	err := runPool(ctx, 1, []int{1, 2, 3, 4, 5, 6, 7, 8}, func(_ int, n int) {
		atomic.AddInt32(&handled, 1)
		if n == 1 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&handled))
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	unlockB()
	unlockA()

	assert.Empty(t, k.locks)
}
