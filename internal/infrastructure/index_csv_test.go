package infrastructure

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/archivist-go/internal/domain"
)

func TestCSVDownloadedIndex_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	idx := NewCSVDownloadedIndex(fs, "/data")

	exists, err := idx.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	idx.Put(domain.DownloadedRecord{ObjectID: "068A", ParentID: "069A", Path: "/data/Account/files/x, y.pdf"})
	idx.Put(domain.DownloadedRecord{ObjectID: "068B", ParentID: "069B", Path: "/data/Account/files/b.pdf"})
	require.NoError(t, idx.Save())

	raw, err := afero.ReadFile(fs, "/data/downloaded_versions.csv")
	require.NoError(t, err)
	assert.Equal(t,
		"Id,ContentDocumentId,Path on disk\n"+
			"068A,069A,\"/data/Account/files/x, y.pdf\"\n"+
			"068B,069B,/data/Account/files/b.pdf\n",
		string(raw))

	loaded := NewCSVDownloadedIndex(fs, "/data")
	require.NoError(t, loaded.Load())
	assert.Equal(t, 2, loaded.Len())
	r, ok := loaded.Get("068A")
	require.True(t, ok)
	assert.Equal(t, "/data/Account/files/x, y.pdf", r.Path)
	assert.Equal(t, "069A", r.ParentID)
}

func TestCSVDownloadedIndex_LastWriteWins(t *testing.T) {
	idx := NewCSVDownloadedIndex(afero.NewMemMapFs(), "/data")
	idx.Put(domain.DownloadedRecord{ObjectID: "A1", Path: "/one"})
	idx.Put(domain.DownloadedRecord{ObjectID: "A1", Path: "/two"})

	assert.Equal(t, 1, idx.Len())
	r, _ := idx.Get("A1")
	assert.Equal(t, "/two", r.Path)
}

func TestCSVDownloadedIndex_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/downloaded_versions.csv",
		[]byte("Id,ContentDocumentId,Path on disk\nA1,P1,/a\nA2\n"), 0o644))

	err := NewCSVDownloadedIndex(fs, "/data").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)

	var corrupt *domain.IndexCorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, 3, corrupt.Line)
}

func TestCSVDownloadedIndex_WrongHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/downloaded_versions.csv", []byte("foo,bar\n"), 0o644))

	err := NewCSVDownloadedIndex(fs, "/data").Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestCSVDownloadedIndex_SaveKeepsOldFileOnFailure(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/data/downloaded_versions.csv",
		[]byte("Id,ContentDocumentId,Path on disk\nA1,P1,/a\n"), 0o644))

	idx := NewCSVDownloadedIndex(afero.NewReadOnlyFs(base), "/data")
	require.NoError(t, idx.Load())
	idx.Put(domain.DownloadedRecord{ObjectID: "A2", Path: "/b"})
	assert.Error(t, idx.Save())

	raw, err := afero.ReadFile(base, "/data/downloaded_versions.csv")
	require.NoError(t, err)
	assert.Equal(t, "Id,ContentDocumentId,Path on disk\nA1,P1,/a\n", string(raw))
}

func TestCSVValidatedIndex_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	idx := NewCSVValidatedIndex(fs, "/data")
	size := int64(4)
	idx.Put(domain.ValidatedRecord{Path: "/d/v.pdf", Checksum: "abc"})
	idx.Put(domain.ValidatedRecord{Path: "/d/a.txt", Size: &size})
	require.NoError(t, idx.Save())

	raw, err := afero.ReadFile(fs, "/data/validated_versions.csv")
	require.NoError(t, err)
	assert.Equal(t, "Checksum,Content Size,Path\nabc,,/d/v.pdf\n,4,/d/a.txt\n", string(raw))

	loaded := NewCSVValidatedIndex(fs, "/data")
	require.NoError(t, loaded.Load())
	a, ok := loaded.Get("/d/a.txt")
	require.True(t, ok)
	require.NotNil(t, a.Size)
	assert.Equal(t, int64(4), *a.Size)
	assert.Empty(t, a.Checksum)
}

func TestCSVValidatedIndex_LegacyRows(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/validated_versions.csv",
		[]byte("Checksum,Path\nabc,/d/v.pdf\n"), 0o644))

	idx := NewCSVValidatedIndex(fs, "/data")
	require.NoError(t, idx.Load())
	r, ok := idx.Get("/d/v.pdf")
	require.True(t, ok)
	assert.Equal(t, "abc", r.Checksum)
	assert.Nil(t, r.Size)
}

func TestCSVValidatedIndex_RejectsBothValues(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/validated_versions.csv",
		[]byte("Checksum,Content Size,Path\nabc,4,/d/v.pdf\n"), 0o644))

	err := NewCSVValidatedIndex(fs, "/data").Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestCSVValidatedIndex_RejectsBadSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/validated_versions.csv",
		[]byte("Checksum,Content Size,Path\n,four,/d/a.txt\n"), 0o644))

	err := NewCSVValidatedIndex(fs, "/data").Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}
