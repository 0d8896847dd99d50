package fsutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestWriteAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()

	n, err := WriteAtomic(fs, "/a/b/c.txt", strings.NewReader("hello world"), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)

	data, err := afero.ReadFile(fs, "/a/b/c.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	ok, err := Exists(fs, "/a/b/c.txt"+PartSuffix)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteAtomic_FailureLeavesNoFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := WriteAtomic(fs, "/x/y.bin", failingReader{}, 1024)
	require.Error(t, err)

	for _, p := range []string{"/x/y.bin", "/x/y.bin" + PartSuffix} {
		ok, err := Exists(fs, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
}

func TestCopyAtomic(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/f1.txt", []byte("test"), 0o644))

	n, err := CopyAtomic(fs, "/src/f1.txt", "/dst/deep/f2.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	data, err := afero.ReadFile(fs, "/dst/deep/f2.txt")
	require.NoError(t, err)
	assert.Equal(t, "test", string(data))
}

func TestExists_Directory(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dir", 0o755))

	ok, err := Exists(fs, "/dir")
	require.NoError(t, err)
	assert.False(t, ok)
}
