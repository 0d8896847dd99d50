// Package fsutil holds crash-safe file writes over an afero file system.
//
// Every write goes to "<path>.part" first and is renamed into place only after
// the data was synced, so a reader never sees a half-written file at path.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// PartSuffix is appended to the destination while it is being written
const PartSuffix = ".part"

// Exists reports whether path exists and is a regular file
func Exists(fs afero.Fs, path string) (bool, error) {
	info, err := fs.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteAtomic streams r into path using a buffer of bufSize bytes and returns
// the number of bytes written. Parent directories are created as needed.
func WriteAtomic(fs afero.Fs, path string, r io.Reader, bufSize int) (int64, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}

	tmp := path + PartSuffix
	out, err := fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}

	if bufSize <= 0 {
		bufSize = 32 * 1024
	}
	n, copyErr := copyChunks(out, r, make([]byte, bufSize))
	syncErr := out.Sync()
	closeErr := out.Close()

	for _, err := range []error{copyErr, syncErr, closeErr} {
		if err != nil {
			_ = fs.Remove(tmp)
			return n, err
		}
	}

	// Atomic rename: tmp -> final
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return n, fmt.Errorf("rename tmp->final: %w", err)
	}
	return n, nil
}

// copyChunks writes r to w one buffer at a time, skipping empty reads
func copyChunks(w io.Writer, r io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
			if wn != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

// CopyAtomic copies src to dst through WriteAtomic
func CopyAtomic(fs afero.Fs, src, dst string) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	return WriteAtomic(fs, dst, in, 0)
}
