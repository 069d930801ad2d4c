package flatfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const writeBufferSize = 1 << 20

// Writer writes to a temporary file next to the destination and renames it
// into place on Commit, so readers never observe a partially written file.
type Writer struct {
	path string
	tmp  string
	file *os.File
	buf  *bufio.Writer
	gz   *gzip.Writer
	out  io.Writer
	done bool
}

// Create prepares an atomic write to path, creating parent directories.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", path, err)
		}
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("creating temp file %s: %w", tmp, err)
	}
	w := &Writer{path: path, tmp: tmp, file: f}
	w.buf = bufio.NewWriterSize(f, writeBufferSize)
	w.out = w.buf
	if strings.HasSuffix(path, ".gz") {
		w.gz = gzip.NewWriter(w.buf)
		w.out = w.gz
	}
	return w, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w *Writer) WriteString(s string) (int, error) {
	return io.WriteString(w.out, s)
}

// Path returns the final destination.
func (w *Writer) Path() string {
	return w.path
}

// Commit flushes, syncs and renames the temp file onto the destination.
func (w *Writer) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if w.gz != nil {
		if err := w.gz.Close(); err != nil {
			w.discard()
			return fmt.Errorf("closing gzip stream for %s: %w", w.path, err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("flushing %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		w.discard()
		return fmt.Errorf("syncing %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("closing %s: %w", w.tmp, err)
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		os.Remove(w.tmp)
		return fmt.Errorf("renaming %s: %w", w.tmp, err)
	}
	return nil
}

// Abort drops the temp file. It is a no-op after Commit, so it can be
// deferred right after Create.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	w.discard()
}

func (w *Writer) discard() {
	w.file.Close()
	os.Remove(w.tmp)
}
