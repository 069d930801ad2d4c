// Package flatfile reads and writes the comma-delimited flat files the
// pipeline exchanges with upstream stages and with the external scorer.
// Files whose name ends in ".gz" are transparently (de)compressed. Readers
// track line numbers so parse failures point at the offending record, and
// writers publish their output atomically.
package flatfile

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
)

const readBufferSize = 1 << 20

// Option configures a Reader.
type Option func(*Reader)

// WithoutHeader disables skipping of the first line.
func WithoutHeader() Option {
	return func(r *Reader) { r.skipHeader = false }
}

// WithComma sets the field delimiter (default ',').
func WithComma(c rune) Option {
	return func(r *Reader) { r.comma = c }
}

// Reader streams records from a delimited file.
type Reader struct {
	path       string
	file       *os.File
	gz         *gzip.Reader
	csv        *csv.Reader
	skipHeader bool
	comma      rune
	started    bool
	line       int
}

// Open opens path for reading. A missing file yields ErrFileNotFound.
func Open(path string, opts ...Option) (*Reader, error) {
	r := &Reader{path: path, skipHeader: true, comma: ','}
	for _, opt := range opts {
		opt(r)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Newf(apperrors.ErrFileNotFound, "", "%s", path)
		}
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	r.file = f
	var src io.Reader = bufio.NewReaderSize(f, readBufferSize)
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(src)
		if err != nil {
			f.Close()
			return nil, apperrors.Newf(apperrors.ErrParse, "", "%s: not a gzip stream: %v", path, err)
		}
		r.gz = gz
		src = gz
	}
	r.csv = csv.NewReader(src)
	r.csv.Comma = r.comma
	r.csv.FieldsPerRecord = -1
	r.csv.ReuseRecord = true
	return r, nil
}

// Next returns the next record, or io.EOF after the last one. The returned
// slice is reused by the following call.
func (r *Reader) Next() ([]string, error) {
	if !r.started {
		r.started = true
		if r.skipHeader {
			if _, err := r.read(); err != nil {
				return nil, err
			}
		}
	}
	return r.read()
}

func (r *Reader) read() ([]string, error) {
	rec, err := r.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrParse, "", "%s: %v", r.path, err)
	}
	r.line, _ = r.csv.FieldPos(0)
	return rec, nil
}

// Path returns the file being read.
func (r *Reader) Path() string {
	return r.path
}

// Line returns the 1-based line number of the last record returned by Next.
func (r *Reader) Line() int {
	return r.line
}

// Field returns column col of rec, failing with ErrParse when the record is
// too short.
func (r *Reader) Field(rec []string, col int) (string, error) {
	if col >= len(rec) {
		return "", r.parseError(col, "missing column (record has %d)", len(rec))
	}
	return rec[col], nil
}

// Int parses column col of rec as a base-10 int64.
func (r *Reader) Int(rec []string, col int) (int64, error) {
	s, err := r.Field(rec, col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, r.parseError(col, "%q is not an integer", s)
	}
	return v, nil
}

// Float parses column col of rec as a float64.
func (r *Reader) Float(rec []string, col int) (float64, error) {
	s, err := r.Field(rec, col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, r.parseError(col, "%q is not a number", s)
	}
	return v, nil
}

func (r *Reader) parseError(col int, format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrParse, "", "%s:%d column %d: %s",
		r.path, r.line, col, fmt.Sprintf(format, args...))
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}
