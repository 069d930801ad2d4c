// Package clicks reads click-candidate files: one (display, ad) pair per row,
// with a clicked label on training rows.
package clicks

import (
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/flatfile"
)

// Row is one candidate ad shown in one display.
type Row struct {
	DisplayID int64
	AdID      int64
	Clicked   int
	HasLabel  bool
}

// Reader streams candidate rows from a gzip CSV with a header line.
type Reader struct {
	ff *flatfile.Reader
}

func Open(path string) (*Reader, error) {
	ff, err := flatfile.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{ff: ff}, nil
}

// Next returns the next row or io.EOF.
func (r *Reader) Next() (Row, error) {
	rec, err := r.ff.Next()
	if err != nil {
		return Row{}, err
	}
	var row Row
	if row.DisplayID, err = r.ff.Int(rec, 0); err != nil {
		return Row{}, err
	}
	if row.AdID, err = r.ff.Int(rec, 1); err != nil {
		return Row{}, err
	}
	if len(rec) > 2 {
		clicked, err := r.ff.Int(rec, 2)
		if err != nil {
			return Row{}, err
		}
		if clicked != 0 && clicked != 1 {
			return Row{}, apperrors.Newf(apperrors.ErrParse, "", "%s:%d clicked must be 0 or 1, got %d",
				r.ff.Path(), r.ff.Line(), clicked)
		}
		row.Clicked = int(clicked)
		row.HasLabel = true
	}
	return row, nil
}

// Line returns the file line of the last row returned.
func (r *Reader) Line() int {
	return r.ff.Line()
}

func (r *Reader) Path() string {
	return r.ff.Path()
}

func (r *Reader) Close() error {
	return r.ff.Close()
}

// ReadAll loads every row of path in file order.
func ReadAll(path string) ([]Row, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var rows []Row
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
