package encoder

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/clicks"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/ffm"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/flatfile"
)

const cancelCheckEvery = 1 << 16

// EncodeFile streams the candidate file in and writes one FFM line per row,
// in input order, to out. out only appears once every row is encoded.
func (e *Encoder) EncodeFile(ctx context.Context, in, out string, mode Mode) (int, error) {
	start := time.Now()
	logger := e.logger.With("mode", mode.String(), "input", in, "output", out)

	r, err := clicks.Open(in)
	if err != nil {
		return 0, apperrors.WithStage(err, stage)
	}
	defer r.Close()

	w, err := flatfile.Create(out)
	if err != nil {
		return 0, apperrors.WithStage(err, stage)
	}
	defer w.Abort()

	var (
		line ffm.Line
		buf  []byte
		rows int
	)
	defer e.flushFieldCounts()
	for {
		row, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, apperrors.WithStage(err, stage)
		}
		if err := e.EncodeRow(row, mode, &line); err != nil {
			return rows, atLine(err, r)
		}
		buf = line.AppendTo(buf[:0])
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			return rows, apperrors.WithStage(err, stage)
		}
		rows++

		if rows%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return rows, err
			}
		}
		if e.cfg.ProgressEvery > 0 && rows%e.cfg.ProgressEvery == 0 {
			logger.Info("lines encoded", "rows", rows)
		}
	}

	if err := w.Commit(); err != nil {
		return rows, apperrors.WithStage(err, stage)
	}
	e.metrics.CandidateRowsEncoded.WithLabelValues(mode.String()).Add(float64(rows))
	e.metrics.ObserveStage("encode_"+mode.String(), start)
	logger.Info("feature file written",
		"rows", rows,
		"seconds", time.Since(start).Round(10*time.Millisecond).Seconds(),
	)
	return rows, nil
}

// atLine adds the candidate file position to a row-level error.
func atLine(err error, r *clicks.Reader) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.Newf(appErr.Err, stage, "%s:%d: %s", r.Path(), r.Line(), appErr.Message)
	}
	return apperrors.WithStage(err, stage)
}
