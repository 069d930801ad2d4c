package ranker

import (
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/flatfile"
)

const submissionHeader = "display_id,ad_id\n"

// AppendSubmissionLine appends "display_id,ad ad ... \n" to b. Every ad is
// followed by a space, as the competition format tolerates.
func AppendSubmissionLine(b []byte, r Ranking) []byte {
	b = strconv.AppendInt(b, r.DisplayID, 10)
	b = append(b, ',')
	for _, ad := range r.AdIDs {
		b = strconv.AppendInt(b, ad, 10)
		b = append(b, ' ')
	}
	return append(b, '\n')
}

// WriteSubmission writes rankings to path. The file only appears once it is
// complete.
func WriteSubmission(path string, rankings []Ranking) error {
	w, err := flatfile.Create(path)
	if err != nil {
		return apperrors.WithStage(err, stage)
	}
	defer w.Abort()
	if _, err := w.WriteString(submissionHeader); err != nil {
		return apperrors.WithStage(err, stage)
	}
	var buf []byte
	for _, r := range rankings {
		buf = AppendSubmissionLine(buf[:0], r)
		if _, err := w.Write(buf); err != nil {
			return apperrors.WithStage(err, stage)
		}
	}
	return apperrors.WithStage(w.Commit(), stage)
}
