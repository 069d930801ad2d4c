// Package evaluator scores submissions against held-out clicks with mean
// average precision at K.
package evaluator

import (
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/clicks"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
)

const stage = "evaluator"

// DefaultK is the cutoff used by the competition.
const DefaultK = 12

// Report is the outcome of one evaluation.
type Report struct {
	MAP      float64 `json:"map_at_k"`
	K        int     `json:"k"`
	Displays int     `json:"displays"`
	Rows     int     `json:"rows"`
}

// AveragePrecision computes AP@k of predicted against actual. Only the first
// k predictions count and repeated predictions score once. An empty actual
// list gives 0.
func AveragePrecision(actual, predicted []int64, k int) float64 {
	if len(actual) == 0 || k <= 0 {
		return 0
	}
	if len(predicted) > k {
		predicted = predicted[:k]
	}
	relevant := make(map[int64]struct{}, len(actual))
	for _, a := range actual {
		relevant[a] = struct{}{}
	}
	seen := make(map[int64]struct{}, len(predicted))
	var score float64
	hits := 0
	for i, p := range predicted {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if _, ok := relevant[p]; ok {
			hits++
			score += float64(hits) / float64(i+1)
		}
	}
	return score / float64(min(len(actual), k))
}

// MeanAveragePrecision averages AP@k over paired lists. Both slices must
// have the same length.
func MeanAveragePrecision(actual, predicted [][]int64, k int) (float64, error) {
	if len(actual) != len(predicted) {
		return 0, apperrors.Newf(apperrors.ErrRowCountMismatch, stage,
			"%d actual lists but %d predicted lists", len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return 0, nil
	}
	var sum float64
	for i := range actual {
		sum += AveragePrecision(actual[i], predicted[i], k)
	}
	return sum / float64(len(actual)), nil
}

// Round rounds v to places decimals, taking exact halves to the even digit.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return r
}

// Evaluate builds the ground truth from labelled rows (the clicked ad of each
// display) and scores rankings against it. Every display in rankings is
// counted, including ones without a click.
func Evaluate(rows []clicks.Row, rankings []ranker.Ranking, k, precision int) (Report, error) {
	truth := make(map[int64][]int64)
	for i, row := range rows {
		if !row.HasLabel {
			return Report{}, apperrors.Newf(apperrors.ErrInvalidInput, stage,
				"row %d (display %d) has no clicked label", i+1, row.DisplayID)
		}
		if row.Clicked == 1 {
			truth[row.DisplayID] = append(truth[row.DisplayID], row.AdID)
		}
	}

	actual := make([][]int64, len(rankings))
	predicted := make([][]int64, len(rankings))
	for i, r := range rankings {
		actual[i] = truth[r.DisplayID]
		predicted[i] = r.AdIDs
	}
	m, err := MeanAveragePrecision(actual, predicted, k)
	if err != nil {
		return Report{}, err
	}
	return Report{
		MAP:      Round(m, precision),
		K:        k,
		Displays: len(rankings),
		Rows:     len(rows),
	}, nil
}
