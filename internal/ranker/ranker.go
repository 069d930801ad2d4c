// Package ranker joins externally produced scores back onto candidate rows
// and orders the ads of every display by descending score.
package ranker

import (
	"io"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/clicks"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/flatfile"
)

const stage = "ranker"

// ScoredCandidate is one candidate row with the score the model gave it.
type ScoredCandidate struct {
	DisplayID int64
	AdID      int64
	Score     float64
}

// Ranking is the ordered ad list of one display, best first.
type Ranking struct {
	DisplayID int64
	AdIDs     []int64
}

// ReadScores reads one score per line. Line i scores row i of the candidate
// file the scorer was fed.
func ReadScores(path string) ([]float64, error) {
	r, err := flatfile.Open(path, flatfile.WithoutHeader())
	if err != nil {
		return nil, apperrors.WithStage(err, stage)
	}
	defer r.Close()
	var scores []float64
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return scores, nil
		}
		if err != nil {
			return nil, apperrors.WithStage(err, stage)
		}
		v, err := r.Float(rec, 0)
		if err != nil {
			return nil, apperrors.WithStage(err, stage)
		}
		if math.IsNaN(v) {
			return nil, apperrors.Newf(apperrors.ErrParse, stage, "%s:%d: score is NaN", path, r.Line())
		}
		scores = append(scores, v)
	}
}

// Join pairs rows with scores by position. The counts must match exactly:
// a shorter or longer score file means every pairing after the gap is wrong.
func Join(rows []clicks.Row, scores []float64) ([]ScoredCandidate, error) {
	if len(rows) != len(scores) {
		return nil, apperrors.Newf(apperrors.ErrRowCountMismatch, stage,
			"%d candidate rows but %d scores", len(rows), len(scores))
	}
	out := make([]ScoredCandidate, len(rows))
	for i, row := range rows {
		out[i] = ScoredCandidate{DisplayID: row.DisplayID, AdID: row.AdID, Score: scores[i]}
	}
	return out, nil
}

// Rank groups candidates by display and orders each group by descending
// score. Ties keep their input order. Rankings come back in ascending
// display order.
func Rank(scored []ScoredCandidate) []Ranking {
	sorted := make([]ScoredCandidate, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DisplayID != sorted[j].DisplayID {
			return sorted[i].DisplayID < sorted[j].DisplayID
		}
		return sorted[i].Score > sorted[j].Score
	})

	var result []Ranking
	for i := 0; i < len(sorted); {
		j := i
		ads := make([]int64, 0, 12)
		for ; j < len(sorted) && sorted[j].DisplayID == sorted[i].DisplayID; j++ {
			ads = append(ads, sorted[j].AdID)
		}
		result = append(result, Ranking{DisplayID: sorted[i].DisplayID, AdIDs: ads})
		i = j
	}
	return result
}
