// Package encoder turns click-candidate rows into FFM lines by joining each
// (display, ad) pair against the reference tables.
//
// Field layout:
//
//	 0  leak: the viewer already visited the ad's landing document
//	 1  campaign_id
//	 2  advertiser_id
//	 3  platform
//	 4  landing (target) document_id
//	 5  viewed document_id
//	 6  landing document categories above the confidence threshold
//	 7  viewed document categories above the confidence threshold
//	 8  viewed document source_id
//	 9  every ad of the display, weighted 1/len(display)
//	10  landing document source_id
//	11  landing document source_id of every competing ad
//	12  categories shared by the landing and viewed documents
//
// Multi-valued fields 9, 11 and 12 are emitted in ascending id order so the
// output is reproducible.
package encoder

import (
	"log/slog"
	"slices"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/clicks"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/ffm"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/reference"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
)

const stage = "feature-encoder"

// Mode selects between training rows (real label) and scoring rows
// (placeholder label 0).
type Mode int

const (
	ModeTrain Mode = iota
	ModeScore
)

func (m Mode) String() string {
	if m == ModeTrain {
		return "train"
	}
	return "score"
}

// Encoder joins candidate rows against reference tables. It keeps scratch
// buffers between rows and is not safe for concurrent use.
type Encoder struct {
	tables     *reference.Tables
	displayAds *reference.DisplayAds
	cfg        config.EncoderConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger

	fieldCounts [ffm.NumFields]int64
	targetCats  []int64
	docCats     []int64
}

func New(tables *reference.Tables, displayAds *reference.DisplayAds, cfg config.EncoderConfig, m *metrics.Metrics) *Encoder {
	return &Encoder{
		tables:     tables,
		displayAds: displayAds,
		cfg:        cfg,
		metrics:    m,
		logger:     slog.Default().With("component", stage),
	}
}

// EncodeRow resets line and fills it with the features of row. It fails
// with ErrKeyNotFound when the ad or display is missing from the reference
// tables.
func (e *Encoder) EncodeRow(row clicks.Row, mode Mode, line *ffm.Line) error {
	label := 0
	if mode == ModeTrain {
		if !row.HasLabel {
			return apperrors.Newf(apperrors.ErrInvalidInput, stage,
				"display %d ad %d: training row without clicked column", row.DisplayID, row.AdID)
		}
		label = row.Clicked
	}
	line.Reset(label)

	pc, ok := e.tables.PromotedContent[row.AdID]
	if !ok {
		return apperrors.Newf(apperrors.ErrKeyNotFound, stage, "ad_id %d not in promoted_content", row.AdID)
	}
	ev, ok := e.tables.Events[row.DisplayID]
	if !ok {
		return apperrors.Newf(apperrors.ErrKeyNotFound, stage, "display_id %d not in events", row.DisplayID)
	}
	targetDoc := pc.DocumentID
	doc := ev.DocumentID

	leak := 0.0
	if set, ok := e.tables.Leak[targetDoc]; ok && set.Contains(ev.UUID) {
		leak = 1
	}
	line.Add(ffm.FieldLeak, 1, leak)
	line.Add(ffm.FieldCampaign, pc.CampaignID, 1)
	line.Add(ffm.FieldAdvertiser, pc.AdvertiserID, 1)
	line.Add(ffm.FieldPlatform, ffm.CategoricalKey(ev.Platform, e.cfg.HashSpace), 1)
	line.Add(ffm.FieldTargetDocument, targetDoc, 1)
	line.Add(ffm.FieldDocument, doc, 1)

	targetCats := e.tables.Categories[targetDoc]
	docCats := e.tables.Categories[doc]
	e.addCategories(line, ffm.FieldTargetCategories, targetCats)
	e.addCategories(line, ffm.FieldDocumentCategories, docCats)

	if meta, ok := e.tables.Meta[doc]; ok {
		line.Add(ffm.FieldDocumentSource, meta.SourceID, 1)
	}

	ads := e.displayAds.Ads(row.DisplayID)
	if len(ads) > 0 {
		weight := ffm.Round2(1 / float64(len(ads)))
		for _, ad := range ads {
			line.Add(ffm.FieldDisplayAds, ad, weight)
		}
	}

	if meta, ok := e.tables.Meta[targetDoc]; ok {
		line.Add(ffm.FieldTargetSource, meta.SourceID, 1)
	}

	for _, ad := range ads {
		if ad == row.AdID {
			continue
		}
		other, ok := e.tables.PromotedContent[ad]
		if !ok {
			return apperrors.Newf(apperrors.ErrKeyNotFound, stage,
				"competing ad_id %d of display %d not in promoted_content", ad, row.DisplayID)
		}
		if meta, ok := e.tables.Meta[other.DocumentID]; ok {
			line.Add(ffm.FieldCompetitorSources, meta.SourceID, 1)
		}
	}

	if targetCats.Len() > 0 && docCats.Len() > 0 {
		for _, cat := range e.commonCategories(targetCats, docCats) {
			line.Add(ffm.FieldCommonCategories, cat, 1)
		}
	}

	for _, t := range line.Triples {
		e.fieldCounts[t.Field]++
	}
	return nil
}

// addCategories emits the pairs of list whose confidence is strictly above
// the threshold, in file order.
func (e *Encoder) addCategories(line *ffm.Line, field int, list *reference.WeightedList) {
	for i := 0; i < list.Len(); i++ {
		if w := list.Weights[i]; w > e.cfg.CategoryThreshold {
			line.Add(field, list.IDs[i], ffm.Round2(w))
		}
	}
}

// commonCategories returns the ascending, distinct category ids present in
// both lists regardless of confidence. The result aliases e.targetCats.
func (e *Encoder) commonCategories(a, b *reference.WeightedList) []int64 {
	e.targetCats = sortedDistinct(e.targetCats[:0], a.IDs)
	e.docCats = sortedDistinct(e.docCats[:0], b.IDs)
	out := e.targetCats[:0]
	i, j := 0, 0
	for i < len(e.targetCats) && j < len(e.docCats) {
		switch {
		case e.targetCats[i] < e.docCats[j]:
			i++
		case e.targetCats[i] > e.docCats[j]:
			j++
		default:
			out = append(out, e.targetCats[i])
			i++
			j++
		}
	}
	return out
}

func sortedDistinct(dst, ids []int64) []int64 {
	dst = append(dst, ids...)
	slices.Sort(dst)
	return slices.Compact(dst)
}

// flushFieldCounts moves the per-field triple counts into the metrics.
func (e *Encoder) flushFieldCounts() {
	for field, n := range e.fieldCounts {
		if n > 0 {
			e.metrics.FeatureTriples.WithLabelValues(strconv.Itoa(field)).Add(float64(n))
		}
		e.fieldCounts[field] = 0
	}
}
