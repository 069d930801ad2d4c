package reference

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/flatfile"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/tracing"
)

const stage = "reference-loader"

type tableSpec struct {
	name string
	path func(config.Paths) string
	load func(path string, t *Tables) (int, error)
}

var tableSpecs = []tableSpec{
	{"promoted_content", func(p config.Paths) string { return p.PromotedContent }, LoadPromotedContent},
	{"events", func(p config.Paths) string { return p.Events }, LoadEvents},
	{"documents_categories", func(p config.Paths) string { return p.DocumentsCategories }, LoadDocumentsCategories},
	{"documents_meta", func(p config.Paths) string { return p.DocumentsMeta }, LoadDocumentsMeta},
	{"documents_topics", func(p config.Paths) string { return p.DocumentsTopics }, LoadDocumentsTopics},
	{"documents_entities", func(p config.Paths) string { return p.DocumentsEntities }, LoadDocumentsEntities},
	{"leak", func(p config.Paths) string { return p.Leak }, LoadLeak},
	{"ad_freqs", func(p config.Paths) string { return p.AdFreqs }, LoadAdFreqs},
	{"num_ads_per_display", func(p config.Paths) string { return p.NumAdsPerDisplay }, LoadNumAdsPerDisplay},
}

// Loader reads every reference table for a partition.
type Loader struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLoader(m *metrics.Metrics) *Loader {
	return &Loader{
		metrics: m,
		logger:  slog.Default().With("component", stage),
	}
}

// LoadAll loads every table in paths. The first failure aborts the load.
func (l *Loader) LoadAll(ctx context.Context, paths config.Paths) (*Tables, error) {
	t := NewTables()
	for _, spec := range tableSpecs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := spec.path(paths)
		err := tracing.Step(ctx, "load "+spec.name, func(ctx context.Context, span *tracing.Span) error {
			start := time.Now()
			l.logger.Info("reading table", "table", spec.name, "path", path)
			rows, err := spec.load(path, t)
			if err != nil {
				return err
			}
			span.SetAttr("rows", rows)
			l.metrics.ReferenceRowsLoaded.WithLabelValues(spec.name).Add(float64(rows))
			l.metrics.ObserveStage("load_"+spec.name, start)
			l.logger.Info("table loaded",
				"table", spec.name,
				"rows", rows,
				"seconds", time.Since(start).Round(10*time.Millisecond).Seconds(),
			)
			return nil
		})
		if err != nil {
			return nil, apperrors.WithStage(err, stage)
		}
	}
	l.logger.Info("reference tables ready", t.Summary()...)
	return t, nil
}

// scan calls fn for every record of path after the header and returns the
// number of records read.
func scan(path string, fn func(r *flatfile.Reader, rec []string) error) (int, error) {
	r, err := flatfile.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	rows := 0
	for {
		rec, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if err := fn(r, rec); err != nil {
			return rows, err
		}
		rows++
	}
}

// LoadPromotedContent reads ad_id,document_id,campaign_id,advertiser_id.
func LoadPromotedContent(path string, t *Tables) (int, error) {
	return scan(path, func(r *flatfile.Reader, rec []string) error {
		var (
			pc   PromotedContent
			adID int64
			err  error
		)
		if adID, err = r.Int(rec, 0); err != nil {
			return err
		}
		if pc.DocumentID, err = r.Int(rec, 1); err != nil {
			return err
		}
		if pc.CampaignID, err = r.Int(rec, 2); err != nil {
			return err
		}
		if pc.AdvertiserID, err = r.Int(rec, 3); err != nil {
			return err
		}
		t.PromotedContent[adID] = pc
		return nil
	})
}

// LoadEvents reads display_id,uuid,document_id,timestamp,platform,geo_location.
// Only the country part (first two characters) of the location is kept.
func LoadEvents(path string, t *Tables) (int, error) {
	return scan(path, func(r *flatfile.Reader, rec []string) error {
		var (
			ev        Event
			displayID int64
			err       error
		)
		if displayID, err = r.Int(rec, 0); err != nil {
			return err
		}
		if ev.UUID, err = r.Field(rec, 1); err != nil {
			return err
		}
		if ev.DocumentID, err = r.Int(rec, 2); err != nil {
			return err
		}
		if ev.Timestamp, err = r.Int(rec, 3); err != nil {
			return err
		}
		if ev.Platform, err = r.Field(rec, 4); err != nil {
			return err
		}
		if len(rec) > 5 {
			geo := rec[5]
			if len(geo) > 2 {
				geo = geo[:2]
			}
			ev.Country = geo
		}
		t.Events[displayID] = ev
		return nil
	})
}

// loadWeighted appends document_id,attribute_id,confidence rows to dst,
// keeping every pair of a repeated document in file order.
func loadWeighted(path string, dst map[int64]*WeightedList) (int, error) {
	return scan(path, func(r *flatfile.Reader, rec []string) error {
		docID, err := r.Int(rec, 0)
		if err != nil {
			return err
		}
		id, err := r.Int(rec, 1)
		if err != nil {
			return err
		}
		weight, err := r.Float(rec, 2)
		if err != nil {
			return err
		}
		list, ok := dst[docID]
		if !ok {
			list = &WeightedList{}
			dst[docID] = list
		}
		list.add(id, weight)
		return nil
	})
}

// LoadDocumentsCategories reads document_id,category_id,confidence_level.
func LoadDocumentsCategories(path string, t *Tables) (int, error) {
	return loadWeighted(path, t.Categories)
}

// LoadDocumentsTopics reads document_id,topic_id,confidence_level.
func LoadDocumentsTopics(path string, t *Tables) (int, error) {
	return loadWeighted(path, t.Topics)
}

// LoadDocumentsEntities reads document_id,entity_id,confidence_level where
// entity ids have already been mapped to integers upstream.
func LoadDocumentsEntities(path string, t *Tables) (int, error) {
	return loadWeighted(path, t.Entities)
}

// LoadDocumentsMeta reads document_id,source_id,publisher_id. Empty ids are
// folded into the sentinel 0 so missingness becomes its own category.
func LoadDocumentsMeta(path string, t *Tables) (int, error) {
	return scan(path, func(r *flatfile.Reader, rec []string) error {
		docID, err := r.Int(rec, 0)
		if err != nil {
			return err
		}
		var meta DocumentMeta
		if meta.SourceID, err = intOrZero(r, rec, 1); err != nil {
			return err
		}
		if meta.PublisherID, err = intOrZero(r, rec, 2); err != nil {
			return err
		}
		t.Meta[docID] = meta
		return nil
	})
}

func intOrZero(r *flatfile.Reader, rec []string, col int) (int64, error) {
	s, err := r.Field(rec, col)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return r.Int(rec, col)
}

// LoadLeak reads document_id,"uuid uuid ..." rows.
func LoadLeak(path string, t *Tables) (int, error) {
	return scan(path, func(r *flatfile.Reader, rec []string) error {
		docID, err := r.Int(rec, 0)
		if err != nil {
			return err
		}
		uuids, err := r.Field(rec, 1)
		if err != nil {
			return err
		}
		fields := strings.Fields(uuids)
		set := make(LeakSet, len(fields))
		for _, u := range fields {
			set[u] = struct{}{}
		}
		t.Leak[docID] = set
		return nil
	})
}

func loadCounts(path string, dst map[int64]int64) (int, error) {
	return scan(path, func(r *flatfile.Reader, rec []string) error {
		id, err := r.Int(rec, 0)
		if err != nil {
			return err
		}
		n, err := r.Int(rec, 1)
		if err != nil {
			return err
		}
		dst[id] = n
		return nil
	})
}

// LoadAdFreqs reads ad_id,count.
func LoadAdFreqs(path string, t *Tables) (int, error) {
	return loadCounts(path, t.AdFreqs)
}

// LoadNumAdsPerDisplay reads display_id,count.
func LoadNumAdsPerDisplay(path string, t *Tables) (int, error) {
	return loadCounts(path, t.NumAdsPerDisplay)
}
