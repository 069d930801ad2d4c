// Package reference loads the denormalized lookup tables that the feature
// encoder joins against: promoted content, events, document categories,
// meta, topics and entities, the leak table and the precomputed ad counts.
// Every table is an in-memory map keyed by the integer id in the file's
// first column, built once per run and read-only afterwards.
package reference

// PromotedContent describes one ad.
type PromotedContent struct {
	DocumentID   int64
	CampaignID   int64
	AdvertiserID int64
}

// Event describes one display: who saw it, on which page and platform.
type Event struct {
	DocumentID int64
	UUID       string
	Platform   string
	Timestamp  int64
	Country    string
}

// DocumentMeta holds a document's source and publisher. Missing values are
// stored as 0.
type DocumentMeta struct {
	SourceID    int64
	PublisherID int64
}

// WeightedList holds the (id, weight) pairs attached to a document in file
// order, as two parallel slices.
type WeightedList struct {
	IDs     []int64
	Weights []float64
}

func (w *WeightedList) add(id int64, weight float64) {
	w.IDs = append(w.IDs, id)
	w.Weights = append(w.Weights, weight)
}

// Len returns the number of pairs.
func (w *WeightedList) Len() int {
	if w == nil {
		return 0
	}
	return len(w.IDs)
}

// LeakSet is the set of user ids known to have viewed a landing document.
type LeakSet map[string]struct{}

// Contains reports whether uuid is in the set.
func (s LeakSet) Contains(uuid string) bool {
	_, ok := s[uuid]
	return ok
}

// Tables bundles every reference mapping used by one run.
type Tables struct {
	PromotedContent  map[int64]PromotedContent
	Events           map[int64]Event
	Categories       map[int64]*WeightedList
	Meta             map[int64]DocumentMeta
	Topics           map[int64]*WeightedList
	Entities         map[int64]*WeightedList
	Leak             map[int64]LeakSet
	AdFreqs          map[int64]int64
	NumAdsPerDisplay map[int64]int64
}

// NewTables returns empty tables.
func NewTables() *Tables {
	return &Tables{
		PromotedContent:  make(map[int64]PromotedContent),
		Events:           make(map[int64]Event),
		Categories:       make(map[int64]*WeightedList),
		Meta:             make(map[int64]DocumentMeta),
		Topics:           make(map[int64]*WeightedList),
		Entities:         make(map[int64]*WeightedList),
		Leak:             make(map[int64]LeakSet),
		AdFreqs:          make(map[int64]int64),
		NumAdsPerDisplay: make(map[int64]int64),
	}
}

// Summary returns the size of every table, for logging.
func (t *Tables) Summary() []any {
	return []any{
		"promoted_content", len(t.PromotedContent),
		"events", len(t.Events),
		"documents_categories", len(t.Categories),
		"documents_meta", len(t.Meta),
		"documents_topics", len(t.Topics),
		"documents_entities", len(t.Entities),
		"leak", len(t.Leak),
		"ad_freqs", len(t.AdFreqs),
		"num_ads_per_display", len(t.NumAdsPerDisplay),
	}
}
