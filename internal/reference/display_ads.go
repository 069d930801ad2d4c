package reference

import (
	"io"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/clicks"
)

// DisplayAds maps each display to the ads competing in it, in ascending ad
// id order without duplicates.
type DisplayAds struct {
	ads map[int64][]int64
}

// Ads returns the ads of display, or nil when the display is unknown. The
// slice must not be modified.
func (d *DisplayAds) Ads(display int64) []int64 {
	return d.ads[display]
}

// Len returns the number of displays.
func (d *DisplayAds) Len() int {
	return len(d.ads)
}

// DisplayAdsBuilder accumulates (display, ad) pairs. Build it from the
// training and scoring candidate files together so both are encoded against
// the same competitor sets.
type DisplayAdsBuilder struct {
	ads map[int64][]int64
}

func NewDisplayAdsBuilder() *DisplayAdsBuilder {
	return &DisplayAdsBuilder{ads: make(map[int64][]int64)}
}

// Add records that ad was shown in display.
func (b *DisplayAdsBuilder) Add(display, ad int64) {
	b.ads[display] = append(b.ads[display], ad)
}

// AddFile records every row of a candidate file.
func (b *DisplayAdsBuilder) AddFile(path string) (int, error) {
	r, err := clicks.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	rows := 0
	for {
		row, err := r.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		b.Add(row.DisplayID, row.AdID)
		rows++
	}
}

// Build sorts and de-duplicates every ad list. The builder must not be used
// afterwards.
func (b *DisplayAdsBuilder) Build() *DisplayAds {
	for display, ads := range b.ads {
		slices.Sort(ads)
		b.ads[display] = slices.Compact(ads)
	}
	d := &DisplayAds{ads: b.ads}
	b.ads = nil
	return d
}

// BuildDisplayAds reads the given candidate files into a fresh DisplayAds.
func BuildDisplayAds(paths ...string) (*DisplayAds, error) {
	b := NewDisplayAdsBuilder()
	for _, path := range paths {
		if _, err := b.AddFile(path); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}
