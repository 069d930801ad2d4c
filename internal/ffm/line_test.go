package ffm

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
)

func sortedTriples(ts []Triple) []Triple {
	out := append([]Triple(nil), ts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func TestLineString(t *testing.T) {
	var l Line
	l.Reset(1)
	l.Add(FieldLeak, 1, 0)
	l.Add(FieldCampaign, 42, 1)
	l.Add(FieldTargetCategories, 1702, 0.92)
	l.Add(FieldDisplayAds, 100, Round2(1.0/3))

	assert.Equal(t, "1 0:1:0 1:42:1 6:1702:0.92 9:100:0.33", l.String())
}

func TestRoundTrip(t *testing.T) {
	lines := []Line{
		{Label: 0},
		{Label: 1, Triples: []Triple{
			{FieldLeak, 1, 1},
			{FieldDisplayAds, 7, 0.25},
			{FieldDisplayAds, 7, 0.25},
			{FieldCommonCategories, 1403, 1},
			{FieldDocumentCategories, 2100, 0.07},
		}},
		{Label: 0, Triples: []Triple{{FieldCompetitorSources, 0, 1}, {FieldTargetSource, 9223372036854775807, 0.5}}},
	}
	for _, want := range lines {
		got, err := Parse(want.String())
		require.NoError(t, err)
		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, sortedTriples(want.Triples), sortedTriples(got.Triples))
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":          "   ",
		"bad label":      "x 1:2:1",
		"two parts":      "1 1:2",
		"bad field":      "1 a:2:1",
		"negative key":   "1 1:-2:1",
		"bad value":      "1 1:2:one",
		"negative field": "1 -1:2:1",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrParse))
		})
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.5, 0.5},
		{1.0 / 3, 0.33},
		{1.0 / 6, 0.17},
		{0.925001, 0.93},
		{1.0 / 8, 0.12},
		{0.625, 0.62},
		{0.375, 0.38},
		{0.015, 0.01},
		{1.0 / 12, 0.08},
		{1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestIntegralWeightsHaveNoFraction(t *testing.T) {
	var l Line
	l.Reset(0)
	l.Add(FieldDisplayAds, 100, Round2(1))
	l.Add(FieldTargetCategories, 1702, 1.0)
	assert.Equal(t, "0 9:100:1 6:1702:1", l.String())
}

func TestCategoricalKey(t *testing.T) {
	assert.Equal(t, int64(2), CategoricalKey("2", 1<<20))
	assert.Equal(t, int64(0), CategoricalKey("0", 1<<20))

	k := CategoricalKey(`\N`, 1<<20)
	assert.GreaterOrEqual(t, k, int64(0))
	assert.Less(t, k, int64(1<<20))
	assert.Equal(t, k, CategoricalKey(`\N`, 1<<20))

	neg := CategoricalKey("-5", 16)
	assert.GreaterOrEqual(t, neg, int64(0))
	assert.Less(t, neg, int64(16))
}
