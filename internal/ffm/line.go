// Package ffm encodes and decodes the field-aware sparse text format consumed
// by the factorization-machine binary:
//
//	label field:key:value field:key:value ...
//
// Fields are small integers grouping features by meaning, keys are
// non-negative integers and values are weights. A field may repeat within a
// line.
package ffm

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
)

// Field numbers of the click-candidate feature layout.
const (
	FieldLeak = iota
	FieldCampaign
	FieldAdvertiser
	FieldPlatform
	FieldTargetDocument
	FieldDocument
	FieldTargetCategories
	FieldDocumentCategories
	FieldDocumentSource
	FieldDisplayAds
	FieldTargetSource
	FieldCompetitorSources
	FieldCommonCategories

	NumFields
)

// Triple is one non-zero feature.
type Triple struct {
	Field int
	Key   int64
	Value float64
}

// Line is one training or scoring example.
type Line struct {
	Label   int
	Triples []Triple
}

// Add appends a triple.
func (l *Line) Add(field int, key int64, value float64) {
	l.Triples = append(l.Triples, Triple{Field: field, Key: key, Value: value})
}

// Reset empties the line, keeping its capacity.
func (l *Line) Reset(label int) {
	l.Label = label
	l.Triples = l.Triples[:0]
}

// AppendTo appends the text form of l, without a trailing newline, to b.
func (l *Line) AppendTo(b []byte) []byte {
	b = strconv.AppendInt(b, int64(l.Label), 10)
	for _, t := range l.Triples {
		b = append(b, ' ')
		b = strconv.AppendInt(b, int64(t.Field), 10)
		b = append(b, ':')
		b = strconv.AppendInt(b, t.Key, 10)
		b = append(b, ':')
		b = strconv.AppendFloat(b, t.Value, 'f', -1, 64)
	}
	return b
}

func (l *Line) String() string {
	return string(l.AppendTo(nil))
}

// Parse decodes one line of the sparse format.
func Parse(s string) (Line, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return Line{}, apperrors.New(apperrors.ErrParse, "", "empty line")
	}
	label, err := strconv.Atoi(parts[0])
	if err != nil {
		return Line{}, apperrors.Newf(apperrors.ErrParse, "", "invalid label %q", parts[0])
	}
	line := Line{Label: label, Triples: make([]Triple, 0, len(parts)-1)}
	for _, p := range parts[1:] {
		kv := strings.Split(p, ":")
		if len(kv) != 3 {
			return Line{}, apperrors.Newf(apperrors.ErrParse, "", "invalid triple %q", p)
		}
		field, err := strconv.Atoi(kv[0])
		if err != nil || field < 0 {
			return Line{}, apperrors.Newf(apperrors.ErrParse, "", "invalid field in %q", p)
		}
		key, err := strconv.ParseInt(kv[1], 10, 64)
		if err != nil || key < 0 {
			return Line{}, apperrors.Newf(apperrors.ErrParse, "", "invalid key in %q", p)
		}
		value, err := strconv.ParseFloat(kv[2], 64)
		if err != nil {
			return Line{}, apperrors.Newf(apperrors.ErrParse, "", "invalid value in %q", p)
		}
		line.Add(field, key, value)
	}
	return line, nil
}

// Round2 rounds v to two decimals. The exact binary value of v is rounded,
// with exact halves going to the even digit, so 0.125 gives 0.12 and 0.015
// (stored just below the half) gives 0.01.
func Round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// CategoricalKey returns s as a key when it is a non-negative integer and
// otherwise hashes it into [0, space).
func CategoricalKey(s string, space uint64) int64 {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil && v >= 0 {
		return v
	}
	return int64(xxhash.Sum64String(s) % space)
}
