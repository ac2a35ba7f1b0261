package colmap

import (
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/argodata/argo/rowset"
)

const (
	DefaultFuzzyThreshold     = 0.8
	DefaultAutoApplyThreshold = 0.8
	highConfidence            = 0.9
)

// NamedColumn is a native column together with its normalized name.
type NamedColumn struct {
	rowset.Column
	Normalized string
}

// FuzzyMatch is a proposed pairing of a source column with a differently
// named warehouse column.
type FuzzyMatch struct {
	Source     NamedColumn
	Warehouse  NamedColumn
	Confidence float64
	// Applied is set if the pairing was used to build the mapping.
	Applied bool
}

// Matcher pairs columns left unmatched after normalization.
type Matcher interface {
	Match(source, warehouse []NamedColumn) []FuzzyMatch
}

// ExactMatch only aligns columns whose normalized names are identical.
type ExactMatch struct{}

func (ExactMatch) Match(source, warehouse []NamedColumn) []FuzzyMatch {
	return nil
}

// ThresholdedFuzzyMatch pairs columns by edit-distance similarity of their
// normalized names. Pairs scoring at least Threshold are proposed; proposals
// scoring at least AutoApplyThreshold with compatible types are applied.
type ThresholdedFuzzyMatch struct {
	Threshold          float64
	AutoApplyThreshold float64
}

func DefaultFuzzyMatch() ThresholdedFuzzyMatch {
	return ThresholdedFuzzyMatch{
		Threshold:          DefaultFuzzyThreshold,
		AutoApplyThreshold: DefaultAutoApplyThreshold,
	}
}

// Similarity returns 1 minus the edit distance of a and b relative to the
// longer of the two.
func Similarity(a, b string) float64 {
	l := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > l {
		l = lb
	}
	if l == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(l)
}

func (f ThresholdedFuzzyMatch) Match(source, warehouse []NamedColumn) []FuzzyMatch {
	var candidates []FuzzyMatch
	for _, s := range source {
		for _, w := range warehouse {
			sim := Similarity(s.Normalized, w.Normalized)
			if sim < f.Threshold {
				continue
			}
			candidates = append(candidates, FuzzyMatch{Source: s, Warehouse: w, Confidence: sim})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Source.Normalized != b.Source.Normalized {
			return a.Source.Normalized < b.Source.Normalized
		}
		return a.Warehouse.Normalized < b.Warehouse.Normalized
	})

	usedSource := make(map[string]struct{})
	usedWarehouse := make(map[string]struct{})
	var ret []FuzzyMatch
	for _, c := range candidates {
		if _, ok := usedSource[c.Source.Normalized]; ok {
			continue
		}
		if _, ok := usedWarehouse[c.Warehouse.Normalized]; ok {
			continue
		}
		usedSource[c.Source.Normalized] = struct{}{}
		usedWarehouse[c.Warehouse.Normalized] = struct{}{}
		c.Applied = c.Confidence >= f.AutoApplyThreshold &&
			rowset.TypesCompatible(c.Source.Type, c.Warehouse.Type)
		ret = append(ret, c)
	}
	return ret
}

// MappingStats summarises fuzzy matching over the columns normalization
// could not align.
type MappingStats struct {
	Total          int     `json:"total"`
	Successful     int     `json:"successful"`
	HighConfidence int     `json:"high_confidence"`
	SuccessRate    float64 `json:"success_rate"`
}

func computeStats(unmatched int, matches []FuzzyMatch) MappingStats {
	s := MappingStats{Total: unmatched}
	for _, m := range matches {
		if !m.Applied {
			continue
		}
		s.Successful++
		if m.Confidence >= highConfidence {
			s.HighConfidence++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total)
	}
	return s
}
