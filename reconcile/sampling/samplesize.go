package sampling

import "math"

const (
	DefaultConfidence = 0.95
	DefaultMargin     = 0.05
	// smallPopulation datasets are compared in full.
	smallPopulation = 1000
)

var zScores = map[float64]float64{
	0.90: 1.645,
	0.95: 1.96,
	0.99: 2.576,
}

func zScore(confidence float64) float64 {
	if z, ok := zScores[confidence]; ok {
		return z
	}
	return math.Sqrt2 * math.Erfinv(confidence)
}

// SampleSize returns the number of rows to sample from a population of total
// rows for the given confidence level and margin of error, assuming the most
// conservative proportion of 0.5 and applying the finite population
// correction. Populations of up to 1000 rows are sampled in full. Invalid
// confidence or margin values fall back to the defaults.
func SampleSize(total int, confidence, margin float64) int {
	if total <= 0 {
		return 0
	}
	if total <= smallPopulation {
		return total
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = DefaultConfidence
	}
	if margin <= 0 || margin >= 1 {
		margin = DefaultMargin
	}
	z := zScore(confidence)
	n0 := z * z * 0.25 / (margin * margin)
	n := n0 / (1 + (n0-1)/float64(total))
	size := int(math.Ceil(n))
	if size > total {
		return total
	}
	return size
}
