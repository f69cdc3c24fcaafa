// Package similarity implements the fused similarity score used by the
// matching engine. Cosine similarity carries most of the weight because it is
// scale-invariant and the most discriminative metric for this embedding
// family; euclidean and correlation corroborate it against embeddings that
// are directionally similar but magnitude-anomalous.
package similarity

import (
	"math"
)

// Fusion weights. Must sum to 1.
const (
	WeightCosine    = 0.6
	WeightEuclidean = 0.3
	WeightPearson   = 0.1
)

// Normalize returns a unit-length copy of the embedding.
// A zero vector is returned unchanged.
func Normalize(embedding []float64) []float64 {
	if len(embedding) == 0 {
		return embedding
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}

	if norm == 0 {
		return embedding
	}

	norm = math.Sqrt(norm)
	normalized := make([]float64, len(embedding))
	for i, v := range embedding {
		normalized[i] = v / norm
	}

	return normalized
}

// Cosine calculates the cosine similarity between two embedding vectors.
// Returns a value between -1.0 (opposite) and 1.0 (identical).
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanSim maps euclidean distance between two unit vectors into a
// similarity: max(0, 1 - dist/sqrt(2)). Identical vectors score 1.0.
func EuclideanSim(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}

	sim := 1 - math.Sqrt(sum)/math.Sqrt2
	if sim < 0 {
		return 0
	}
	return sim
}

// Pearson computes the Pearson correlation coefficient between two vectors.
// Returns 0 when either vector has no variance.
func Pearson(a, b []float64) float64 {
	n := len(a)
	if n != len(b) || n == 0 {
		return 0.0
	}

	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0.0
	}

	return cov / (math.Sqrt(varA) * math.Sqrt(varB))
}

// Fuse normalizes both vectors to unit length and combines the three metrics
// into a single score clamped to [0,1]. Negative correlation contributes
// nothing.
func Fuse(a, b []float64) float64 {
	na := Normalize(a)
	nb := Normalize(b)

	pearson := Pearson(na, nb)
	if pearson < 0 {
		pearson = 0
	}

	score := WeightCosine*Cosine(na, nb) +
		WeightEuclidean*EuclideanSim(na, nb) +
		WeightPearson*pearson

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
