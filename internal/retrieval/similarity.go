package retrieval

// SimilarityFromDistance converts a cosine distance to a similarity in
// [0, 1], where 1 means identical and 0 maximally dissimilar. Cosine distance
// over non-degenerate vectors is bounded in [0, 2]; values outside that range
// are clamped, never rejected.
func SimilarityFromDistance(distance float64) float64 {
	switch {
	case distance < 0:
		return 1
	case distance >= 2:
		return 0
	}
	if sim := 1 - distance; sim > 0 {
		return sim
	}
	return 0
}
