package services

import "sort"

// Neighbor is one similarity-search hit: the candidate's position in the
// searched set and its squared L2 distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// NearestNeighbors runs an exact brute-force nearest-neighbor search using
// squared Euclidean distance. It returns the min(k, len(candidates)) closest
// candidates in ascending distance order; equal distances are broken by
// lower candidate position, so the order is fully deterministic.
//
// An empty candidate set returns an empty result, mirroring the filter's
// "no match" outcome, so filter-then-search composes without special cases.
// A candidate whose length differs from the query's fails the whole call
// with a DimensionMismatchError.
//
// This recomputes distances per query over a dynamically filtered subset,
// which is deliberate: candidate sets after metadata filtering are tens to
// low hundreds of chunks, well inside brute-force territory, and exactness
// is part of the contract.
func NearestNeighbors(query []float32, candidates [][]float32, k int) ([]Neighbor, error) {
	if len(candidates) == 0 {
		return []Neighbor{}, nil
	}

	neighbors := make([]Neighbor, 0, len(candidates))
	for i, candidate := range candidates {
		if len(candidate) != len(query) {
			return nil, &DimensionMismatchError{
				Want:     len(query),
				Got:      len(candidate),
				Position: i,
			}
		}

		var dist float64
		for j := range query {
			d := float64(query[j]) - float64(candidate[j])
			dist += d * d
		}

		neighbors = append(neighbors, Neighbor{Position: i, Distance: dist})
	}

	sort.SliceStable(neighbors, func(a, b int) bool {
		return neighbors[a].Distance < neighbors[b].Distance
	})

	if k < 0 {
		k = 0
	}
	if k > len(neighbors) {
		k = len(neighbors)
	}
	return neighbors[:k], nil
}
