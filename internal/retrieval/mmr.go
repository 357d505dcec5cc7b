package retrieval

// DefaultPool bounds how many top candidates MMR considers.
const DefaultPool = 30

const duplicateEpsilon = 1e-9

// Select re-ranks candidates with maximal marginal relevance. It seeds with
// the best candidate, then repeatedly adds the one maximizing
//
//	λ·rel(i) − (1−λ)·max sim(i, j) over selected j
//
// where rel is the score scaled so the top candidate is 1, and sim is the
// cosine of chunk vectors. Only the top pool candidates with a positive score
// are considered. λ is clamped to [0,1]; λ=1 is plain top-k. Below λ=1 a
// chunk identical to one already selected is picked only when nothing else
// is left.
func Select(idx *Index, candidates []ScoredChunk, k int, lambda float64, pool int) []ScoredChunk {
	if idx == nil || k <= 0 {
		return nil
	}
	if pool <= 0 {
		pool = DefaultPool
	}
	lambda = min(max(lambda, 0), 1)

	var items []ScoredChunk
	for _, c := range candidates {
		if c.Score <= 0 {
			continue
		}
		items = append(items, c)
		if len(items) == pool {
			break
		}
	}
	if len(items) == 0 {
		return nil
	}

	top := items[0].Score
	for _, c := range items[1:] {
		top = max(top, c.Score)
	}
	seed := 0
	for i, c := range items {
		if c.Score > items[seed].Score {
			seed = i
		}
	}

	selected := make([]ScoredChunk, 0, min(k, len(items)))
	used := make([]bool, len(items))
	selected = append(selected, items[seed])
	used[seed] = true

	for len(selected) < k {
		// Exact duplicates of a selected chunk only fill slots nothing else can.
		best, bestVal := -1, 0.0
		dup, dupVal := -1, 0.0
		for i, c := range items {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selected {
				maxSim = max(maxSim, Cosine(idx.Vectors[c.Index], idx.Vectors[s.Index]))
			}
			val := lambda*(c.Score/top) - (1-lambda)*maxSim
			if lambda < 1 && maxSim >= 1-duplicateEpsilon {
				if dup == -1 || val > dupVal {
					dup, dupVal = i, val
				}
				continue
			}
			if best == -1 || val > bestVal {
				best, bestVal = i, val
			}
		}
		if best == -1 {
			best = dup
		}
		if best == -1 {
			break
		}
		selected = append(selected, items[best])
		used[best] = true
	}
	return selected
}

// IDs lists the chunk IDs of a selection in order.
func IDs(sel []ScoredChunk) []string {
	out := make([]string, len(sel))
	for i, s := range sel {
		out[i] = s.Chunk.ID
	}
	return out
}
