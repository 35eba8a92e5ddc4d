package selection

import "math/rand"

// Path records which route admitted a dose into the digest.
type Path string

const (
	// PathPriority is unconditional inclusion of an unbounded-score dose.
	PathPriority Path = "priority"
	// PathSampled is admission via weighted sampling of finite scores.
	PathSampled Path = "sampled"
)

// Candidate is one scored dose entering the auction.
type Candidate struct {
	ID    string
	Score Score
}

// Pick is one auction winner and the path that admitted it.
type Pick struct {
	ID   string
	Path Path
}

// Auction selects at most slotLimit doses from the scored set.
//
// Every unbounded-score candidate is selected first, even past slotLimit:
// overflow is deliberate signaling that configured quotas exceed daily
// capacity. The leftover budget is filled by sampling finite candidates
// without replacement, weight proportional to score; zero-score candidates
// can only win when every finite candidate is zero, in which case sampling
// degenerates to uniform. rng must be supplied by the caller so outcomes are
// reproducible.
func Auction(candidates []Candidate, slotLimit int, rng *rand.Rand) []Pick {
	var picks []Pick
	var finite []Candidate
	for _, c := range candidates {
		if c.Score.IsUnbounded() {
			picks = append(picks, Pick{ID: c.ID, Path: PathPriority})
		} else {
			finite = append(finite, c)
		}
	}

	budget := slotLimit - len(picks)
	if budget <= 0 {
		return picks
	}

	for _, id := range sampleWeighted(finite, budget, rng) {
		picks = append(picks, Pick{ID: id, Path: PathSampled})
	}
	return picks
}

// sampleWeighted draws up to k ids from candidates without replacement, with
// probability proportional to score. Candidates with zero weight are skipped
// unless all weights are zero, in which case every candidate weighs 1.
func sampleWeighted(candidates []Candidate, k int, rng *rand.Rand) []string {
	pool := make([]Candidate, 0, len(candidates))
	weights := make([]float64, 0, len(candidates))
	total := 0.0
	for _, c := range candidates {
		if w := c.Score.Value(); w > 0 {
			pool = append(pool, c)
			weights = append(weights, w)
			total += w
		}
	}

	if len(pool) == 0 {
		// Degenerate case: everything was just shown. Fall back to uniform
		// rather than dividing by zero.
		for _, c := range candidates {
			pool = append(pool, c)
			weights = append(weights, 1)
			total++
		}
	}

	if k > len(pool) {
		k = len(pool)
	}

	out := make([]string, 0, k)
	for len(out) < k {
		target := rng.Float64() * total
		idx := len(pool) - 1
		for i, w := range weights {
			target -= w
			if target < 0 {
				idx = i
				break
			}
		}

		out = append(out, pool[idx].ID)
		total -= weights[idx]
		pool[idx] = pool[len(pool)-1]
		weights[idx] = weights[len(weights)-1]
		pool = pool[:len(pool)-1]
		weights = weights[:len(weights)-1]
	}
	return out
}
