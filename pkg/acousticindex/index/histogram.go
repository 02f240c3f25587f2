package index

import "slices"

// MaxMatch is the winning offset of a histogram and its vote count.
type MaxMatch struct {
	Delta int `json:"delta"`
	Count int `json:"count"`
}

// Histogram counts votes per time offset for one query and one track.
type Histogram struct {
	counts map[int]int
	total  int
}

func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[int]int)}
}

// Vote adds one vote at offset.
func (h *Histogram) Vote(offset int) {
	h.counts[offset]++
	h.total++
}

func (h *Histogram) Count(offset int) int { return h.counts[offset] }

// TotalVotes is the sum of all counts.
func (h *Histogram) TotalVotes() int { return h.total }

// Best returns the offset with the most votes. Ties go to the smallest
// offset. An empty histogram yields the zero MaxMatch.
func (h *Histogram) Best() MaxMatch {
	var best MaxMatch
	found := false
	for offset, count := range h.counts {
		if !found || count > best.Count || (count == best.Count && offset < best.Delta) {
			best = MaxMatch{Delta: offset, Count: count}
			found = true
		}
	}
	return best
}

// MatchRate is the share of votes concentrated at the best offset.
func (h *Histogram) MatchRate() float64 {
	if h.total == 0 {
		return 0
	}
	return float64(h.Best().Count) / float64(h.total)
}

// Offsets lists the voted offsets in ascending order.
func (h *Histogram) Offsets() []int {
	out := make([]int, 0, len(h.counts))
	for offset := range h.counts {
		out = append(out, offset)
	}
	slices.Sort(out)
	return out
}
