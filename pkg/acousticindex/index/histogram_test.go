package index

import "testing"

func TestHistogramVotes(t *testing.T) {
	h := NewHistogram()
	for _, off := range []int{3, -2, 3, 7, 3, -2} {
		h.Vote(off)
	}

	if h.TotalVotes() != 6 {
		t.Errorf("Expected 6 total votes, got %d", h.TotalVotes())
	}
	if h.Count(3) != 3 || h.Count(-2) != 2 || h.Count(7) != 1 || h.Count(100) != 0 {
		t.Errorf("Unexpected counts: 3=%d -2=%d 7=%d", h.Count(3), h.Count(-2), h.Count(7))
	}
	if best := h.Best(); best != (MaxMatch{Delta: 3, Count: 3}) {
		t.Errorf("Expected best {3 3}, got %+v", best)
	}
	if rate := h.MatchRate(); rate != 0.5 {
		t.Errorf("Expected match rate 0.5, got %f", rate)
	}

	offsets := h.Offsets()
	want := []int{-2, 3, 7}
	if len(offsets) != len(want) {
		t.Fatalf("Expected offsets %v, got %v", want, offsets)
	}
	for i := range want {
		if offsets[i] != want[i] {
			t.Errorf("Expected offsets %v, got %v", want, offsets)
		}
	}
}

func TestHistogramTieGoesToSmallestOffset(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := NewHistogram()
		for _, off := range []int{9, 4, -1, 9, 4, -1} {
			h.Vote(off)
		}
		if best := h.Best(); best.Delta != -1 || best.Count != 2 {
			t.Fatalf("Expected tie to resolve to -1, got %+v", best)
		}
	}
}

func TestEmptyHistogram(t *testing.T) {
	h := NewHistogram()
	if h.TotalVotes() != 0 || h.MatchRate() != 0 {
		t.Errorf("Expected empty histogram, got total=%d rate=%f", h.TotalVotes(), h.MatchRate())
	}
	if best := h.Best(); best != (MaxMatch{}) {
		t.Errorf("Expected zero MaxMatch, got %+v", best)
	}
}
