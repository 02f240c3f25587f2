package index

import (
	"cmp"
	"slices"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

// Match describes the best alignment of a query against one track.
type Match struct {
	TrackID       TrackID `json:"track_id"`
	OffsetFrames  int     `json:"offset_frames"`
	OffsetSeconds float64 `json:"offset_seconds"`
	Votes         int     `json:"votes"`
	TotalVotes    int     `json:"total_votes"`
	MatchRate     float64 `json:"match_rate"`
}

// MatchResults holds one histogram per candidate track for a single query.
type MatchResults struct {
	Query      string
	SampleRate float64
	histograms map[TrackID]*Histogram
}

func NewMatchResults(query string, sampleRate float64) *MatchResults {
	return &MatchResults{
		Query:      query,
		SampleRate: sampleRate,
		histograms: make(map[TrackID]*Histogram),
	}
}

// Tally records one vote per data point at queryAnchor - point.Frame.
func (r *MatchResults) Tally(queryAnchor int, points []DataPoint) {
	for _, p := range points {
		h := r.histograms[p.Track]
		if h == nil {
			h = NewHistogram()
			r.histograms[p.Track] = h
		}
		h.Vote(queryAnchor - p.Frame)
	}
}

// Histogram returns the histogram of id, or nil if it received no votes.
func (r *MatchResults) Histogram(id TrackID) *Histogram {
	return r.histograms[id]
}

// Tracks lists the candidate tracks in ascending order.
func (r *MatchResults) Tracks() []TrackID {
	ids := make([]TrackID, 0, len(r.histograms))
	for id := range r.histograms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *MatchResults) match(id TrackID, h *Histogram) Match {
	best := h.Best()
	return Match{
		TrackID:       id,
		OffsetFrames:  best.Delta,
		OffsetSeconds: fingerprint.FramesToSeconds(best.Delta, r.SampleRate),
		Votes:         best.Count,
		TotalVotes:    h.TotalVotes(),
		MatchRate:     h.MatchRate(),
	}
}

// Ranked returns every candidate with votes, by descending match rate and
// then ascending track ID.
func (r *MatchResults) Ranked() []Match {
	out := make([]Match, 0, len(r.histograms))
	for id, h := range r.histograms {
		if h.TotalVotes() == 0 {
			continue
		}
		out = append(out, r.match(id, h))
	}
	slices.SortFunc(out, func(a, b Match) int {
		if c := cmp.Compare(b.MatchRate, a.MatchRate); c != 0 {
			return c
		}
		return cmp.Compare(a.TrackID, b.TrackID)
	})
	return out
}

// BestMatch picks the candidate with the strictly highest match rate,
// preferring the smaller track ID on ties. ok is false when no track
// received a vote.
func (r *MatchResults) BestMatch() (m Match, ok bool) {
	for _, id := range r.Tracks() {
		h := r.histograms[id]
		if h.TotalVotes() == 0 {
			continue
		}
		rate := h.MatchRate()
		if !ok || rate > m.MatchRate {
			m = r.match(id, h)
			ok = true
		}
	}
	return m, ok
}
