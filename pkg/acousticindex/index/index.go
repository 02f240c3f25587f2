// Package index keeps the inverted probe map and votes query hash points
// against it.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/OneOfOne/xxhash"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

const (
	shardCount = 64

	// buckets switch to a lookup set once they hold this many points
	dedupSetThreshold = 16
)

var ErrInvalidTrackID = errors.New("invalid track id")

// TrackID identifies a catalogued track. IDs are assigned externally and
// must be non-negative.
type TrackID int

// DataPoint records where a probe's anchor occurs in a track.
type DataPoint struct {
	Track TrackID `json:"track"`
	Frame int     `json:"frame"`
}

type bucket struct {
	points []DataPoint
	seen   map[DataPoint]struct{}
}

// add appends p unless an equal point is present.
func (b *bucket) add(p DataPoint) bool {
	if b.seen != nil {
		if _, ok := b.seen[p]; ok {
			return false
		}
		b.seen[p] = struct{}{}
		b.points = append(b.points, p)
		return true
	}
	if slices.Contains(b.points, p) {
		return false
	}
	b.points = append(b.points, p)
	if len(b.points) > dedupSetThreshold {
		b.seen = make(map[DataPoint]struct{}, len(b.points)*2)
		for _, q := range b.points {
			b.seen[q] = struct{}{}
		}
	}
	return true
}

func (b *bucket) removeTrack(id TrackID) int {
	kept := b.points[:0]
	removed := 0
	for _, p := range b.points {
		if p.Track == id {
			removed++
			if b.seen != nil {
				delete(b.seen, p)
			}
			continue
		}
		kept = append(kept, p)
	}
	clear(b.points[len(kept):])
	b.points = kept
	return removed
}

type shard struct {
	mu      sync.RWMutex
	buckets map[fingerprint.Probe]*bucket
	points  int
}

// FingerprintIndex maps probes to the ordered, duplicate free set of data
// points where they occur. Concurrent IndexTrack calls are safe; buckets
// are guarded by lock striping. Queries are safe against each other but
// not against concurrent writers: callers must provide that exclusion.
type FingerprintIndex struct {
	extractor *fingerprint.Extractor
	specOpts  []fingerprint.SpectrogramOption

	shards [shardCount]shard

	tracksMu sync.Mutex
	tracks   map[TrackID]int
}

// Option configures a FingerprintIndex.
type Option func(*FingerprintIndex)

// WithSpectrogramOptions forwards options to every spectrogram the index builds.
func WithSpectrogramOptions(opts ...fingerprint.SpectrogramOption) Option {
	return func(ix *FingerprintIndex) {
		ix.specOpts = append(ix.specOpts, opts...)
	}
}

// New returns an empty index that extracts hash points with e.
func New(e *fingerprint.Extractor, opts ...Option) *FingerprintIndex {
	ix := &FingerprintIndex{
		extractor: e,
		tracks:    make(map[TrackID]int),
	}
	for i := range ix.shards {
		ix.shards[i].buckets = make(map[fingerprint.Probe]*bucket)
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func shardOf(p fingerprint.Probe) int {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(p.Dt))
	binary.LittleEndian.PutUint64(buf[8:], uint64(p.FirstFrequency))
	binary.LittleEndian.PutUint64(buf[16:], uint64(p.SecondFrequency))
	return int(xxhash.Checksum64(buf[:]) % shardCount)
}

// Extractor returns the extractor used for indexing and queries.
func (ix *FingerprintIndex) Extractor() *fingerprint.Extractor { return ix.extractor }

// IndexTrack extracts the hash points of sig and stores each anchor under
// its probe for track id. Points already present are skipped, so indexing
// the same track twice leaves the buckets unchanged. It returns the number
// of hash points extracted. Input is validated before any bucket is touched.
func (ix *FingerprintIndex) IndexTrack(sig fingerprint.Signal, id TrackID) (int, error) {
	if id < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTrackID, id)
	}
	points, err := ix.extractor.ExtractSignal(sig, ix.specOpts...)
	if err != nil {
		return 0, fmt.Errorf("indexing track %d: %w", id, err)
	}
	ix.insert(id, points)
	return len(points), nil
}

// IndexHashPoints stores precomputed hash points for track id.
func (ix *FingerprintIndex) IndexHashPoints(id TrackID, points []fingerprint.HashPoint) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTrackID, id)
	}
	ix.insert(id, points)
	return nil
}

func (ix *FingerprintIndex) insert(id TrackID, points []fingerprint.HashPoint) {
	var grouped [shardCount][]fingerprint.HashPoint
	for _, hp := range points {
		s := shardOf(hp.Probe)
		grouped[s] = append(grouped[s], hp)
	}

	for s := range grouped {
		if len(grouped[s]) == 0 {
			continue
		}
		sh := &ix.shards[s]
		sh.mu.Lock()
		for _, hp := range grouped[s] {
			b := sh.buckets[hp.Probe]
			if b == nil {
				b = &bucket{}
				sh.buckets[hp.Probe] = b
			}
			if b.add(DataPoint{Track: id, Frame: hp.Anchor}) {
				sh.points++
			}
		}
		sh.mu.Unlock()
	}

	ix.tracksMu.Lock()
	ix.tracks[id] = len(points)
	ix.tracksMu.Unlock()
}

// Query votes every hash point of sig against the index. An empty signal
// is an error; a signal shorter than one frame simply collects no votes.
func (ix *FingerprintIndex) Query(sig fingerprint.Signal) (*MatchResults, error) {
	if len(sig.Samples) == 0 {
		return nil, fingerprint.ErrEmptySignal
	}
	if sig.NumFrames() == 0 {
		return NewMatchResults(sig.Name, sig.SampleRate), nil
	}
	points, err := ix.extractor.ExtractSignal(sig, ix.specOpts...)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", sig.Name, err)
	}
	return ix.QueryHashPoints(sig.Name, sig.SampleRate, points), nil
}

// QueryHashPoints votes precomputed hash points against the index.
func (ix *FingerprintIndex) QueryHashPoints(name string, sampleRate float64, points []fingerprint.HashPoint) *MatchResults {
	results := NewMatchResults(name, sampleRate)
	for _, hp := range points {
		sh := &ix.shards[shardOf(hp.Probe)]
		sh.mu.RLock()
		if b := sh.buckets[hp.Probe]; b != nil {
			results.Tally(hp.Anchor, b.points)
		}
		sh.mu.RUnlock()
	}
	return results
}

// Bucket returns a copy of the data points stored under p, in insertion order.
func (ix *FingerprintIndex) Bucket(p fingerprint.Probe) []DataPoint {
	sh := &ix.shards[shardOf(p)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	b := sh.buckets[p]
	if b == nil {
		return nil
	}
	return slices.Clone(b.points)
}

// RemoveTrack drops every data point of id and returns how many were removed.
func (ix *FingerprintIndex) RemoveTrack(id TrackID) int {
	removed := 0
	for s := range ix.shards {
		sh := &ix.shards[s]
		sh.mu.Lock()
		for probe, b := range sh.buckets {
			n := b.removeTrack(id)
			if n == 0 {
				continue
			}
			removed += n
			sh.points -= n
			if len(b.points) == 0 {
				delete(sh.buckets, probe)
			}
		}
		sh.mu.Unlock()
	}

	ix.tracksMu.Lock()
	delete(ix.tracks, id)
	ix.tracksMu.Unlock()
	return removed
}

// Contains reports whether id has been indexed.
func (ix *FingerprintIndex) Contains(id TrackID) bool {
	ix.tracksMu.Lock()
	defer ix.tracksMu.Unlock()
	_, ok := ix.tracks[id]
	return ok
}

// Tracks lists the indexed track IDs in ascending order.
func (ix *FingerprintIndex) Tracks() []TrackID {
	ix.tracksMu.Lock()
	ids := make([]TrackID, 0, len(ix.tracks))
	for id := range ix.tracks {
		ids = append(ids, id)
	}
	ix.tracksMu.Unlock()
	slices.Sort(ids)
	return ids
}

// Stats summarizes the index contents.
type Stats struct {
	Tracks     int `json:"tracks"`
	Probes     int `json:"probes"`
	DataPoints int `json:"data_points"`
}

func (ix *FingerprintIndex) Stats() Stats {
	var st Stats
	for s := range ix.shards {
		sh := &ix.shards[s]
		sh.mu.RLock()
		st.Probes += len(sh.buckets)
		st.DataPoints += sh.points
		sh.mu.RUnlock()
	}
	ix.tracksMu.Lock()
	st.Tracks = len(ix.tracks)
	ix.tracksMu.Unlock()
	return st
}
