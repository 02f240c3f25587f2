package acousticindex

import (
	"errors"
	"time"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/index"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/storage"
)

var (
	ErrTrackNotFound = storage.ErrTrackNotFound
	// ErrTrackExists is returned with the existing track when a source
	// path has already been indexed.
	ErrTrackExists = errors.New("track already indexed")
)

// Track is a catalog entry.
type Track struct {
	ID         int       `json:"id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	SourcePath string    `json:"source_path"` // absolute path, or a content key for uploads
	SignalPath string    `json:"-"`
	DurationMs int       `json:"duration_ms"`
	SampleRate int       `json:"sample_rate"`
	HashPoints int       `json:"hash_points"`
	CreatedAt  time.Time `json:"created_at"`
}

// MatchResult is one candidate track with its alignment.
type MatchResult struct {
	TrackID       int     `json:"track_id"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Votes         int     `json:"votes"`
	TotalVotes    int     `json:"total_votes"`
	MatchRate     float64 `json:"match_rate"`
	OffsetFrames  int     `json:"offset_frames"`
	OffsetSeconds float64 `json:"offset_seconds"`
	// StartSeconds is where the query begins inside the matched track.
	StartSeconds float64 `json:"start_seconds"`
}

// MatchReport is the outcome of one query. Best is nil when nothing matched.
type MatchReport struct {
	Query      string        `json:"query"`
	DurationMs int           `json:"duration_ms"`
	Best       *MatchResult  `json:"best,omitempty"`
	Candidates []MatchResult `json:"candidates"`
}

// Stats describes the catalog and the in-memory index.
type Stats struct {
	Tracks      int                         `json:"tracks"`
	Indexed     int                         `json:"indexed"`
	Probes      int                         `json:"probes"`
	DataPoints  int                         `json:"data_points"`
	FrameSize   int                         `json:"frame_size"`
	Fingerprint fingerprint.ExtractorConfig `json:"fingerprint"`
}

// FolderProgress is reported after every file of a folder batch.
type FolderProgress struct {
	Done  int
	Total int
	Path  string
	Track *Track
	Err   error
}

type ProgressFunc func(FolderProgress)

type FolderReport struct {
	Indexed   []Track           `json:"indexed"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed"`
	Cancelled bool              `json:"cancelled"`
}

func newMatchResult(m index.Match) MatchResult {
	return MatchResult{
		TrackID:       int(m.TrackID),
		Votes:         m.Votes,
		TotalVotes:    m.TotalVotes,
		MatchRate:     m.MatchRate,
		OffsetFrames:  m.OffsetFrames,
		OffsetSeconds: m.OffsetSeconds,
		StartSeconds:  -m.OffsetSeconds,
	}
}
