//go:build !js && !wasm

package main

import (
	"fmt"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

// Point limits for POST /api/match/probes
const (
	// MaxPointsHardLimit is the absolute maximum accepted per request
	MaxPointsHardLimit = 200000

	// PointWarningThreshold triggers logging for large batches
	PointWarningThreshold = 50000
)

// MatchProbesRequest is the request body for POST /api/match/probes
type MatchProbesRequest struct {
	Name       string                  `json:"name"`
	SampleRate float64                 `json:"sample_rate"`
	Points     []fingerprint.HashPoint `json:"points"`
}

// Validate checks the request shape and that every point could have come
// from an extractor using cfg: later target, higher frequency inside the
// pairing window, bins in range.
func (r *MatchProbesRequest) Validate(cfg fingerprint.ExtractorConfig) error {
	if r.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if len(r.Points) == 0 {
		return fmt.Errorf("points cannot be empty")
	}
	if len(r.Points) > MaxPointsHardLimit {
		return fmt.Errorf("too many points: %d (maximum: %d)", len(r.Points), MaxPointsHardLimit)
	}
	for i, p := range r.Points {
		if !isValidPoint(p, cfg) {
			return fmt.Errorf("invalid point %d: %+v", i, p)
		}
	}
	return nil
}

func isValidPoint(p fingerprint.HashPoint, cfg fingerprint.ExtractorConfig) bool {
	switch {
	case p.Dt < 1 || p.Dt > cfg.TimeOffset || p.Anchor < 0:
		return false
	case p.FirstFrequency < 0 || p.SecondFrequency >= fingerprint.Bins:
		return false
	case p.SecondFrequency <= p.FirstFrequency:
		return false
	case p.SecondFrequency-p.FirstFrequency > cfg.FreqOffset:
		return false
	}
	return true
}

// MatchResponse is returned by both match endpoints
type MatchResponse struct {
	*acousticindex.MatchReport
	Count int `json:"count"`
}

func newMatchResponse(r *acousticindex.MatchReport) MatchResponse {
	return MatchResponse{MatchReport: r, Count: len(r.Candidates)}
}

// AddTrackResponse is the response for POST /api/tracks
type AddTrackResponse struct {
	Message string               `json:"message"`
	Track   *acousticindex.Track `json:"track"`
}

// ListTracksResponse is the response for GET /api/tracks
type ListTracksResponse struct {
	Tracks []acousticindex.Track `json:"tracks"`
	Count  int                   `json:"count"`
}

// DeleteTrackResponse is the response for DELETE /api/tracks/{id}
type DeleteTrackResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

// MetricsResponse provides server health and index metrics
type MetricsResponse struct {
	Status       string `json:"status"`
	DatabasePath string `json:"database_path"`
	SampleRate   int    `json:"sample_rate"`
	*acousticindex.Stats
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Code      int    `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
