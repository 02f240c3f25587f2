//go:build !js && !wasm

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/audio"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
	"github.com/himanishpuri/AcousticIndex/pkg/logger"
	"github.com/himanishpuri/AcousticIndex/pkg/utils"
)

const (
	maxTrackUpload = 100 << 20
	maxQueryUpload = 50 << 20
	maxProbesBody  = 16 << 20
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service acousticindex.Service
	config  *ServerConfig
	log     acousticindex.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

func NewServer(service acousticindex.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().Named("http"),
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Code:      statusCode,
		RequestID: requestID(r.Context()),
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, acousticindex.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, acousticindex.ErrTrackExists):
		return http.StatusConflict
	case errors.Is(err, audio.ErrFFmpegMissing), errors.Is(err, audio.ErrNotWAV):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, fingerprint.ErrInvalidSignal), errors.Is(err, fingerprint.ErrTransformFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "AcousticIndex API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"tracks":      "GET /api/tracks",
			"addTrack":    "POST /api/tracks",
			"getTrack":    "GET /api/tracks/{id}",
			"deleteTrack": "DELETE /api/tracks/{id}",
			"matchFile":   "POST /api/match",
			"matchProbes": "POST /api/match/probes",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to get stats: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		SampleRate:   s.config.SampleRate,
		Stats:        stats,
	})
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks()
	if err != nil {
		s.log.Errorf("Failed to list tracks: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to retrieve tracks")
		return
	}
	if tracks == nil {
		tracks = []acousticindex.Track{}
	}
	s.respondJSON(w, http.StatusOK, ListTracksResponse{Tracks: tracks, Count: len(tracks)})
}

// trackID parses the {id} path value.
func (s *Server) trackID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 0 {
		s.respondError(w, r, http.StatusBadRequest, "Invalid track ID")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackID(w, r)
	if !ok {
		return
	}
	track, err := s.service.GetTrack(id)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			s.respondError(w, r, status, fmt.Sprintf("Track with ID %d not found", id))
			return
		}
		s.log.Errorf("Failed to get track %d: %v", id, err)
		s.respondError(w, r, status, "Failed to retrieve track")
		return
	}
	s.respondJSON(w, http.StatusOK, track)
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := s.trackID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteTrack(id); err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			s.respondError(w, r, status, fmt.Sprintf("Track with ID %d not found", id))
			return
		}
		s.log.Errorf("Failed to delete track %d: %v", id, err)
		s.respondError(w, r, status, "Failed to delete track")
		return
	}
	s.respondJSON(w, http.StatusOK, DeleteTrackResponse{Message: "Track deleted successfully", ID: id})
}

// upload is a form file copied into TempDir. The caller removes path.
type upload struct {
	path string
	name string
	// key identifies the content regardless of the temp path it landed on
	key string
}

// saveUpload copies the "audio" form file into TempDir, hashing it on the way.
func (s *Server) saveUpload(r *http.Request, maxBytes int64) (*upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("failed to parse form data: %w", err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, errors.New("audio file is required")
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return nil, err
	}
	path := filepath.Join(s.config.TempDir, "upload_"+uuid.NewString()+filepath.Ext(header.Filename))
	out, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	sum := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, sum), file); err != nil {
		out.Close()
		os.Remove(path)
		return nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &upload{
		path: path,
		name: header.Filename,
		key:  "upload:sha256:" + hex.EncodeToString(sum.Sum(nil)),
	}, nil
}

// handleAddTrack handles POST /api/tracks (multipart: audio, title, artist).
// Re-uploading identical bytes answers 409 with the existing track.
func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxTrackUpload)
	up, err := s.saveUpload(r, maxTrackUpload)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer utils.DeleteFile(up.path)

	title := r.FormValue("title")
	if title == "" {
		title = utils.BaseName(up.name)
	}
	artist := r.FormValue("artist")

	track, err := s.service.AddTrackAs(ctx, up.path, up.key, title, artist)
	if errors.Is(err, acousticindex.ErrTrackExists) && track != nil {
		s.log.Infof("Upload %q already indexed as track %d", up.name, track.ID)
		s.respondJSON(w, http.StatusConflict, AddTrackResponse{Message: "Track already indexed", Track: track})
		return
	}
	if err != nil {
		s.log.Errorf("Failed to add track %q: %v", up.name, err)
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to add track: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddTrackResponse{Message: "Track added successfully", Track: track})
}

// handleMatchFile handles POST /api/match (multipart: audio)
func (s *Server) handleMatchFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxQueryUpload)
	up, err := s.saveUpload(r, maxQueryUpload)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer utils.DeleteFile(up.path)

	report, err := s.service.Match(ctx, up.path)
	if err != nil {
		s.log.Errorf("Failed to match %q: %v", up.name, err)
		s.respondError(w, r, statusFor(err), fmt.Sprintf("Failed to match: %v", err))
		return
	}
	report.Query = up.name

	s.respondJSON(w, http.StatusOK, newMatchResponse(report))
}

// handleMatchProbes handles POST /api/match/probes (hash points from WASM clients)
func (s *Server) handleMatchProbes(w http.ResponseWriter, r *http.Request) {
	var req MatchProbesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProbesBody))
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	stats, err := s.service.Stats()
	if err != nil {
		s.log.Errorf("Failed to get stats: %v", err)
		s.respondError(w, r, http.StatusInternalServerError, "Failed to read extractor config")
		return
	}
	if err := req.Validate(stats.Fingerprint); err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Points) >= PointWarningThreshold {
		s.log.Warnf("Large probe batch received: %d points", len(req.Points))
	}

	report, err := s.service.MatchHashPoints(req.Name, req.SampleRate, req.Points)
	if err != nil {
		s.respondError(w, r, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, newMatchResponse(report))
}
