package acousticindex

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/audio"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/index"
	"github.com/himanishpuri/AcousticIndex/pkg/logger"
	"github.com/himanishpuri/AcousticIndex/pkg/utils"
)

// acousticService is the default implementation of the Service interface.
// The catalog is durable; the fingerprint index lives in memory and is
// rebuilt from each track's stored signal on start.
type acousticService struct {
	catalog Catalog
	index   *index.FingerprintIndex
	log     Logger
	config  *Config

	// index writes take the write lock, queries the read lock
	mu sync.RWMutex
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().Named("acousticindex")
	}

	extractor, err := fingerprint.NewExtractor(cfg.Extractor)
	if err != nil {
		return nil, err
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog, err = NewSQLiteCatalog(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
	}

	s := &acousticService{
		catalog: catalog,
		index:   index.New(extractor, index.WithSpectrogramOptions(fingerprint.WithWorkers(cfg.Workers))),
		log:     cfg.Logger,
		config:  cfg,
	}

	if err := s.rebuild(context.Background()); err != nil {
		catalog.Close()
		return nil, fmt.Errorf("failed to rebuild index: %w", err)
	}
	return s, nil
}

// rebuild re-indexes every catalogued track from its stored signal.
// Tracks whose signal cannot be read are skipped with a warning.
func (s *acousticService) rebuild(ctx context.Context) error {
	tracks, err := s.catalog.ListTracks()
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var missing atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for _, t := range tracks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sig, err := audio.ReadWAV(t.SignalPath)
			if err != nil {
				s.log.Warnf("Skipping track %d (%s): %v", t.ID, t.Title, err)
				missing.Add(1)
				return nil
			}
			n, err := s.index.IndexTrack(sig, index.TrackID(t.ID))
			if err != nil {
				s.log.Warnf("Skipping track %d (%s): %v", t.ID, t.Title, err)
				missing.Add(1)
				return nil
			}
			if n != t.HashPoints {
				if err := s.catalog.SetHashPoints(t.ID, n); err != nil {
					s.log.Warnf("Failed to update hash points for track %d: %v", t.ID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	st := s.index.Stats()
	s.log.Infof("Rebuilt index: %d/%d tracks, %d probes, %d data points",
		st.Tracks, len(tracks), st.Probes, st.DataPoints)
	if n := missing.Load(); n > 0 {
		s.log.Warnf("%d catalogued tracks could not be indexed", n)
	}
	return nil
}

// AddTrack decodes audioPath, stores a normalized copy in the library,
// registers it in the catalog and indexes it. If the source was already
// indexed the existing track is returned together with ErrTrackExists.
func (s *acousticService) AddTrack(ctx context.Context, audioPath, title, artist string) (*Track, error) {
	source, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return s.addTrack(ctx, source, source, title, artist)
}

// AddTrackAs indexes a transient file such as an upload under sourceKey,
// which replaces the file path as the track's identity in the catalog.
func (s *acousticService) AddTrackAs(ctx context.Context, audioPath, sourceKey, title, artist string) (*Track, error) {
	if sourceKey == "" {
		return nil, errors.New("source key is required")
	}
	return s.addTrack(ctx, audioPath, sourceKey, title, artist)
}

func (s *acousticService) addTrack(ctx context.Context, path, source, title, artist string) (*Track, error) {
	existing, err := s.catalog.FindBySource(source)
	if err == nil {
		return existing, ErrTrackExists
	}
	if !errors.Is(err, ErrTrackNotFound) {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	s.log.Infof("Processing track: %s", source)

	// 1. Decode
	sig, err := audio.LoadSignal(ctx, path, s.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	// 2. Reject unusable audio before anything is written
	if err := sig.Validate(); err != nil {
		return nil, fmt.Errorf("cannot index %s: %w", source, err)
	}

	title, artist = s.describe(ctx, path, title, artist)

	// 3. Keep a normalized copy for rebuilds
	if err := utils.MakeDir(s.config.LibraryDir); err != nil {
		return nil, fmt.Errorf("failed to create library dir: %w", err)
	}
	signalPath := filepath.Join(s.config.LibraryDir, uuid.NewString()+".wav")
	if err := audio.WriteWAV(signalPath, sig); err != nil {
		return nil, fmt.Errorf("failed to store signal: %w", err)
	}

	// 4. Register
	track := &Track{
		Title:      title,
		Artist:     artist,
		SourcePath: source,
		SignalPath: signalPath,
		DurationMs: int(sig.Duration().Milliseconds()),
		SampleRate: int(sig.SampleRate),
	}
	if err := s.catalog.RegisterTrack(track); err != nil {
		utils.DeleteFile(signalPath)
		return nil, fmt.Errorf("failed to register track: %w", err)
	}

	// 5. Index
	s.mu.Lock()
	n, err := s.index.IndexTrack(sig, index.TrackID(track.ID))
	s.mu.Unlock()
	if err != nil {
		s.catalog.DeleteTrack(track.ID) // rollback
		utils.DeleteFile(signalPath)
		return nil, fmt.Errorf("failed to index track: %w", err)
	}

	if err := s.catalog.SetHashPoints(track.ID, n); err != nil {
		s.log.Warnf("Failed to record hash points for track %d: %v", track.ID, err)
	}
	track.HashPoints = n

	s.log.Infof("Indexed track ID=%d %q (%d hash points)", track.ID, track.Title, n)
	return track, nil
}

// describe fills missing title and artist from file tags, then the file name.
func (s *acousticService) describe(ctx context.Context, path, title, artist string) (string, string) {
	if title != "" && artist != "" {
		return title, artist
	}
	if meta, err := audio.ReadMetadataFFmpeg(ctx, path); err == nil {
		if title == "" {
			title = meta.Title
		}
		if artist == "" {
			artist = meta.Artist
		}
	} else {
		s.log.Debugf("No tags for %s: %v", path, err)
	}
	if title == "" {
		title = utils.BaseName(path)
	}
	if artist == "" {
		artist = "Unknown Artist"
	}
	return title, artist
}

// IndexFolder adds every audio file under dir. Files already in the
// catalog are skipped. Cancellation is honoured between files only.
func (s *acousticService) IndexFolder(ctx context.Context, dir string, progress ProgressFunc) (*FolderReport, error) {
	files, err := utils.ListAudioFiles(dir)
	if err != nil {
		return nil, err
	}
	s.log.Infof("Found %d audio files in %s", len(files), dir)

	report := &FolderReport{Failed: make(map[string]string)}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			s.log.Warnf("Folder indexing cancelled after %d/%d files", i, len(files))
			return report, err
		}

		track, err := s.AddTrack(context.WithoutCancel(ctx), path, "", "")
		switch {
		case errors.Is(err, ErrTrackExists):
			report.Skipped = append(report.Skipped, path)
			err = nil
		case err != nil:
			report.Failed[path] = err.Error()
			s.log.Warnf("Failed to index %s: %v", path, err)
		default:
			report.Indexed = append(report.Indexed, *track)
		}

		if progress != nil {
			progress(FolderProgress{Done: i + 1, Total: len(files), Path: path, Track: track, Err: err})
		}
	}
	return report, nil
}

// Match decodes audioPath and identifies it against the index.
func (s *acousticService) Match(ctx context.Context, audioPath string) (*MatchReport, error) {
	s.log.Infof("Matching audio: %s", audioPath)

	sig, err := audio.LoadSignal(ctx, audioPath, s.config.TempDir, audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	return s.MatchSignal(sig)
}

func (s *acousticService) MatchSignal(sig fingerprint.Signal) (*MatchReport, error) {
	s.mu.RLock()
	results, err := s.index.Query(sig)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	report := s.report(results)
	report.DurationMs = int(sig.Duration().Milliseconds())
	return report, nil
}

// MatchHashPoints matches hash points computed elsewhere, such as in a browser.
func (s *acousticService) MatchHashPoints(name string, sampleRate float64, points []fingerprint.HashPoint) (*MatchReport, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %.0f must be positive", fingerprint.ErrInvalidSignal, sampleRate)
	}
	s.mu.RLock()
	results := s.index.QueryHashPoints(name, sampleRate, points)
	s.mu.RUnlock()
	return s.report(results), nil
}

func (s *acousticService) report(results *index.MatchResults) *MatchReport {
	report := &MatchReport{Query: results.Query, Candidates: []MatchResult{}}

	if best, ok := results.BestMatch(); ok {
		r := s.withMetadata(newMatchResult(best))
		report.Best = &r
		s.log.Infof("Best match: track %d %q at %.2fs (rate %.2f, %d/%d votes)",
			r.TrackID, r.Title, r.StartSeconds, r.MatchRate, r.Votes, r.TotalVotes)
	} else {
		s.log.Infof("No match for %q", results.Query)
	}

	for i, m := range results.Ranked() {
		if i >= s.config.MaxCandidates {
			break
		}
		report.Candidates = append(report.Candidates, s.withMetadata(newMatchResult(m)))
	}
	return report
}

func (s *acousticService) withMetadata(r MatchResult) MatchResult {
	t, err := s.catalog.GetTrack(r.TrackID)
	if err != nil {
		s.log.Warnf("Failed to get track %d: %v", r.TrackID, err)
		return r
	}
	r.Title = t.Title
	r.Artist = t.Artist
	return r
}

func (s *acousticService) GetTrack(id int) (*Track, error) {
	return s.catalog.GetTrack(id)
}

func (s *acousticService) ListTracks() ([]Track, error) {
	return s.catalog.ListTracks()
}

// DeleteTrack removes a track from the catalog, the index and the library.
func (s *acousticService) DeleteTrack(id int) error {
	s.mu.Lock()
	track, err := s.catalog.DeleteTrack(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	removed := s.index.RemoveTrack(index.TrackID(id))
	s.mu.Unlock()

	if err := utils.DeleteFile(track.SignalPath); err != nil {
		s.log.Warnf("Failed to remove stored signal %s: %v", track.SignalPath, err)
	}
	s.log.Infof("Deleted track ID=%d (%d data points)", id, removed)
	return nil
}

func (s *acousticService) Stats() (*Stats, error) {
	count, err := s.catalog.CountTracks()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	st := s.index.Stats()
	s.mu.RUnlock()

	return &Stats{
		Tracks:      count,
		Indexed:     st.Tracks,
		Probes:      st.Probes,
		DataPoints:  st.DataPoints,
		FrameSize:   fingerprint.FrameSize,
		Fingerprint: s.index.Extractor().Config(),
	}, nil
}

// Close releases all resources held by the service.
func (s *acousticService) Close() error {
	return s.catalog.Close()
}
