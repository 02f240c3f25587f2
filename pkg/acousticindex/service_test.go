package acousticindex

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/AcousticIndex/internal/testsupport"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/audio"
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
	"github.com/himanishpuri/AcousticIndex/pkg/logger"
)

type testEnv struct {
	dir     string
	dbPath  string
	library string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		dir:     dir,
		dbPath:  filepath.Join(dir, "catalog.sqlite3"),
		library: filepath.Join(dir, "library"),
	}
}

// open creates a service over the environment's catalog and library
func (e *testEnv) open(t *testing.T, opts ...Option) Service {
	t.Helper()
	quiet := logger.New(logger.Config{Level: logger.WARN, Output: io.Discard})
	base := []Option{
		WithDBPath(e.dbPath),
		WithLibraryDir(e.library),
		WithTempDir(filepath.Join(e.dir, "tmp")),
		WithWorkers(2),
		WithLogger(quiet),
	}
	svc, err := NewService(append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})
	return svc
}

func writeWAV(t *testing.T, dir, name string, samples []float64) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, name)
	sig := fingerprint.Signal{SampleRate: testsupport.SampleRate, Samples: samples}
	if err := audio.WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
	return path
}

func TestAddTrackAndMatch(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	ctx := context.Background()

	full := testsupport.TrackA(300).Samples()
	a, err := svc.AddTrack(ctx, writeWAV(t, env.dir, "a.wav", full), "Track A", "Artist A")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	b, err := svc.AddTrack(ctx, writeWAV(t, env.dir, "b.wav", testsupport.TrackB(300).Samples()), "Track B", "Artist B")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	if a.ID == b.ID || a.HashPoints == 0 {
		t.Fatalf("Unexpected tracks: %+v %+v", a, b)
	}
	if a.DurationMs != 300*1024*1000/44100 {
		t.Errorf("Unexpected duration %d", a.DurationMs)
	}

	query := writeWAV(t, env.dir, "query.wav", testsupport.Excerpt(t, full, 100, 60))
	report, err := svc.Match(ctx, query)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if report.Best == nil {
		t.Fatal("Expected a match")
	}
	if report.Best.TrackID != a.ID || report.Best.Title != "Track A" || report.Best.Artist != "Artist A" {
		t.Errorf("Unexpected best match %+v", report.Best)
	}
	if report.Best.OffsetFrames != -100 {
		t.Errorf("Expected offset -100 frames, got %d", report.Best.OffsetFrames)
	}
	wantStart := 100.0 * 1024 / 44100
	if math.Abs(report.Best.StartSeconds-wantStart) > 1e-6 {
		t.Errorf("Expected start %.3fs, got %.3fs", wantStart, report.Best.StartSeconds)
	}
	if len(report.Candidates) == 0 || report.Candidates[0].TrackID != a.ID {
		t.Errorf("Expected best match to lead the candidates, got %+v", report.Candidates)
	}
}

func TestAddTrackTwiceReturnsExisting(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	path := writeWAV(t, env.dir, "a.wav", testsupport.TrackA(40).Samples())

	first, err := svc.AddTrack(context.Background(), path, "A", "X")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	again, err := svc.AddTrack(context.Background(), path, "A", "X")
	if !errors.Is(err, ErrTrackExists) {
		t.Fatalf("Expected ErrTrackExists, got %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("Expected existing track %d, got %d", first.ID, again.ID)
	}
}

func TestAddTrackAsDeduplicatesBySourceKey(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	samples := testsupport.TrackA(40).Samples()

	// the same content arriving twice under different transient names
	first, err := svc.AddTrackAs(context.Background(), writeWAV(t, env.dir, "upload_1.wav", samples), "upload:abc", "A", "X")
	if err != nil {
		t.Fatalf("AddTrackAs failed: %v", err)
	}
	if first.SourcePath != "upload:abc" {
		t.Errorf("Expected source key as SourcePath, got %q", first.SourcePath)
	}
	again, err := svc.AddTrackAs(context.Background(), writeWAV(t, env.dir, "upload_2.wav", samples), "upload:abc", "A", "X")
	if !errors.Is(err, ErrTrackExists) {
		t.Fatalf("Expected ErrTrackExists, got %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("Expected existing track %d, got %d", first.ID, again.ID)
	}

	tracks, err := svc.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 1 {
		t.Errorf("Expected one catalog entry, got %d", len(tracks))
	}

	if _, err := svc.AddTrackAs(context.Background(), writeWAV(t, env.dir, "upload_3.wav", samples), "", "A", "X"); err == nil {
		t.Error("Expected an empty source key to be rejected")
	}
}

func TestAddTrackResamplesToConfiguredRate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t, WithSampleRate(44100))

	path := filepath.Join(env.dir, "studio.wav")
	sig := fingerprint.Signal{SampleRate: 48000, Samples: testsupport.TrackA(60).Samples()}
	if err := audio.WriteWAV(path, sig); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	track, err := svc.AddTrack(context.Background(), path, "Studio", "X")
	if !audio.FFmpegAvailable() {
		if !errors.Is(err, audio.ErrFFmpegMissing) {
			t.Fatalf("Expected ErrFFmpegMissing without ffmpeg, got %v", err)
		}
		if tracks, _ := svc.ListTracks(); len(tracks) != 0 {
			t.Errorf("Expected empty catalog, got %d tracks", len(tracks))
		}
		return
	}
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	if track.SampleRate != 44100 {
		t.Errorf("Expected track stored at 44100 Hz, got %d", track.SampleRate)
	}
}

func TestAddTrackRejectsShortAudio(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	path := writeWAV(t, env.dir, "blip.wav", testsupport.Silence(300))

	if _, err := svc.AddTrack(context.Background(), path, "", ""); !errors.Is(err, fingerprint.ErrTransformFailure) {
		t.Fatalf("Expected ErrTransformFailure, got %v", err)
	}

	tracks, err := svc.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 0 {
		t.Errorf("Expected empty catalog, got %d tracks", len(tracks))
	}
	if entries, _ := os.ReadDir(env.library); len(entries) != 0 {
		t.Errorf("Expected empty library, got %d files", len(entries))
	}
}

func TestAddTrackDefaultsTitleToFileName(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	path := writeWAV(t, env.dir, "Night Drive.wav", testsupport.TrackA(30).Samples())

	track, err := svc.AddTrack(context.Background(), path, "", "")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	if track.Title != "Night Drive" {
		t.Errorf("Expected title 'Night Drive', got %q", track.Title)
	}
	if track.Artist == "" {
		t.Error("Expected a fallback artist")
	}
}

func TestIndexRebuiltOnRestart(t *testing.T) {
	env := newTestEnv(t)
	full := testsupport.TrackB(200).Samples()

	svc := env.open(t)
	track, err := svc.AddTrack(context.Background(), writeWAV(t, env.dir, "b.wav", full), "B", "Y")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	svc.Close()

	reopened := env.open(t)
	st, err := reopened.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Tracks != 1 || st.Indexed != 1 || st.DataPoints == 0 {
		t.Fatalf("Expected rebuilt index, got %+v", st)
	}

	sig := fingerprint.Signal{Name: "q", SampleRate: testsupport.SampleRate, Samples: testsupport.Excerpt(t, full, 50, 40)}
	report, err := reopened.MatchSignal(sig)
	if err != nil {
		t.Fatalf("MatchSignal failed: %v", err)
	}
	if report.Best == nil || report.Best.TrackID != track.ID {
		t.Errorf("Expected match on track %d after restart, got %+v", track.ID, report.Best)
	}
}

func TestDeleteTrack(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	samples := testsupport.TrackA(80).Samples()

	track, err := svc.AddTrack(context.Background(), writeWAV(t, env.dir, "a.wav", samples), "A", "X")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}
	if err := svc.DeleteTrack(track.ID); err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}

	if _, err := svc.GetTrack(track.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
	if _, err := os.Stat(track.SignalPath); !os.IsNotExist(err) {
		t.Errorf("Expected stored signal to be removed, stat error: %v", err)
	}

	report, err := svc.MatchSignal(fingerprint.Signal{Name: "q", SampleRate: testsupport.SampleRate, Samples: samples})
	if err != nil {
		t.Fatalf("MatchSignal failed: %v", err)
	}
	if report.Best != nil {
		t.Errorf("Expected no match after delete, got %+v", report.Best)
	}
	if err := svc.DeleteTrack(track.ID); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound on second delete, got %v", err)
	}
}

func TestIndexFolder(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	music := filepath.Join(env.dir, "music")
	writeWAV(t, music, "a.wav", testsupport.TrackA(50).Samples())
	writeWAV(t, filepath.Join(music, "sub"), "b.wav", testsupport.TrackB(50).Samples())
	writeWAV(t, music, "short.wav", testsupport.Silence(10))

	var calls []FolderProgress
	report, err := svc.IndexFolder(context.Background(), music, func(p FolderProgress) {
		calls = append(calls, p)
	})
	if err != nil {
		t.Fatalf("IndexFolder failed: %v", err)
	}
	if len(report.Indexed) != 2 || len(report.Failed) != 1 || len(report.Skipped) != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
	if len(calls) != 3 || calls[2].Done != 3 || calls[2].Total != 3 {
		t.Errorf("Unexpected progress calls: %+v", calls)
	}

	again, err := svc.IndexFolder(context.Background(), music, nil)
	if err != nil {
		t.Fatalf("IndexFolder failed: %v", err)
	}
	if len(again.Skipped) != 2 || len(again.Indexed) != 0 {
		t.Errorf("Expected catalogued files to be skipped, got %+v", again)
	}
}

func TestIndexFolderCancelled(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	music := filepath.Join(env.dir, "music")
	writeWAV(t, music, "a.wav", testsupport.TrackA(30).Samples())
	writeWAV(t, music, "b.wav", testsupport.TrackB(30).Samples())

	ctx, cancel := context.WithCancel(context.Background())
	report, err := svc.IndexFolder(ctx, music, func(FolderProgress) { cancel() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if !report.Cancelled || len(report.Indexed) != 1 {
		t.Errorf("Expected one track before cancellation, got %+v", report)
	}
}

func TestMatchHashPoints(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)
	full := testsupport.TrackA(150).Samples()
	track, err := svc.AddTrack(context.Background(), writeWAV(t, env.dir, "a.wav", full), "A", "X")
	if err != nil {
		t.Fatalf("AddTrack failed: %v", err)
	}

	e, _ := fingerprint.NewExtractor(fingerprint.DefaultExtractorConfig())
	points, err := e.ExtractSignal(fingerprint.Signal{SampleRate: testsupport.SampleRate, Samples: testsupport.Excerpt(t, full, 20, 50)})
	if err != nil {
		t.Fatalf("ExtractSignal failed: %v", err)
	}

	report, err := svc.MatchHashPoints("browser", testsupport.SampleRate, points)
	if err != nil {
		t.Fatalf("MatchHashPoints failed: %v", err)
	}
	if report.Best == nil || report.Best.TrackID != track.ID || report.Best.OffsetFrames != -20 {
		t.Errorf("Unexpected report %+v", report.Best)
	}

	if _, err := svc.MatchHashPoints("bad", 0, points); !errors.Is(err, fingerprint.ErrInvalidSignal) {
		t.Errorf("Expected ErrInvalidSignal, got %v", err)
	}
}

func TestMatchEmptyCatalog(t *testing.T) {
	env := newTestEnv(t)
	svc := env.open(t)

	report, err := svc.MatchSignal(fingerprint.Signal{Name: "q", SampleRate: testsupport.SampleRate, Samples: testsupport.TrackA(30).Samples()})
	if err != nil {
		t.Fatalf("MatchSignal failed: %v", err)
	}
	if report.Best != nil || len(report.Candidates) != 0 {
		t.Errorf("Expected no match, got %+v", report)
	}

	if _, err := svc.MatchSignal(fingerprint.Signal{Name: "empty", SampleRate: testsupport.SampleRate}); !errors.Is(err, fingerprint.ErrEmptySignal) {
		t.Errorf("Expected ErrEmptySignal, got %v", err)
	}
}

func TestNewServiceRejectsBadExtractorConfig(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewService(
		WithDBPath(env.dbPath),
		WithExtractorConfig(fingerprint.ExtractorConfig{TimeOffset: 0, FreqOffset: 5}),
	)
	if !errors.Is(err, fingerprint.ErrInvalidExtractorConfig) {
		t.Errorf("Expected ErrInvalidExtractorConfig, got %v", err)
	}
}
