package acousticindex

import (
	"context"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/fingerprint"
)

type Service interface {
	AddTrack(ctx context.Context, audioPath, title, artist string) (*Track, error)
	AddTrackAs(ctx context.Context, audioPath, sourceKey, title, artist string) (*Track, error)
	IndexFolder(ctx context.Context, dir string, progress ProgressFunc) (*FolderReport, error)
	Match(ctx context.Context, audioPath string) (*MatchReport, error)
	MatchSignal(sig fingerprint.Signal) (*MatchReport, error)
	MatchHashPoints(name string, sampleRate float64, points []fingerprint.HashPoint) (*MatchReport, error)
	GetTrack(id int) (*Track, error)
	ListTracks() ([]Track, error)
	DeleteTrack(id int) error
	Stats() (*Stats, error)
	Close() error
}

// Catalog assigns track IDs and stores track metadata.
type Catalog interface {
	RegisterTrack(t *Track) error
	GetTrack(id int) (*Track, error)
	FindBySource(sourcePath string) (*Track, error)
	ListTracks() ([]Track, error)
	CountTracks() (int, error)
	SetHashPoints(id, n int) error
	DeleteTrack(id int) (*Track, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
