package acousticindex

import (
	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex/storage"
)

// sqliteCatalog adapts storage.DBClient to the Catalog interface.
type sqliteCatalog struct {
	db *storage.DBClient
}

// NewSQLiteCatalog opens (or creates) the sqlite catalog at dbPath.
func NewSQLiteCatalog(dbPath string) (Catalog, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &sqliteCatalog{db: db}, nil
}

func fromRow(row *storage.Track) *Track {
	return &Track{
		ID:         int(row.ID),
		Title:      row.Title,
		Artist:     row.Artist,
		SourcePath: row.SourcePath,
		SignalPath: row.SignalPath,
		DurationMs: row.DurationMs,
		SampleRate: row.SampleRate,
		HashPoints: row.HashPoints,
		CreatedAt:  row.CreatedAt,
	}
}

func (c *sqliteCatalog) RegisterTrack(t *Track) error {
	row := &storage.Track{
		Title:      t.Title,
		Artist:     t.Artist,
		SourcePath: t.SourcePath,
		SignalPath: t.SignalPath,
		DurationMs: t.DurationMs,
		SampleRate: t.SampleRate,
		HashPoints: t.HashPoints,
	}
	if err := c.db.RegisterTrack(row); err != nil {
		return err
	}
	t.ID = int(row.ID)
	t.CreatedAt = row.CreatedAt
	return nil
}

func (c *sqliteCatalog) GetTrack(id int) (*Track, error) {
	row, err := c.db.GetTrack(uint(id))
	if err != nil {
		return nil, err
	}
	return fromRow(row), nil
}

func (c *sqliteCatalog) FindBySource(sourcePath string) (*Track, error) {
	row, err := c.db.FindBySource(sourcePath)
	if err != nil {
		return nil, err
	}
	return fromRow(row), nil
}

func (c *sqliteCatalog) ListTracks() ([]Track, error) {
	rows, err := c.db.ListTracks()
	if err != nil {
		return nil, err
	}
	tracks := make([]Track, len(rows))
	for i := range rows {
		tracks[i] = *fromRow(&rows[i])
	}
	return tracks, nil
}

func (c *sqliteCatalog) CountTracks() (int, error) {
	return c.db.CountTracks()
}

func (c *sqliteCatalog) SetHashPoints(id, n int) error {
	return c.db.SetHashPoints(uint(id), n)
}

func (c *sqliteCatalog) DeleteTrack(id int) (*Track, error) {
	row, err := c.db.DeleteTrack(uint(id))
	if err != nil {
		return nil, err
	}
	return fromRow(row), nil
}

func (c *sqliteCatalog) Close() error {
	return c.db.Close()
}
