//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "acousticindex.sqlite3"

var (
	ErrTrackNotFound = errors.New("track not found")
	errDBClientNil   = errors.New("db client is nil")
)

// DBClient is the sqlite backed track catalog. It assigns track IDs and
// remembers where each track's normalized audio lives so the in-memory
// index can be rebuilt on start.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Track struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title      string `gorm:"index:idx_track_meta,priority:1" json:"title"`
	Artist     string `gorm:"index:idx_track_meta,priority:2" json:"artist"`
	SourcePath string `gorm:"uniqueIndex:idx_track_source" json:"source_path"`
	SignalPath string `json:"signal_path"`
	DurationMs int    `json:"duration_ms"`
	SampleRate int    `json:"sample_rate"`
	HashPoints int    `json:"hash_points"`
	CreatedAt  time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("ACOUSTIC_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Track{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errDBClientNil
	}
	return nil
}

// RegisterTrack inserts t and fills in its assigned ID.
func (c *DBClient) RegisterTrack(t *Track) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.DB.Create(t).Error; err != nil {
		return fmt.Errorf("creating track: %w", err)
	}
	return nil
}

func (c *DBClient) GetTrack(id uint) (*Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var t Track
	if err := c.DB.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrTrackNotFound, id)
		}
		return nil, fmt.Errorf("querying track %d: %w", id, err)
	}
	return &t, nil
}

// FindBySource looks a track up by the path it was indexed from.
func (c *DBClient) FindBySource(sourcePath string) (*Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var t Track
	err := c.DB.Where("source_path = ?", sourcePath).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, sourcePath)
		}
		return nil, fmt.Errorf("querying track by source: %w", err)
	}
	return &t, nil
}

// ListTracks returns every track ordered by ID.
func (c *DBClient) ListTracks() ([]Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var tracks []Track
	if err := c.DB.Order("id").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	return tracks, nil
}

func (c *DBClient) CountTracks() (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var n int64
	if err := c.DB.Model(&Track{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return int(n), nil
}

// SetHashPoints records how many hash points indexing produced for id.
func (c *DBClient) SetHashPoints(id uint, n int) error {
	if err := c.ready(); err != nil {
		return err
	}
	res := c.DB.Model(&Track{}).Where("id = ?", id).Update("hash_points", n)
	if res.Error != nil {
		return fmt.Errorf("updating hash points: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrTrackNotFound, id)
	}
	return nil
}

// DeleteTrack removes id and returns the deleted row.
func (c *DBClient) DeleteTrack(id uint) (*Track, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var deleted Track
	err := c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: id %d", ErrTrackNotFound, id)
			}
			return err
		}
		return tx.Delete(&Track{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}
