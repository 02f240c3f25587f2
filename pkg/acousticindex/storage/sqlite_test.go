package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// setupTestDB creates a catalog in a temporary directory
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "catalog", "test_catalog.sqlite3")
	t.Setenv("ACOUSTIC_DB_PATH", dbPath)

	client, err := NewDBClient()
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})
	return client, dbPath
}

func TestNewDBClient(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected open database handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestRegisterAndGetTrack(t *testing.T) {
	client, _ := setupTestDB(t)

	first := &Track{Title: "One", Artist: "A", SourcePath: "/music/one.wav", SignalPath: "/lib/1.wav", DurationMs: 2000, SampleRate: 44100}
	second := &Track{Title: "Two", Artist: "B", SourcePath: "/music/two.wav", SignalPath: "/lib/2.wav"}

	if err := client.RegisterTrack(first); err != nil {
		t.Fatalf("RegisterTrack failed: %v", err)
	}
	if err := client.RegisterTrack(second); err != nil {
		t.Fatalf("RegisterTrack failed: %v", err)
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Errorf("Expected increasing IDs, got %d then %d", first.ID, second.ID)
	}

	got, err := client.GetTrack(first.ID)
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if got.Title != "One" || got.SignalPath != "/lib/1.wav" || got.DurationMs != 2000 {
		t.Errorf("Unexpected track: %+v", got)
	}

	bySource, err := client.FindBySource("/music/two.wav")
	if err != nil {
		t.Fatalf("FindBySource failed: %v", err)
	}
	if bySource.ID != second.ID {
		t.Errorf("Expected track %d, got %d", second.ID, bySource.ID)
	}
}

func TestRegisterTrackRejectsDuplicateSource(t *testing.T) {
	client, _ := setupTestDB(t)

	if err := client.RegisterTrack(&Track{Title: "One", SourcePath: "/music/one.wav"}); err != nil {
		t.Fatalf("RegisterTrack failed: %v", err)
	}
	if err := client.RegisterTrack(&Track{Title: "Again", SourcePath: "/music/one.wav"}); err == nil {
		t.Error("Expected duplicate source path to be rejected")
	}
}

func TestTrackNotFound(t *testing.T) {
	client, _ := setupTestDB(t)

	if _, err := client.GetTrack(99); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
	if _, err := client.FindBySource("/nope.wav"); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
	if _, err := client.DeleteTrack(99); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
	if err := client.SetHashPoints(99, 10); !errors.Is(err, ErrTrackNotFound) {
		t.Errorf("Expected ErrTrackNotFound, got %v", err)
	}
}

func TestListCountAndDelete(t *testing.T) {
	client, _ := setupTestDB(t)

	for _, name := range []string{"a", "b", "c"} {
		if err := client.RegisterTrack(&Track{Title: name, SourcePath: "/music/" + name}); err != nil {
			t.Fatalf("RegisterTrack failed: %v", err)
		}
	}

	tracks, err := client.ListTracks()
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if len(tracks) != 3 || tracks[0].Title != "a" || tracks[2].Title != "c" {
		t.Fatalf("Unexpected tracks: %+v", tracks)
	}

	if err := client.SetHashPoints(tracks[1].ID, 1234); err != nil {
		t.Fatalf("SetHashPoints failed: %v", err)
	}
	got, _ := client.GetTrack(tracks[1].ID)
	if got.HashPoints != 1234 {
		t.Errorf("Expected 1234 hash points, got %d", got.HashPoints)
	}

	deleted, err := client.DeleteTrack(tracks[0].ID)
	if err != nil {
		t.Fatalf("DeleteTrack failed: %v", err)
	}
	if deleted.Title != "a" {
		t.Errorf("Expected deleted track 'a', got %q", deleted.Title)
	}

	n, err := client.CountTracks()
	if err != nil {
		t.Fatalf("CountTracks failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 tracks, got %d", n)
	}
}

func TestNilClient(t *testing.T) {
	var c *DBClient
	if err := c.Close(); err != nil {
		t.Errorf("Expected nil error closing nil client, got %v", err)
	}
	if _, err := c.ListTracks(); err == nil {
		t.Error("Expected error from nil client")
	}
}
