package audio

import (
	"testing"
	"time"
)

func TestParseProbe(t *testing.T) {
	out := []byte(`{
		"format": {"duration": "184.32", "format_name": "mp3", "tags": {"TITLE": "Blue Monday", "artist": " New Order "}},
		"streams": [
			{"codec_type": "video"},
			{"codec_type": "audio", "sample_rate": "44100", "channels": 2, "bits_per_sample": 0}
		]
	}`)

	meta, err := parseProbe("/music/blue.mp3", out)
	if err != nil {
		t.Fatalf("parseProbe failed: %v", err)
	}
	if meta.Title != "Blue Monday" || meta.Artist != "New Order" {
		t.Errorf("Unexpected tags: %q / %q", meta.Title, meta.Artist)
	}
	if meta.SampleRate != 44100 || meta.Channels != 2 || meta.Duration != 184320*time.Millisecond {
		t.Errorf("Unexpected stream info: %+v", meta)
	}
	if meta.File != "blue.mp3" || meta.Container != "mp3" {
		t.Errorf("Unexpected file info: %+v", meta)
	}
}

func TestParseProbeWithoutAudio(t *testing.T) {
	if _, err := parseProbe("x", []byte(`{"streams": [{"codec_type": "video"}]}`)); err == nil {
		t.Error("Expected error when no audio stream is present")
	}
}
