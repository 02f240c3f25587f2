package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var ErrFFprobeMissing = errors.New("ffprobe not found in PATH")

const probeTimeout = 5 * time.Second

// Metadata is what ffprobe reports about a file's tags and first audio stream.
type Metadata struct {
	File       string
	Container  string
	Title      string
	Artist     string
	Album      string
	Duration   time.Duration
	SampleRate int
	Channels   int
}

// probeReport mirrors the subset of `ffprobe -print_format json` we read.
type probeReport struct {
	Format struct {
		Name     string            `json:"format_name"`
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		Type       string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// ReadMetadataFFmpeg runs ffprobe on path. Without a deadline on ctx the
// probe is bounded by a short default timeout.
func ReadMetadataFFmpeg(ctx context.Context, path string) (*Metadata, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, ErrFFprobeMissing
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, probeTimeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path,
	).Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(path, out)
}

func parseProbe(path string, out []byte) (*Metadata, error) {
	var r probeReport
	if err := json.Unmarshal(out, &r); err != nil {
		return nil, fmt.Errorf("decoding ffprobe output: %w", err)
	}

	meta := &Metadata{
		File:      filepath.Base(path),
		Container: r.Format.Name,
	}
	// tag keys are case-insensitive; containers disagree on casing
	for k, v := range r.Format.Tags {
		v = strings.TrimSpace(v)
		switch strings.ToLower(k) {
		case "title":
			meta.Title = v
		case "artist":
			meta.Artist = v
		case "album":
			meta.Album = v
		}
	}
	if secs, err := strconv.ParseFloat(r.Format.Duration, 64); err == nil {
		meta.Duration = time.Duration(math.Round(secs*1000)) * time.Millisecond
	}

	for _, s := range r.Streams {
		if s.Type != "audio" {
			continue
		}
		meta.SampleRate, _ = strconv.Atoi(s.SampleRate)
		meta.Channels = s.Channels
		return meta, nil
	}
	return nil, fmt.Errorf("%s: no audio stream", path)
}
