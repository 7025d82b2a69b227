package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/process"
)

// chunkBitrate bounds each re-encoded slice well under the upload cap.
const chunkBitrate = "64k"

// Chunker slices an encoded audio file into fixed-duration segments,
// re-encoding each independently at a reduced bitrate.
type Chunker struct {
	cfg config.YouTubeConfig
	run Runner
	log *logger.Logger
}

// NewChunker creates a Chunker. A nil runner defaults to process.Run.
func NewChunker(cfg config.YouTubeConfig, run Runner, log *logger.Logger) *Chunker {
	cfg.ApplyDefaults()
	if run == nil {
		run = process.Run
	}
	return &Chunker{cfg: cfg, run: run, log: log.WithComponent("chunker")}
}

// NeedsChunking reports whether the file exceeds the size threshold.
// The threshold sits just under the transcription API's 25 MB request
// cap; it is a business rule, not a tuning knob.
func (c *Chunker) NeedsChunking(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, apperr.Internal(err)
	}
	return info.Size() > c.cfg.ChunkThresholdBytes, nil
}

// ChunkCount computes ceil(total / chunk) without floating point.
func ChunkCount(total, chunk time.Duration) int {
	if total <= 0 || chunk <= 0 {
		return 0
	}
	return int((total + chunk - 1) / chunk)
}

// Split slices the file into ceil(duration/chunkDuration) non-overlapping
// segments and returns their paths in chronological order. The last
// segment may be shorter.
func (c *Chunker) Split(ctx context.Context, path string) ([]string, error) {
	total, err := c.probeDuration(ctx, path)
	if err != nil {
		return nil, err
	}

	count := ChunkCount(total, c.cfg.ChunkDuration)
	if count <= 1 {
		return []string{path}, nil
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	chunks := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out := fmt.Sprintf("%s_chunk%03d.mp3", base, i)
		start := time.Duration(i) * c.cfg.ChunkDuration

		args := []string{
			"-y",
			"-i", path,
			"-ss", formatSeconds(start),
			"-t", formatSeconds(c.cfg.ChunkDuration),
			"-vn",
			"-b:a", chunkBitrate,
			out,
		}
		res, err := c.run(ctx, process.Command{Binary: c.cfg.FFmpegBinary, Args: args})
		if err != nil {
			removeAll(chunks)
			var stderr string
			if res != nil {
				stderr = string(res.Stderr)
			}
			return nil, apperr.Internal(fmt.Errorf("ffmpeg chunk %d: %w: %s", i, err, stderr))
		}
		chunks = append(chunks, out)
	}

	c.log.Info("Audio chunked", logger.Fields(
		"path", path,
		"duration_s", total.Seconds(),
		"chunks", count,
	))
	return chunks, nil
}

// probeDuration reads the container duration via ffprobe.
func (c *Chunker) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	res, err := c.run(ctx, process.Command{Binary: c.cfg.FFprobeBinary, Args: args})
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("ffprobe: %w", err))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(res.Stdout)), 64)
	if err != nil {
		return 0, apperr.Internal(fmt.Errorf("ffprobe output %q: %w", res.Stdout, err))
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
