// Package media acquires audio from video URLs and slices oversized
// files into bounded-duration chunks for the transcription API.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/process"
)

// Runner executes an external command. Indirection for tests.
type Runner func(ctx context.Context, cmd process.Command) (*process.Result, error)

// Audio is a downloaded audio track on local disk. The caller owns the
// file and must remove it on every exit path.
type Audio struct {
	Path  string
	Title string
}

// Downloader fetches the best audio track of a video via yt-dlp and
// transcodes it to mp3.
type Downloader struct {
	cfg config.YouTubeConfig
	run Runner
	log *logger.Logger
}

// NewDownloader creates a Downloader. A nil runner defaults to process.Run.
func NewDownloader(cfg config.YouTubeConfig, run Runner, log *logger.Logger) *Downloader {
	cfg.ApplyDefaults()
	if run == nil {
		run = process.Run
	}
	return &Downloader{cfg: cfg, run: run, log: log.WithComponent("downloader")}
}

// ValidateURL checks that the URL carries a recognized YouTube marker.
func ValidateURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return apperr.MissingField("youtube_url")
	}
	if !strings.Contains(url, "youtube.com/") && !strings.Contains(url, "youtu.be/") {
		return apperr.InvalidInput("youtube_url", "not a recognized YouTube URL")
	}
	return nil
}

// Fetch downloads the audio track and returns its local path and the
// video title. The output path is keyed by the video identifier so
// repeated runs overwrite instead of accumulating.
func (d *Downloader) Fetch(ctx context.Context, url string) (*Audio, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}

	tmpDir := d.cfg.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	outputTemplate := filepath.Join(tmpDir, "%(id)s.%(ext)s")

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", outputTemplate,
		"--no-simulate",
		"--print", "id",
		"--print", "title",
	}
	if d.cfg.CookieFile != "" {
		args = append(args, "--cookies", d.cfg.CookieFile)
	}
	args = append(args, url)

	runCtx, cancel := context.WithTimeout(ctx, d.cfg.DownloadTimeout)
	defer cancel()

	res, err := d.run(runCtx, process.Command{Binary: d.cfg.DownloaderBinary, Args: args})
	if err != nil {
		var output string
		if res != nil {
			output = string(res.Stderr) + string(res.Stdout)
		}
		kind := Classify(output)
		d.log.Warn("Download failed", logger.Fields(
			logger.FieldURL, url,
			"kind", string(kind),
			logger.FieldError, err.Error(),
		))
		return nil, downloadError(kind, err)
	}

	id, title, err := parsePrintOutput(string(res.Stdout))
	if err != nil {
		return nil, apperr.DownloadFailed("Downloader returned unexpected output.", err)
	}

	path := filepath.Join(tmpDir, id+".mp3")
	if _, err := os.Stat(path); err != nil {
		return nil, apperr.DownloadFailed("Downloaded audio file was not found.", err)
	}

	d.log.Info("Audio downloaded", logger.Fields(logger.FieldURL, url, "title", title, "path", path))
	return &Audio{Path: path, Title: title}, nil
}

// parsePrintOutput extracts the video id and title from yt-dlp's
// --print output (one value per line, in flag order).
func parsePrintOutput(out string) (id, title string, err error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return "", "", errors.New("expected id and title lines")
	}
	id = strings.TrimSpace(lines[0])
	title = strings.TrimSpace(lines[1])
	if id == "" {
		return "", "", errors.New("empty video id")
	}
	if title == "" {
		title = fmt.Sprintf("Video %s", id)
	}
	return id, title, nil
}
