// Package pipeline runs the full transcription flow for a URL: dedup
// lookup, audio download, optional chunking, speech-to-text, and the
// two-pass refinement, persisting the result.
package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/media"
	"github.com/skillsenselab/tubescribe/internal/refine"
	"github.com/skillsenselab/tubescribe/internal/store"
)

// Transcriber converts audio files to text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (string, error)
	TranscribeChunks(ctx context.Context, paths []string) (string, error)
}

// Refiner runs the clean and format passes.
type Refiner interface {
	Clean(ctx context.Context, raw string) refine.Result
	Format(ctx context.Context, clean, videoTitle string) refine.Result
}

// Fetcher downloads audio for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*media.Audio, error)
}

// Splitter decides whether a file exceeds the upload limit and cuts it
// into chunks.
type Splitter interface {
	NeedsChunking(path string) (bool, error)
	Split(ctx context.Context, path string) ([]string, error)
}

// Result is the outcome of a transcription run.
type Result struct {
	Transcript *store.Transcript
	// Duplicate is set when the transcript was copied from an earlier
	// run instead of being produced by the full pipeline.
	Duplicate bool
	// Degraded is set when a refinement pass failed and the stored text
	// fell back to an earlier stage.
	Degraded bool
}

// Service orchestrates one transcription per URL at a time.
type Service struct {
	store       *store.Store
	fetcher     Fetcher
	splitter    Splitter
	transcriber Transcriber
	refiner     Refiner
	locks       *urlLocks
	log         *logger.Logger
}

// New creates the pipeline service.
func New(st *store.Store, fetcher Fetcher, splitter Splitter, tr Transcriber, rf Refiner, log *logger.Logger) *Service {
	return &Service{
		store:       st,
		fetcher:     fetcher,
		splitter:    splitter,
		transcriber: tr,
		refiner:     rf,
		locks:       newURLLocks(),
		log:         log.WithComponent("pipeline"),
	}
}

// Transcribe produces a transcript for the URL on behalf of a user.
//
// Runs for the same URL are serialized: the second request for a URL
// waits for the first and then takes the dedup path instead of starting
// a second download.
func (s *Service) Transcribe(ctx context.Context, userID uint, url string) (*Result, error) {
	if err := media.ValidateURL(url); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(url)
	defer unlock()

	if res, err := s.lookupDuplicate(ctx, userID, url); err != nil || res != nil {
		return res, err
	}

	start := time.Now()
	s.log.Info("transcription started", logger.Fields(
		logger.FieldUserID, userID, logger.FieldURL, url))

	audio, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(audio.Path); err != nil && !os.IsNotExist(err) {
			s.log.Warn("remove audio failed", logger.Fields(
				logger.FieldError, err.Error(), "path", audio.Path))
		}
	}()

	raw, err := s.transcribeAudio(ctx, audio.Path)
	if err != nil {
		return nil, err
	}

	cleaned := s.refiner.Clean(ctx, raw)
	formatted := s.refiner.Format(ctx, cleaned.Text, audio.Title)

	t := &store.Transcript{
		UserID:     userID,
		YoutubeURL: url,
		VideoTitle: audio.Title,
		Transcript: cleaned.Text,
	}
	if !formatted.Degraded {
		t.FormattedTranscript = &formatted.Text
	}
	if err := s.store.SaveTranscript(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info("transcription finished", logger.Fields(
		logger.FieldUserID, userID,
		logger.FieldURL, url,
		"transcript_id", t.ID,
		logger.FieldDuration, time.Since(start).String(),
	))
	return &Result{Transcript: t, Degraded: cleaned.Degraded || formatted.Degraded}, nil
}

// lookupDuplicate returns a copy of an earlier run's transcript when one
// exists for the URL. A user re-requesting their own earlier URL also
// gets a copy, matching the history semantics of one row per request.
func (s *Service) lookupDuplicate(ctx context.Context, userID uint, url string) (*Result, error) {
	original, err := s.store.FindOriginalByURL(ctx, url)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, nil
	}

	copied, err := s.store.CopyTranscriptForUser(ctx, original.ID, userID)
	if err != nil {
		return nil, err
	}
	s.log.Info("duplicate served", logger.Fields(
		logger.FieldUserID, userID,
		logger.FieldURL, url,
		"original_id", original.ID,
		"transcript_id", copied.ID,
	))
	return &Result{Transcript: copied, Duplicate: true}, nil
}

// transcribeAudio picks the single-shot or chunked path based on file
// size. Chunks are cut to stay under the speech API upload limit.
func (s *Service) transcribeAudio(ctx context.Context, path string) (string, error) {
	needsChunking, err := s.splitter.NeedsChunking(path)
	if err != nil {
		return "", err
	}
	if !needsChunking {
		return s.transcriber.TranscribeFile(ctx, path)
	}

	chunks, err := s.splitter.Split(ctx, path)
	if err != nil {
		return "", err
	}
	return s.transcriber.TranscribeChunks(ctx, chunks)
}
