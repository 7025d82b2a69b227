package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/logger"
	"github.com/skillsenselab/tubescribe/internal/media"
	"github.com/skillsenselab/tubescribe/internal/pipeline"
	"github.com/skillsenselab/tubescribe/internal/refine"
	"github.com/skillsenselab/tubescribe/internal/store"
)

const videoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type fakeFetcher struct {
	mu      sync.Mutex
	dir     string
	title   string
	err     error
	fetches int
	paths   []string
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*media.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.fetches++
	path := filepath.Join(f.dir, "audio.mp3")
	if err := os.WriteFile(path, []byte("mp3 bytes"), 0o644); err != nil {
		return nil, err
	}
	f.paths = append(f.paths, path)
	return &media.Audio{Path: path, Title: f.title}, nil
}

type fakeSplitter struct {
	chunked bool
	chunks  []string
	splits  int
}

func (f *fakeSplitter) NeedsChunking(string) (bool, error) { return f.chunked, nil }

func (f *fakeSplitter) Split(_ context.Context, _ string) ([]string, error) {
	f.splits++
	return f.chunks, nil
}

type fakeTranscriber struct {
	text       string
	err        error
	singleRuns int
	chunkRuns  int
}

func (f *fakeTranscriber) TranscribeFile(_ context.Context, _ string) (string, error) {
	f.singleRuns++
	return f.text, f.err
}

func (f *fakeTranscriber) TranscribeChunks(_ context.Context, _ []string) (string, error) {
	f.chunkRuns++
	return f.text, f.err
}

type fakeRefiner struct {
	cleanDegraded  bool
	formatDegraded bool
}

func (f *fakeRefiner) Clean(_ context.Context, raw string) refine.Result {
	if f.cleanDegraded {
		return refine.Result{Text: raw, Degraded: true}
	}
	return refine.Result{Text: "clean: " + raw}
}

func (f *fakeRefiner) Format(_ context.Context, clean, title string) refine.Result {
	if f.formatDegraded {
		return refine.Result{Text: clean, Degraded: true}
	}
	return refine.Result{Text: "# " + title + "\n\n" + clean}
}

type harness struct {
	svc         *pipeline.Service
	store       *store.Store
	fetcher     *fakeFetcher
	splitter    *fakeSplitter
	transcriber *fakeTranscriber
	refiner     *fakeRefiner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := logger.NewDefault("test")
	st, err := store.OpenInMemory(log)
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		store:       st,
		fetcher:     &fakeFetcher{dir: t.TempDir(), title: "Test Video"},
		splitter:    &fakeSplitter{},
		transcriber: &fakeTranscriber{text: "raw words"},
		refiner:     &fakeRefiner{},
	}
	h.svc = pipeline.New(st, h.fetcher, h.splitter, h.transcriber, h.refiner, log)
	return h
}

func seedUser(t *testing.T, st *store.Store, email string) uint {
	t.Helper()
	u := &store.User{Email: email, PasswordHash: "x", Role: store.RoleUser, Status: store.UserActive}
	if err := st.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

func TestTranscribe_FullRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	userID := seedUser(t, h.store, "a@example.com")

	res, err := h.svc.Transcribe(ctx, userID, videoURL)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Duplicate || res.Degraded {
		t.Errorf("flags = duplicate:%v degraded:%v", res.Duplicate, res.Degraded)
	}
	tr := res.Transcript
	if tr.ID == 0 {
		t.Fatal("transcript not persisted")
	}
	if tr.Transcript != "clean: raw words" {
		t.Errorf("clean text = %q", tr.Transcript)
	}
	if tr.FormattedTranscript == nil || !strings.HasPrefix(*tr.FormattedTranscript, "# Test Video") {
		t.Errorf("formatted = %v", tr.FormattedTranscript)
	}
	if tr.VideoTitle != "Test Video" || tr.IsDuplicate {
		t.Errorf("transcript = %+v", tr)
	}

	// Audio file is cleaned up after the run.
	if _, err := os.Stat(h.fetcher.paths[0]); !os.IsNotExist(err) {
		t.Error("downloaded audio not removed")
	}
	if h.transcriber.singleRuns != 1 || h.transcriber.chunkRuns != 0 {
		t.Errorf("runs = %d single, %d chunked", h.transcriber.singleRuns, h.transcriber.chunkRuns)
	}
}

func TestTranscribe_ChunkedRun(t *testing.T) {
	h := newHarness(t)
	h.splitter.chunked = true
	h.splitter.chunks = []string{"c0.mp3", "c1.mp3"}
	userID := seedUser(t, h.store, "a@example.com")

	if _, err := h.svc.Transcribe(context.Background(), userID, videoURL); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if h.splitter.splits != 1 || h.transcriber.chunkRuns != 1 || h.transcriber.singleRuns != 0 {
		t.Errorf("splits=%d chunkRuns=%d singleRuns=%d",
			h.splitter.splits, h.transcriber.chunkRuns, h.transcriber.singleRuns)
	}
}

func TestTranscribe_DuplicateServedFromStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := seedUser(t, h.store, "a@example.com")
	second := seedUser(t, h.store, "b@example.com")

	orig, err := h.svc.Transcribe(ctx, first, videoURL)
	if err != nil {
		t.Fatal(err)
	}

	res, err := h.svc.Transcribe(ctx, second, videoURL)
	if err != nil {
		t.Fatalf("second Transcribe: %v", err)
	}
	if !res.Duplicate {
		t.Fatal("second run not served as duplicate")
	}
	if !res.Transcript.IsDuplicate || res.Transcript.OriginalTranscriptID == nil ||
		*res.Transcript.OriginalTranscriptID != orig.Transcript.ID {
		t.Errorf("copy = %+v", res.Transcript)
	}
	if res.Transcript.UserID != second {
		t.Errorf("copy owner = %d", res.Transcript.UserID)
	}
	if h.fetcher.fetches != 1 {
		t.Errorf("fetches = %d, want 1 (duplicate must not download)", h.fetcher.fetches)
	}
}

func TestTranscribe_DegradedFlags(t *testing.T) {
	h := newHarness(t)
	h.refiner.formatDegraded = true
	userID := seedUser(t, h.store, "a@example.com")

	res, err := h.svc.Transcribe(context.Background(), userID, videoURL)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded {
		t.Error("degraded flag not set")
	}
	// A degraded format pass stores no formatted version.
	if res.Transcript.FormattedTranscript != nil {
		t.Errorf("formatted = %q, want nil", *res.Transcript.FormattedTranscript)
	}
	if res.Transcript.Transcript != "clean: raw words" {
		t.Errorf("clean text = %q", res.Transcript.Transcript)
	}
}

func TestTranscribe_InvalidURL(t *testing.T) {
	h := newHarness(t)
	userID := seedUser(t, h.store, "a@example.com")

	for _, url := range []string{"", "https://vimeo.com/12345"} {
		_, err := h.svc.Transcribe(context.Background(), userID, url)
		var appErr *apperr.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("url %q: err = %v, want AppError", url, err)
		}
	}
	if h.fetcher.fetches != 0 {
		t.Error("invalid URL reached the fetcher")
	}
}

func TestTranscribe_TranscriptionFailureCleansUp(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = errors.New("speech api down")
	userID := seedUser(t, h.store, "a@example.com")

	if _, err := h.svc.Transcribe(context.Background(), userID, videoURL); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(h.fetcher.paths[0]); !os.IsNotExist(err) {
		t.Error("audio not removed after failure")
	}
	// Nothing was persisted.
	if got, err := h.store.FindOriginalByURL(context.Background(), videoURL); err != nil || got != nil {
		t.Errorf("FindOriginalByURL = %v, %v", got, err)
	}
}

func TestTranscribe_SameURLSerialized(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := seedUser(t, h.store, "a@example.com")
	second := seedUser(t, h.store, "b@example.com")

	var wg sync.WaitGroup
	results := make([]*pipeline.Result, 2)
	errs := make([]error, 2)
	for i, uid := range []uint{first, second} {
		wg.Add(1)
		go func(i int, uid uint) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Transcribe(ctx, uid, videoURL)
		}(i, uid)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	// Exactly one run did the work; the other was served a copy.
	if h.fetcher.fetches != 1 {
		t.Fatalf("fetches = %d, want 1", h.fetcher.fetches)
	}
	dups := 0
	for _, r := range results {
		if r.Duplicate {
			dups++
		}
	}
	if dups != 1 {
		t.Errorf("duplicate results = %d, want 1", dups)
	}
}
