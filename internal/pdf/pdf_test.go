package pdf_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/pdf"
	"github.com/skillsenselab/tubescribe/internal/store"
)

func sampleTranscript() *store.Transcript {
	formatted := "# Introduction\n\nThis is **important** material.\n\n- first point\n- second point\n\n## Details\n\nMore prose here."
	return &store.Transcript{
		VideoTitle:          "Go Concurrency Patterns",
		YoutubeURL:          "https://www.youtube.com/watch?v=abc",
		Transcript:          "This is the cleaned transcript.\n\nIt has two paragraphs.",
		FormattedTranscript: &formatted,
	}
}

func TestRenderCleanVersion(t *testing.T) {
	out, err := pdf.New().Render(sampleTranscript(), pdf.VersionClean)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF header (got %q)", out[:8])
	}
	if len(out) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(out))
	}
}

func TestRenderFormattedVersion(t *testing.T) {
	out, err := pdf.New().Render(sampleTranscript(), pdf.VersionFormatted)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("output does not start with %PDF header")
	}
}

func TestRenderFormattedFallsBackToClean(t *testing.T) {
	tr := sampleTranscript()
	tr.FormattedTranscript = nil
	out, err := pdf.New().Render(tr, pdf.VersionFormatted)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("fallback render produced no PDF")
	}

	empty := ""
	tr.FormattedTranscript = &empty
	if _, err := pdf.New().Render(tr, pdf.VersionFormatted); err != nil {
		t.Fatalf("Render with empty formatted text: %v", err)
	}
}

func TestRenderUnknownVersion(t *testing.T) {
	_, err := pdf.New().Render(sampleTranscript(), "annotated")
	var appErr *apperr.AppError
	if !errors.As(err, &appErr) || appErr.Code != apperr.ErrCodeInvalidInput {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestRenderEmptyTranscript(t *testing.T) {
	tr := &store.Transcript{VideoTitle: "Empty", Transcript: ""}
	out, err := pdf.New().Render(tr, pdf.VersionClean)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Error("empty transcript render produced no PDF")
	}
}

func TestFilename(t *testing.T) {
	date := time.Now().Format("20060102")
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"spaces become underscores", "Go Concurrency Patterns", "Go_Concurrency_Patterns"},
		{"punctuation dropped", "What?! A (great) talk...", "What_A_great_talk"},
		{"empty title", "", "transcript"},
		{"symbols only", "???", "transcript"},
		{"truncated to 60", strings.Repeat("a", 80), strings.Repeat("a", 60)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := &store.Transcript{VideoTitle: tc.title}
			got := pdf.Filename(tr, pdf.VersionClean)
			want := fmt.Sprintf("%s_clean_%s.pdf", tc.want, date)
			if got != want {
				t.Errorf("Filename = %q, want %q", got, want)
			}
		})
	}
}
