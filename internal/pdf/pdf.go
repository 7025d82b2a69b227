// Package pdf renders transcripts to downloadable PDF documents.
package pdf

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/store"
)

// Version selects which transcript text goes into the document.
const (
	VersionClean     = "clean"
	VersionFormatted = "formatted"
)

const disclaimer = "AI-Generated Content: This transcript was created using AI technology " +
	"(OpenAI Whisper & GPT). AI may produce errors, mishear words, or misinterpret context. " +
	"Please verify accuracy for critical applications."

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Renderer produces transcript PDFs.
type Renderer struct{}

// New creates a Renderer.
func New() *Renderer { return &Renderer{} }

// Render builds a PDF for the given transcript version and returns its
// bytes. The formatted version falls back to the clean text when no
// formatted transcript exists. Unknown versions are an input error.
func (r *Renderer) Render(t *store.Transcript, version string) ([]byte, error) {
	switch version {
	case VersionClean:
		return r.render(t, t.Transcript, false)
	case VersionFormatted:
		text := t.Transcript
		if t.FormattedTranscript != nil && *t.FormattedTranscript != "" {
			text = *t.FormattedTranscript
		}
		return r.render(t, text, true)
	default:
		return nil, apperr.InvalidInput("version", fmt.Sprintf("unknown version %q, expected %q or %q", version, VersionClean, VersionFormatted))
	}
}

func (r *Renderer) render(t *store.Transcript, text string, markdown bool) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(25, 25, 25)
	doc.SetAutoPageBreak(true, 25)
	doc.AddPage()

	// Core fonts are cp1252; the translator keeps accented characters
	// readable instead of dropping them.
	tr := doc.UnicodeTranslatorFromDescriptor("")

	if !markdown || !strings.HasPrefix(strings.TrimSpace(text), "# ") {
		doc.SetFont("Helvetica", "B", 20)
		title := t.VideoTitle
		if title == "" {
			title = "Untitled Transcript"
		}
		doc.MultiCell(0, 9, tr(title), "", "C", false)
		doc.Ln(4)
	}

	doc.SetFont("Helvetica", "", 9)
	doc.SetTextColor(102, 102, 102)
	meta := fmt.Sprintf("Source: %s\nCreated: %s", t.YoutubeURL, t.CreatedAt.Format("January 2, 2006 at 3:04 PM"))
	doc.MultiCell(0, 5, tr(meta), "", "C", false)
	doc.Ln(2)
	doc.MultiCell(0, 5, tr(disclaimer), "", "C", false)
	doc.SetTextColor(51, 51, 51)
	doc.Ln(6)

	if markdown {
		r.writeMarkdown(doc, tr, text)
	} else {
		r.writeParagraphs(doc, tr, text)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, apperr.Internal(fmt.Errorf("pdf: render: %w", err))
	}
	return buf.Bytes(), nil
}

// writeParagraphs lays out plain text split on blank lines.
func (r *Renderer) writeParagraphs(doc *fpdf.Fpdf, tr func(string) string, text string) {
	doc.SetFont("Helvetica", "", 11)
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		doc.MultiCell(0, 6, tr(para), "", "J", false)
		doc.Ln(3)
	}
}

// writeMarkdown lays out the formatted transcript, understanding the
// subset of markdown the refinement pass emits: #/##/### headings,
// bullets, and **bold** runs.
func (r *Renderer) writeMarkdown(doc *fpdf.Fpdf, tr func(string) string, text string) {
	lines := strings.Split(text, "\n")
	var para []string

	flush := func() {
		if len(para) == 0 {
			return
		}
		r.writeInline(doc, tr, strings.Join(para, " "), 11, 0)
		doc.Ln(3)
		para = para[:0]
	}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "### "):
			flush()
			doc.SetFont("Helvetica", "B", 13)
			doc.MultiCell(0, 7, tr(strings.TrimSpace(line[4:])), "", "L", false)
			doc.Ln(1)
		case strings.HasPrefix(line, "## "):
			flush()
			doc.SetFont("Helvetica", "B", 15)
			doc.MultiCell(0, 8, tr(strings.TrimSpace(line[3:])), "", "L", false)
			doc.Ln(1)
		case strings.HasPrefix(line, "# "):
			flush()
			doc.SetFont("Helvetica", "B", 20)
			doc.MultiCell(0, 9, tr(strings.TrimSpace(line[2:])), "", "C", false)
			doc.Ln(3)
		case isBullet(line):
			flush()
			r.writeInline(doc, tr, "• "+strings.TrimSpace(line[2:]), 11, 6)
			doc.Ln(1)
		default:
			para = append(para, line)
		}
	}
	flush()
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ")
}

// writeInline renders one paragraph honoring **bold** spans.
func (r *Renderer) writeInline(doc *fpdf.Fpdf, tr func(string) string, text string, size float64, indent float64) {
	if indent > 0 {
		doc.SetLeftMargin(25 + indent)
		defer doc.SetLeftMargin(25)
	}
	if !boldPattern.MatchString(text) {
		doc.SetFont("Helvetica", "", size)
		doc.MultiCell(0, 6, tr(text), "", "J", false)
		return
	}

	// Write alternating regular and bold runs on a shared baseline.
	doc.SetFont("Helvetica", "", size)
	rest := text
	for rest != "" {
		loc := boldPattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			doc.Write(6, tr(rest))
			break
		}
		if loc[0] > 0 {
			doc.SetFont("Helvetica", "", size)
			doc.Write(6, tr(rest[:loc[0]]))
		}
		doc.SetFont("Helvetica", "B", size)
		doc.Write(6, tr(rest[loc[2]:loc[3]]))
		doc.SetFont("Helvetica", "", size)
		rest = rest[loc[1]:]
	}
	doc.Ln(6)
}

// Filename derives the download filename for a transcript.
func Filename(t *store.Transcript, version string) string {
	title := t.VideoTitle
	if title == "" {
		title = "transcript"
	}
	safe := make([]rune, 0, len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			safe = append(safe, r)
		case r == ' ', r == '-', r == '_':
			safe = append(safe, '_')
		}
	}
	name := strings.Trim(string(safe), "_")
	if name == "" {
		name = "transcript"
	}
	if len(name) > 60 {
		name = name[:60]
	}
	return fmt.Sprintf("%s_%s_%s.pdf", name, version, time.Now().Format("20060102"))
}
