// Package transcribe converts audio files to text through the OpenAI
// Whisper API.
package transcribe

import (
	"context"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skillsenselab/tubescribe/internal/apperr"
	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
)

// speechAPI is the slice of the OpenAI client the transcriber needs.
type speechAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Client transcribes audio through a hosted speech-to-text API.
type Client struct {
	api   speechAPI
	model string
	log   *logger.Logger
}

// New creates a transcription client backed by the configured OpenAI account.
func New(cfg config.OpenAIConfig, log *logger.Logger) *Client {
	cfg.ApplyDefaults()
	return &Client{
		api:   openai.NewClient(cfg.APIKey),
		model: cfg.WhisperModel,
		log:   log.WithComponent("transcribe"),
	}
}

// NewWithAPI creates a client with an injected API. Test seam.
func NewWithAPI(api speechAPI, model string, log *logger.Logger) *Client {
	return &Client{api: api, model: model, log: log.WithComponent("transcribe")}
}

// TranscribeFile transcribes a single audio file.
func (c *Client) TranscribeFile(ctx context.Context, path string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", apperr.TranscriptionFailed(err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// TranscribeChunks transcribes an ordered chunk sequence strictly
// sequentially and joins the results with a single space. Ordering is
// load-bearing: meaning is position-dependent. Each chunk file is
// deleted best-effort right after its call succeeds. Any chunk failure
// aborts the whole transcription; there is no partial result and no retry.
func (c *Client) TranscribeChunks(ctx context.Context, paths []string) (string, error) {
	parts := make([]string, 0, len(paths))
	for i, path := range paths {
		text, err := c.TranscribeFile(ctx, path)
		if err != nil {
			c.log.Error("Chunk transcription failed", logger.Fields(
				"chunk", i, "total", len(paths), logger.FieldError, err.Error(),
			))
			return "", err
		}
		parts = append(parts, text)

		if rmErr := os.Remove(path); rmErr != nil {
			c.log.Warn("Failed to remove chunk file", logger.Fields(
				"path", path, logger.FieldError, rmErr.Error(),
			))
		}

		c.log.Debug("Chunk transcribed", logger.Fields("chunk", i, "total", len(paths)))
	}
	return strings.Join(parts, " "), nil
}
