// Package refine post-processes raw transcripts with two independent
// language-model passes: clean (punctuation, paragraphs, filler removal)
// and format (titled, sectioned markdown with key takeaways).
package refine

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/skillsenselab/tubescribe/internal/config"
	"github.com/skillsenselab/tubescribe/internal/logger"
)

// chatAPI is the slice of the OpenAI client the refiner needs.
type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Result carries a refinement outcome. Degraded marks the fallback
// path: the API call failed and Text is the input, unchanged. Callers
// and tests can tell success from fallback instead of losing the signal.
type Result struct {
	Text     string
	Degraded bool
}

// Refiner runs the two refinement passes.
type Refiner struct {
	api         chatAPI
	model       string
	temperature float32
	log         *logger.Logger
}

// New creates a Refiner backed by the configured OpenAI account. The
// model identifier is a cost/quality knob; the low fixed temperature
// favors determinism over creativity.
func New(cfg config.OpenAIConfig, log *logger.Logger) *Refiner {
	cfg.ApplyDefaults()
	return &Refiner{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.CleaningModel,
		temperature: cfg.Temperature,
		log:         log.WithComponent("refine"),
	}
}

// NewWithAPI creates a Refiner with an injected API. Test seam.
func NewWithAPI(api chatAPI, model string, temperature float32, log *logger.Logger) *Refiner {
	return &Refiner{api: api, model: model, temperature: temperature, log: log.WithComponent("refine")}
}

// Clean punctuates, paragraphs, and de-fillers the raw transcript. On
// API failure the raw text is returned unchanged with Degraded set; a
// refinement failure never fails the pipeline.
func (r *Refiner) Clean(ctx context.Context, raw string) Result {
	return r.complete(ctx, "clean", cleanPrompt, raw)
}

// Format restructures the cleaned text into a titled markdown document,
// using the video title as context. Same graceful-degradation policy as
// Clean: on failure the input comes back as the formatted text.
func (r *Refiner) Format(ctx context.Context, clean, videoTitle string) Result {
	user := fmt.Sprintf("Video Title: %s\n\nTranscript:\n%s", videoTitle, clean)
	res := r.complete(ctx, "format", formatPrompt, user)
	if res.Degraded {
		res.Text = clean
	}
	return res
}

func (r *Refiner) complete(ctx context.Context, pass, system, user string) Result {
	resp, err := r.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Temperature: r.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		r.log.Warn("Refinement pass degraded to input text", logger.Fields(
			"pass", pass, logger.FieldError, err.Error(),
		))
		return Result{Text: user, Degraded: true}
	}
	if len(resp.Choices) == 0 {
		r.log.Warn("Refinement pass returned no choices", logger.Fields("pass", pass))
		return Result{Text: user, Degraded: true}
	}
	return Result{Text: resp.Choices[0].Message.Content}
}
