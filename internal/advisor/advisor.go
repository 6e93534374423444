// Package advisor turns a financial snapshot into narrative budgeting advice
// via the Gemini API. The service boundary is deliberately soft: any failure
// collapses into a fixed fallback string and is never surfaced as an error.
package advisor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ycchuang/moneybook/internal/domain"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Fallback is shown whenever advice generation fails.
const Fallback = "AI 顧問目前休息中，請稍後再試。"

// Generation parameters for the advisory prompt.
const (
	temperature float32 = 0.7
	topP        float32 = 0.95
)

// Generator produces free text for a prompt. It exists so tests can swap the
// Gemini-backed implementation for a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API. Credentials come from the ambient
// environment, same as the rest of the Google Cloud clients.
type GeminiGenerator struct {
	Model string
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("advisor: create genai client: %w", err)
	}

	model := g.Model
	if model == "" {
		model = DefaultModel
	}
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
		TopP:        genai.Ptr(topP),
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("advisor: generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("advisor: empty response from model")
	}
	return text, nil
}

// Advisor wraps a Generator with prompt rendering and the fallback policy.
type Advisor struct {
	gen Generator
	log zerolog.Logger
}

func New(gen Generator, log zerolog.Logger) *Advisor {
	return &Advisor{gen: gen, log: log}
}

// Advise renders the snapshot summary and asks the model for advice. It
// always returns a usable string: on any failure the fallback apology is
// returned and the cause is only logged.
func (a *Advisor) Advise(ctx context.Context, accounts []domain.Account, txs []domain.Transaction) string {
	prompt := BuildPrompt(accounts, txs)
	advice, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		a.log.Warn().Err(err).Msg("advice generation failed, returning fallback")
		return Fallback
	}
	return advice
}
