package aiadapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"
)

const summarizePromptTemplate = "Please summarize the following text concisely:\n\n---\n%s\n---"

const classifyPromptTemplate = `Score how well the text below matches each candidate label, as a
number from 0 to 1. Respond with one "label: score" pair per line and
nothing else.

Candidate labels: %s

Text:
%s`

// maxPromptChars is the approximate token-window truncation applied
// before any Gemini call (spec §4.3 "truncates input to model's max
// token window").
const maxPromptChars = 24000

// GeminiBackend calls Google's Gemini models for embedding,
// summarization, and zero-shot classification. It is grounded on the
// teacher's internal/llm.Client: same genai.Client construction and
// generateContent/EmbedContent call shape, narrowed to the three
// operations the AI adapter facade exposes.
type GeminiBackend struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

// NewGeminiBackend constructs a Backend that talks to Gemini using
// apiKey. Intended to be wrapped in a Factory so construction failures
// (missing key, unreachable API) go through the adapter's sticky
// failure window instead of panicking at startup.
func NewGeminiBackend(ctx context.Context, apiKey, model, embeddingModel string) (Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiBackend{client: client, model: model, embeddingModel: embeddingModel}, nil
}

func (g *GeminiBackend) generateContent(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: prompt}}, Role: "user"}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Embed implements Backend.
func (g *GeminiBackend) Embed(ctx context.Context, text string, dimension int) ([]float32, error) {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}, Role: "user"}}
	dims := int32(dimension)
	config := &genai.EmbedContentConfig{OutputDimensionality: &dims}

	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding values returned from gemini")
	}
	return resp.Embeddings[0].Values, nil
}

// Summarize implements Backend.
func (g *GeminiBackend) Summarize(ctx context.Context, text string) (string, error) {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	prompt := fmt.Sprintf(summarizePromptTemplate, text)
	return g.generateContent(ctx, prompt)
}

// ClassifyZeroShot implements Backend.
func (g *GeminiBackend) ClassifyZeroShot(ctx context.Context, text string, labels []string) (map[string]float64, error) {
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}
	prompt := fmt.Sprintf(classifyPromptTemplate, strings.Join(labels, ", "), text)
	response, err := g.generateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseLabelScores(response, labels), nil
}

func parseLabelScores(response string, labels []string) map[string]float64 {
	scores := make(map[string]float64, len(labels))
	for _, line := range strings.Split(response, "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		label := strings.TrimSpace(parts[0])
		score, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			continue
		}
		for _, want := range labels {
			if strings.EqualFold(want, label) {
				scores[want] = clamp01(score)
			}
		}
	}
	return scores
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
