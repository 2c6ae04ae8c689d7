package analysis

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/wonny/dinger/backend/pkg/config"
)

// Generator produces text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Gemini generates text with the Gemini API
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini generator. Returns ErrAnalysisUnavailable
// when no API key is configured.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set: %w", ErrAnalysisUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	return &Gemini{client: client, model: cfg.Model}, nil
}

// Model returns the model name
func (g *Gemini) Model() string {
	return g.model
}

// Generate sends one user prompt and joins the text parts of the first
// candidate that has any
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.4)),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var out strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					out.WriteString(part.Text)
				}
			}
			if out.Len() > 0 {
				break
			}
		}
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from %s", g.model)
	}
	return out.String(), nil
}
