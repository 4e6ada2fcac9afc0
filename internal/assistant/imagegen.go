package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"partforge/internal/logging"
)

// =============================================================================
// CONCEPT IMAGE ENGINE
// =============================================================================

// ImageEngine renders concept images through the Gemini image model. It uses
// the official SDK rather than the REST path because image responses are
// multimodal and the SDK handles part decoding.
type ImageEngine struct {
	client *genai.Client
	model  string
}

// NewImageEngine creates an image engine.
func NewImageEngine(apiKey, model string) (*ImageEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("image engine API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &ImageEngine{client: client, model: model}, nil
}

// Render produces PNG bytes for a concept description. reference, when
// present, is sent alongside the prompt so the render matches an existing
// sketch or photo.
func (e *ImageEngine) Render(ctx context.Context, description string, reference []byte) ([]byte, error) {
	prompt := fmt.Sprintf(
		"Product concept render of %s. Clean studio lighting, neutral background, photorealistic.",
		description)

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(reference) > 0 {
		parts = append(parts, genai.NewPartFromBytes(reference, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				logging.AssistantDebug("rendered concept image: %d bytes", len(part.InlineData.Data))
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no image returned")
}

// Model reports the image model in use.
func (e *ImageEngine) Model() string {
	return e.model
}
