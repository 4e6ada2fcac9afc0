// Package assistant implements the generative side of the drafting engine:
// a Gemini-backed conversational client and a concept-image renderer.
package assistant

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"partforge/internal/config"
	"partforge/internal/draft"
	"partforge/internal/logging"
)

// GeminiClient implements draft.AssistantClient against the Gemini REST API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	images     *ImageEngine // optional; nil disables GenerateImage

	mu          sync.Mutex
	lastRequest time.Time
}

// NewGeminiClient builds a client from configuration. images may be nil.
func NewGeminiClient(cfg config.AssistantConfig, timeout time.Duration, images *ImageEngine) *GeminiClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		images:     images,
	}
}

// generate is the single request path: rate limiting, automatic timeout when
// the context has no deadline, and exponential backoff on transient failures.
func (c *GeminiClient) generate(ctx context.Context, systemPrompt string, contents []geminiContent, genCfg *geminiGenerationConfig) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("assistant API key not configured")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	reqBody := geminiRequest{
		Contents:         contents,
		GenerationConfig: genCfg,
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	startTime := time.Now()

	maxRetries := 3
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var geminiResp geminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return "", fmt.Errorf("failed to parse response: %w", err)
		}
		if geminiResp.Error != nil {
			return "", fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}
		if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
			return "", fmt.Errorf("no completion returned")
		}

		var result strings.Builder
		for _, part := range geminiResp.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}
		reply := strings.TrimSpace(result.String())
		logging.AssistantDebug("generate completed in %v model=%s reply_len=%d", time.Since(startTime), c.model, len(reply))
		return reply, nil
	}

	logging.Get(logging.CategoryAssistant).Error("max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Ask sends a conversational turn with windowed history and an optional
// reference image.
func (c *GeminiClient) Ask(ctx context.Context, prompt string, history []draft.ChatMessage, image []byte) (string, error) {
	parts := []geminiPart{{Text: prompt}}
	if len(image) > 0 {
		parts = append(parts, geminiPart{InlineData: &geminiBlob{
			MIMEType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(image),
		}})
	}

	contents := append(windowHistory(history), geminiContent{Role: "user", Parts: parts})
	system := fmt.Sprintf(draftingSystemPrompt, catalogListing())
	return c.generate(ctx, system, contents, &geminiGenerationConfig{Temperature: 1.0})
}

// Verify audits the BOM against the design requirements. The reply may embed
// corrective commands; extraction is the caller's job.
func (c *GeminiClient) Verify(ctx context.Context, bom []draft.BOMEntry, requirements, previousAudit string) (string, error) {
	contents := []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: auditPrompt(bom, requirements, previousAudit)}},
	}}
	system := fmt.Sprintf(draftingSystemPrompt, catalogListing())
	return c.generate(ctx, system, contents, &geminiGenerationConfig{Temperature: 0.4})
}

// PlanAssembly requests a structured assembly plan.
func (c *GeminiClient) PlanAssembly(ctx context.Context, bom []draft.BOMEntry, previous *draft.AssemblyPlan) (*draft.AssemblyPlan, error) {
	contents := []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: planPrompt(bom, previous)}},
	}}
	reply, err := c.generate(ctx, "", contents, &geminiGenerationConfig{
		Temperature:      0.4,
		ResponseMIMEType: "application/json",
		ResponseSchema:   assemblyPlanSchema(),
	})
	if err != nil {
		return nil, err
	}

	var plan draft.AssemblyPlan
	if err := json.Unmarshal([]byte(reply), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse assembly plan: %w", err)
	}
	return &plan, nil
}

// FindSources searches for purchasing options for a part.
func (c *GeminiClient) FindSources(ctx context.Context, query string) ([]draft.SourceResult, error) {
	prompt := fmt.Sprintf("List up to 5 reputable online purchasing options for the hardware part %q. Include realistic retailer names and product page URLs.", query)
	reply, err := c.generate(ctx, "", []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		&geminiGenerationConfig{
			Temperature:      0.4,
			ResponseMIMEType: "application/json",
			ResponseSchema:   sourceResultsSchema(),
		})
	if err != nil {
		return nil, err
	}

	var results []draft.SourceResult
	if err := json.Unmarshal([]byte(reply), &results); err != nil {
		return nil, fmt.Errorf("failed to parse sourcing results: %w", err)
	}
	return results, nil
}

// FindLocalSuppliers searches for fabrication or retail suppliers for a part.
func (c *GeminiClient) FindLocalSuppliers(ctx context.Context, query string) ([]draft.Supplier, error) {
	prompt := fmt.Sprintf("List up to 5 supplier businesses (electronics retailers, fabrication shops, maker spaces) that could supply or fabricate %q.", query)
	reply, err := c.generate(ctx, "", []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		&geminiGenerationConfig{
			Temperature:      0.4,
			ResponseMIMEType: "application/json",
			ResponseSchema:   suppliersSchema(),
		})
	if err != nil {
		return nil, err
	}

	var suppliers []draft.Supplier
	if err := json.Unmarshal([]byte(reply), &suppliers); err != nil {
		return nil, fmt.Errorf("failed to parse supplier results: %w", err)
	}
	return suppliers, nil
}

// GenerateFabricationBrief writes a manufacturing brief for one part.
func (c *GeminiClient) GenerateFabricationBrief(ctx context.Context, partName, designContext string) (string, error) {
	contents := []geminiContent{{
		Role:  "user",
		Parts: []geminiPart{{Text: fabricationPrompt(partName, designContext)}},
	}}
	return c.generate(ctx, "", contents, &geminiGenerationConfig{Temperature: 0.7})
}

// GenerateImage renders a concept image via the image engine.
func (c *GeminiClient) GenerateImage(ctx context.Context, description string, reference []byte) ([]byte, error) {
	if c.images == nil {
		return nil, fmt.Errorf("image generation not configured")
	}
	return c.images.Render(ctx, description, reference)
}

var _ draft.AssistantClient = (*GeminiClient)(nil)
