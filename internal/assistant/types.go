package assistant

// Wire types for the Gemini generateContent REST API. Only the fields the
// drafting engine uses are modeled.

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiGenerationConfig struct {
	Temperature      float64        `json:"temperature,omitempty"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// RESPONSE SCHEMAS
// =============================================================================

// Gemini structured output uses an OpenAPI-flavored schema dialect with
// uppercase type names.

func sourceResultsSchema() map[string]any {
	return map[string]any{
		"type": "ARRAY",
		"items": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"title":  map[string]any{"type": "STRING"},
				"url":    map[string]any{"type": "STRING"},
				"source": map[string]any{"type": "STRING"},
				"price":  map[string]any{"type": "NUMBER"},
			},
			"required": []string{"title", "url", "source"},
		},
	}
}

func suppliersSchema() map[string]any {
	return map[string]any{
		"type": "ARRAY",
		"items": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"name":    map[string]any{"type": "STRING"},
				"address": map[string]any{"type": "STRING"},
				"url":     map[string]any{"type": "STRING"},
			},
			"required": []string{"name"},
		},
	}
}

func assemblyPlanSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"overview":      map[string]any{"type": "STRING"},
			"estimatedTime": map[string]any{"type": "STRING"},
			"steps": map[string]any{
				"type": "ARRAY",
				"items": map[string]any{
					"type": "OBJECT",
					"properties": map[string]any{
						"order":        map[string]any{"type": "INTEGER"},
						"title":        map[string]any{"type": "STRING"},
						"instructions": map[string]any{"type": "STRING"},
						"parts": map[string]any{
							"type":  "ARRAY",
							"items": map[string]any{"type": "STRING"},
						},
					},
					"required": []string{"order", "title", "instructions"},
				},
			},
		},
		"required": []string{"overview", "steps"},
	}
}
