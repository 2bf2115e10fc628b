package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// GeminiAIParser is the AIParser backed by Gemini. The client reads its
// credentials from the environment (GOOGLE_API_KEY or Vertex AI settings).
type GeminiAIParser struct {
	client *genai.Client
	model  string
}

var _ AIParser = (*GeminiAIParser)(nil)

// NewGeminiAIParser creates a Gemini client for model.
func NewGeminiAIParser(ctx context.Context, model string) (*GeminiAIParser, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiAIParser: create genai client: %w", err)
	}
	return &GeminiAIParser{client: client, model: model}, nil
}

// ModelName implements AIParser.
func (p *GeminiAIParser) ModelName() string {
	return p.model
}

// ParseInvoice implements AIParser.
func (p *GeminiAIParser) ParseInvoice(ctx context.Context, file []byte, mimeType string, categories []string) (map[string]interface{}, string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildInvoicePrompt(categories)},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     file,
					},
				},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, nil)
	if err != nil {
		return nil, "", fmt.Errorf("ParseInvoice: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, "", fmt.Errorf("ParseInvoice: empty response from model")
	}

	clean := cleanModelJSON(rawText)
	parsed, err := decodeModelJSON(clean)
	if err != nil {
		return nil, rawText, fmt.Errorf("ParseInvoice: %w", err)
	}
	return parsed, clean, nil
}

// decodeModelJSON decodes a JSON object keeping numbers as json.Number so
// money values are not routed through float64.
func decodeModelJSON(s string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var parsed map[string]interface{}
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if parsed == nil {
		return nil, fmt.Errorf("model returned null")
	}
	return parsed, nil
}

// cleanModelJSON strips Markdown fences and surrounding prose from a model
// response, keeping the outermost JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
