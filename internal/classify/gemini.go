package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"dividi/internal/log"
)

// GeminiClassifier asks a Gemini-family model for a single category label.
type GeminiClassifier struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Logger
}

// NewGeminiClassifier builds a classifier against the Generative Language
// API. model is a resource name such as "models/gemma-3-4b-it".
func NewGeminiClassifier(ctx context.Context, apiKey, model string, logger *log.Logger) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClassifier{
		client: client,
		model:  client.GenerativeModel(model),
		logger: logger.WithComponent(log.ComponentClassify),
	}, nil
}

// Close releases the underlying API client.
func (c *GeminiClassifier) Close() error {
	return c.client.Close()
}

// Classify returns one of Categories for the description. The model is
// prompted to answer with the bare label; whatever comes back is sanitized,
// so a rambling answer degrades to Other instead of polluting the data.
func (c *GeminiClassifier) Classify(ctx context.Context, description string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify this expense description into exactly one of these categories: %s. "+
			"Reply with only the category name, nothing else.\n\nDescription: %s",
		strings.Join(Categories, ", "), description)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty model response")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response part %T", resp.Candidates[0].Content.Parts[0])
	}

	verdict := Sanitize(string(text))
	c.logger.DebugContext(ctx, "expense classified",
		log.FieldOperation, log.OpClassify, log.FieldCategory, verdict)
	return verdict, nil
}
