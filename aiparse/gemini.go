package aiparse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const systemInstruction = `You extract shopping list items for a shared potluck.
Return only a JSON array. Each element is {"name": string, "quantity": number}.
Use quantity 1 when none is given. Merge obvious repeats. Ignore prices, store
names and anything that is not an item to bring.`

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func userPrompt(p Prompt) string {
	var b strings.Builder
	if p.Text != "" {
		b.WriteString("List:\n")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	if len(p.Image) > 0 {
		b.WriteString("Read the items from the attached photo.\n")
	}
	if len(p.Categories) > 0 {
		b.WriteString("Also set \"category\" on each item to one of these ids, or leave it out:\n")
		for _, c := range p.Categories {
			fmt.Fprintf(&b, "- %s (%s)\n", c.ID, c.Name)
		}
	}
	return b.String()
}

func (g *GeminiGenerator) Generate(ctx context.Context, p Prompt) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(userPrompt(p))}
	if len(p.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(p.Image, p.MimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", classify(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	for _, c := range resp.Candidates {
		switch c.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
			return "", fmt.Errorf("%w: %s", ErrBlocked, c.FinishReason)
		}
	}
	return resp.Text(), nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrQuota, err)
	}
	var apiPtr *genai.APIError
	if errors.As(err, &apiPtr) && apiPtr.Code == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrQuota, err)
	}
	return err
}
