package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pedalmarket/marketplace-backend/internal/obs"
	"google.golang.org/genai"
)

// DescribeTimeout bounds a single generation call.
const DescribeTimeout = 45 * time.Second

var ErrNotConfigured = errors.New("description generator is not configured")

type DescriptionClient struct {
	client *genai.Client
	model  string
}

// NewDescriptionClient returns a client that is disabled (Describe returns ErrNotConfigured)
// when apiKey is empty.
func NewDescriptionClient(ctx context.Context, apiKey, model string) (*DescriptionClient, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if apiKey == "" {
		return &DescriptionClient{model: model}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &DescriptionClient{client: client, model: model}, nil
}

// Describe writes a listing description from the seller's facts.
func (c *DescriptionClient) Describe(ctx context.Context, facts ListingFacts) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrNotConfigured
	}
	log := obs.FromContext(ctx).With("component", "describe", "model", c.model)
	ctx, cancel := context.WithTimeout(ctx, DescribeTimeout)
	defer cancel()

	parts := []*genai.Part{
		genai.NewPartFromText(BuildDescriptionPrompt(facts.Condition)),
		genai.NewPartFromText(facts.String()),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	temp := float32(0.6)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: 512,
	}
	start := time.Now()
	log.Info("gemini_start")
	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		log.Warn("gemini_fail", "err", err, "ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	out, err := CleanDescription(res.Text())
	if err != nil {
		log.Warn("parse_fail", "err", err)
		return "", err
	}
	log.Info("gemini_done", "ms", time.Since(start).Milliseconds(), "len", len(out))
	return out, nil
}
